package server

// HTTP handlers, one per ontology.Provider operation. Request bodies
// are small JSON envelopes; responses are the ontology types directly.

import (
	"encoding/json"
	"net/http"

	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/ontology"
	"github.com/teranos/ontix/version"
)

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debugw("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warnw("Request failed", "status", status, "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// statusForError maps provider error sentinels onto HTTP statuses, so
// a provider's not-found is a 404 to callers rather than a blanket 500.
func statusForError(err error) int {
	switch {
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeProviderError(w http.ResponseWriter, err error) {
	s.writeError(w, statusForError(err), err)
}

func decode[T any](w http.ResponseWriter, r *http.Request, s *Server) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Mark(err, errors.ErrInvalidRequest))
		return req, false
	}
	return req, true
}

func (s *Server) handleClassTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.provider.ClassTree(r.Context())
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, tree)
}

func (s *Server) handleClassInfo(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[struct {
		ClassIDs []ontology.ClassID `json:"classIds"`
	}](w, r, s)
	if !ok {
		return
	}
	classes, err := s.provider.ClassInfo(r.Context(), req.ClassIDs)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, classes)
}

func (s *Server) handlePropertyInfo(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[struct {
		PropertyIDs []ontology.PropertyID `json:"propertyIds"`
	}](w, r, s)
	if !ok {
		return
	}
	props, err := s.provider.PropertyInfo(r.Context(), req.PropertyIDs)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, props)
}

func (s *Server) handleLinkTypes(w http.ResponseWriter, r *http.Request) {
	linkTypes, err := s.provider.LinkTypes(r.Context())
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, linkTypes)
}

func (s *Server) handleLinkTypesInfo(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[struct {
		LinkTypeIDs []ontology.LinkTypeID `json:"linkTypeIds"`
	}](w, r, s)
	if !ok {
		return
	}
	linkTypes, err := s.provider.LinkTypesInfo(r.Context(), req.LinkTypeIDs)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, linkTypes)
}

func (s *Server) handleElementInfo(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[struct {
		ElementIDs []ontology.ElementID `json:"elementIds"`
	}](w, r, s)
	if !ok {
		return
	}
	elements, err := s.provider.ElementInfo(r.Context(), req.ElementIDs)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, elements)
}

func (s *Server) handleLinksInfo(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[struct {
		ElementIDs  []ontology.ElementID  `json:"elementIds"`
		LinkTypeIDs []ontology.LinkTypeID `json:"linkTypeIds,omitempty"`
	}](w, r, s)
	if !ok {
		return
	}
	links, err := s.provider.LinksInfo(r.Context(), req.ElementIDs, req.LinkTypeIDs)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, links)
}

func (s *Server) handleLinkTypesOf(w http.ResponseWriter, r *http.Request) {
	elementID := ontology.ElementID(r.PathValue("id"))
	counts, err := s.provider.LinkTypesOf(r.Context(), elementID)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, counts)
}

func (s *Server) handleLinkElements(w http.ResponseWriter, r *http.Request) {
	params, ok := decode[ontology.LinkedElementsParams](w, r, s)
	if !ok {
		return
	}
	elements, err := s.provider.LinkElements(r.Context(), params)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, elements)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	params, ok := decode[ontology.FilterParams](w, r, s)
	if !ok {
		return
	}
	elements, err := s.provider.Filter(r.Context(), params)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, elements)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()

	s.writeJSON(w, map[string]any{
		"status":   "ok",
		"version":  version.Get().Version,
		"backends": s.backends,
		"clients":  clientCount,
	})
}
