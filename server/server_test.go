package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/logger"
	"github.com/teranos/ontix/ontology"
)

// stubProvider serves canned payloads for handler tests.
type stubProvider struct {
	tree     []*ontology.ClassModel
	classes  map[ontology.ClassID]ontology.ClassModel
	elements map[ontology.ElementID]ontology.ElementModel
	counts   []ontology.LinkCount
	err      error

	lastLinkTypesOf ontology.ElementID
	lastFilter      ontology.FilterParams
}

func (p *stubProvider) ClassTree(ctx context.Context) ([]*ontology.ClassModel, error) {
	return p.tree, p.err
}

func (p *stubProvider) ClassInfo(ctx context.Context, ids []ontology.ClassID) ([]ontology.ClassModel, error) {
	if p.err != nil {
		return nil, p.err
	}
	var out []ontology.ClassModel
	for _, id := range ids {
		if c, ok := p.classes[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (p *stubProvider) PropertyInfo(ctx context.Context, ids []ontology.PropertyID) (map[ontology.PropertyID]ontology.PropertyModel, error) {
	return map[ontology.PropertyID]ontology.PropertyModel{}, p.err
}

func (p *stubProvider) LinkTypesInfo(ctx context.Context, ids []ontology.LinkTypeID) ([]ontology.LinkType, error) {
	return nil, p.err
}

func (p *stubProvider) LinkTypes(ctx context.Context) ([]ontology.LinkType, error) {
	return nil, p.err
}

func (p *stubProvider) ElementInfo(ctx context.Context, ids []ontology.ElementID) (map[ontology.ElementID]ontology.ElementModel, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[ontology.ElementID]ontology.ElementModel)
	for _, id := range ids {
		if e, ok := p.elements[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (p *stubProvider) LinksInfo(ctx context.Context, elementIDs []ontology.ElementID, linkTypeIDs []ontology.LinkTypeID) ([]ontology.Link, error) {
	return nil, p.err
}

func (p *stubProvider) LinkTypesOf(ctx context.Context, elementID ontology.ElementID) ([]ontology.LinkCount, error) {
	p.lastLinkTypesOf = elementID
	return p.counts, p.err
}

func (p *stubProvider) LinkElements(ctx context.Context, params ontology.LinkedElementsParams) (map[ontology.ElementID]ontology.ElementModel, error) {
	return map[ontology.ElementID]ontology.ElementModel{}, p.err
}

func (p *stubProvider) Filter(ctx context.Context, params ontology.FilterParams) (map[ontology.ElementID]ontology.ElementModel, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.lastFilter = params
	return p.elements, nil
}

var _ ontology.Provider = (*stubProvider)(nil)

func newTestServer(t *testing.T, p ontology.Provider) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := New(p, Options{
		Backends: []string{"test"},
		Logger:   logger.Logger,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func TestClassTreeEndpoint(t *testing.T) {
	p := &stubProvider{
		tree: []*ontology.ClassModel{
			{ID: "work", Label: "Work", Children: []*ontology.ClassModel{
				{ID: "album", Label: "Album", Count: 3},
			}},
		},
	}
	_, ts := newTestServer(t, p)

	resp, err := http.Get(ts.URL + "/api/class-tree")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var tree []*ontology.ClassModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tree))
	require.Len(t, tree, 1)
	assert.Equal(t, ontology.ClassID("work"), tree[0].ID)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, 3, tree[0].Children[0].Count)
}

func TestClassInfoEndpointReturnsList(t *testing.T) {
	p := &stubProvider{
		classes: map[ontology.ClassID]ontology.ClassModel{
			"album":  {ID: "album", Label: "Album"},
			"artist": {ID: "artist", Label: "Artist"},
		},
	}
	_, ts := newTestServer(t, p)

	resp := postJSON(t, ts.URL+"/api/classes", map[string]any{
		"classIds": []string{"album", "missing", "artist"},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var classes []ontology.ClassModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&classes))
	require.Len(t, classes, 2)
	assert.Equal(t, ontology.ClassID("album"), classes[0].ID)
	assert.Equal(t, ontology.ClassID("artist"), classes[1].ID)
}

func TestElementInfoEndpoint(t *testing.T) {
	p := &stubProvider{
		elements: map[ontology.ElementID]ontology.ElementModel{
			"pink_floyd": {
				ID:    "pink_floyd",
				Types: []ontology.ClassID{"artist"},
				Label: "Pink Floyd",
			},
		},
	}
	_, ts := newTestServer(t, p)

	resp := postJSON(t, ts.URL+"/api/elements", map[string]any{
		"elementIds": []string{"pink_floyd"},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var elements map[ontology.ElementID]ontology.ElementModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&elements))
	require.Contains(t, elements, ontology.ElementID("pink_floyd"))
	assert.Equal(t, []ontology.ClassID{"artist"}, elements["pink_floyd"].Types)
}

func TestLinkTypesOfUsesPathValue(t *testing.T) {
	p := &stubProvider{
		counts: []ontology.LinkCount{{TypeID: "performed_by", Inbound: 0, Outbound: 2}},
	}
	_, ts := newTestServer(t, p)

	resp, err := http.Get(ts.URL + "/api/elements/pink_floyd/link-types")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ontology.ElementID("pink_floyd"), p.lastLinkTypesOf)

	var counts []ontology.LinkCount
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&counts))
	require.Len(t, counts, 1)
	assert.Equal(t, 2, counts[0].Outbound)
}

func TestFilterEndpointDecodesParams(t *testing.T) {
	p := &stubProvider{elements: map[ontology.ElementID]ontology.ElementModel{}}
	_, ts := newTestServer(t, p)

	resp := postJSON(t, ts.URL+"/api/filter", map[string]any{
		"elementTypeId": "album",
		"text":          "dark",
		"limit":         10,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, ontology.ClassID("album"), p.lastFilter.ElementTypeID)
	assert.Equal(t, "dark", p.lastFilter.Text)
	assert.Equal(t, 10, p.lastFilter.Limit)
}

func TestProviderErrorReturns500(t *testing.T) {
	p := &stubProvider{err: errors.New("backend exploded")}
	_, ts := newTestServer(t, p)

	resp, err := http.Get(ts.URL + "/api/class-tree")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "backend exploded")
}

func TestNotFoundErrorReturns404(t *testing.T) {
	p := &stubProvider{err: errors.Wrap(errors.ErrNotFound, "store pruned")}
	_, ts := newTestServer(t, p)

	resp, err := http.Get(ts.URL + "/api/class-tree")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "store pruned")
}

func TestUnavailableErrorReturns503(t *testing.T) {
	p := &stubProvider{err: errors.Wrap(errors.ErrServiceUnavailable, "restoring")}
	_, ts := newTestServer(t, p)

	resp, err := http.Get(ts.URL + "/api/link-types")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMalformedBodyReturns400(t *testing.T) {
	_, ts := newTestServer(t, &stubProvider{})

	resp, err := http.Post(ts.URL+"/api/classes", "application/json",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, &stubProvider{})

	resp, err := http.Get(ts.URL + "/api/classes")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv, ts := newTestServer(t, &stubProvider{})

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status   string   `json:"status"`
		Backends []string `json:"backends"`
		Clients  int      `json:"clients"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, []string{"test"}, body.Backends)
	assert.Equal(t, 0, body.Clients)
	assert.Equal(t, 0, srv.ClientCount())
}
