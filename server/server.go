// Package server exposes a federated ontology provider over HTTP and
// pushes refresh/health events to connected renderers over WebSocket.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/logger"
	"github.com/teranos/ontix/ontology"
)

// Server serves every ontology.Provider operation as a JSON endpoint.
// The provider is typically a federation.Composite, but any provider
// works; the server does not care.
type Server struct {
	provider ontology.Provider
	backends []string
	addr     string
	logger   *zap.SugaredLogger

	httpSrv *http.Server

	mu      sync.RWMutex
	clients map[*Client]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":8877"
	Addr string
	// Backends lists the federated backend names, reported by /api/health
	Backends []string
	// Logger defaults to the global logger
	Logger *zap.SugaredLogger
}

// New creates a Server over the given provider.
func New(provider ontology.Provider, opts Options) (*Server, error) {
	if provider == nil {
		return nil, errors.New("provider cannot be nil")
	}
	addr := opts.Addr
	if addr == "" {
		addr = ":8877"
	}
	log := opts.Logger
	if log == nil {
		log = logger.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		provider: provider,
		backends: opts.Backends,
		addr:     addr,
		logger:   log.Named("server"),
		clients:  make(map[*Client]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Routes builds the HTTP mux. Exposed for tests via httptest.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/class-tree", s.handleClassTree)
	mux.HandleFunc("POST /api/classes", s.handleClassInfo)
	mux.HandleFunc("POST /api/properties", s.handlePropertyInfo)
	mux.HandleFunc("GET /api/link-types", s.handleLinkTypes)
	mux.HandleFunc("POST /api/link-types/info", s.handleLinkTypesInfo)
	mux.HandleFunc("POST /api/elements", s.handleElementInfo)
	mux.HandleFunc("POST /api/links", s.handleLinksInfo)
	mux.HandleFunc("GET /api/elements/{id}/link-types", s.handleLinkTypesOf)
	mux.HandleFunc("POST /api/linked-elements", s.handleLinkElements)
	mux.HandleFunc("POST /api/filter", s.handleFilter)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.HandleWebSocket)

	return mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Infow("Server listening",
		"addr", s.addr,
		"backends", s.backends,
	)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Shutdown stops the HTTP listener, disconnects WebSocket clients, and
// waits for the pumps to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for client := range s.clients {
		client.close()
	}
	s.clients = make(map[*Client]struct{})
	s.mu.Unlock()

	err := s.httpSrv.Shutdown(ctx)
	s.wg.Wait()
	return err
}
