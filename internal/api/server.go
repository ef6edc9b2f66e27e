package api

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer creates the API server around the configured routes.
func NewServer(h *Handlers) *Server {
	return &Server{handler: SetupRoutes(h)}
}

// ListenAndServe starts the HTTP server on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}
