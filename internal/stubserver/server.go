// Package stubserver is an in-memory implementation of the storefront API
// used for local development and end-to-end tests of the client. It speaks
// the same wire contract (paths, payloads, error codes) but holds no durable
// state and implements no real business rules.
package stubserver

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Server wraps the HTTP server setup.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	state      *state
}

// New builds a Server with seeded catalog data.
func New(addr string, logger *log.Logger) *Server {
	st := newState()
	router := buildRouter(logger, st)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		httpServer: httpSrv,
		logger:     logger,
		state:      st,
	}
}

// Handler exposes the router, letting tests mount the stub on httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// RevokeTokens revokes outstanding tokens, all of them when customerID is
// empty. Tests use it to simulate server-side credential invalidation.
func (s *Server) RevokeTokens(customerID string) {
	s.state.RevokeAllTokens(customerID)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
