// Package api exposes the HTTP surface of the session service: session
// creation and read-back, album metadata lookup, health, and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ticketdrop/session-api/internal/albummeta"
	"github.com/ticketdrop/session-api/internal/metrics"
	"github.com/ticketdrop/session-api/internal/session"
)

// CreationCounter reports recent creation volume from the audit log.
type CreationCounter interface {
	CountRecent(ctx context.Context, window time.Duration) (int, error)
}

// Server holds the handler dependencies. counter may be nil when no
// audit log is configured; the stats endpoint then reports not found.
type Server struct {
	manager  *session.Manager
	resolver *albummeta.Resolver
	counter  CreationCounter
}

// NewServer creates the HTTP server facade.
func NewServer(manager *session.Manager, resolver *albummeta.Resolver, counter CreationCounter) *Server {
	return &Server{manager: manager, resolver: resolver, counter: counter}
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)

	r.Post("/sessions", s.handleCreateSession)
	r.Get("/sessions/{id}", s.handleReadSession)
	r.Get("/album-meta", s.handleAlbumMeta)
	r.Get("/stats", s.handleStats)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	return r
}
