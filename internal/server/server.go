// Package server exposes the command builder and the run ledger over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/rfdiff/internal/config"
	"github.com/me/rfdiff/internal/store"
	"github.com/me/rfdiff/internal/task"
)

// Server is the rfdiff REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.Config
	startTime time.Time
	runner    *task.Runner
	store     store.Store

	// Background runs outlive their request; they use baseCtx.
	baseCtx context.Context
	runs    sync.WaitGroup
	active  atomic.Int64
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithBaseContext sets the context background runs execute under.
// Cancelling it cancels every run in flight.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.Config, runner *task.Runner, st store.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		runner:    runner,
		store:     st,
		baseCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until every background run has finished.
func (s *Server) Wait() {
	s.runs.Wait()
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		r.Route("/parameters", func(r chi.Router) {
			r.Get("/", s.handleListParameters)
			r.Get("/{name}", s.handleGetParameter)
		})

		r.Post("/commands", s.handleBuildCommand)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Post("/", s.handleCreateRun)
			r.Get("/{id}", s.handleGetRun)
		})
	})
}
