// Package api serves the watch-mode status endpoints.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/docverify/internal/history"
	"git.home.luguber.info/inful/docverify/internal/verifier"
)

const defaultListLimit = 20

// StatusSource provides the most recent report, nil before the first run.
type StatusSource interface {
	Last() *verifier.Report
}

// Trigger requests a verification run.
type Trigger func(reason string) bool

// Server represents the status API server.
type Server struct {
	Addr    string
	router  *chi.Mux
	server  *http.Server
	status  StatusSource
	history history.Store
	metrics http.Handler
	trigger Trigger
}

// Option configures optional endpoints.
type Option func(*Server)

// WithHistory enables /runs backed by store.
func WithHistory(store history.Store) Option { return func(s *Server) { s.history = store } }

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithTrigger enables POST /runs.
func WithTrigger(t Trigger) Option { return func(s *Server) { s.trigger = t } }

// NewServer creates a new status server.
func NewServer(addr string, status StatusSource, opts ...Option) *Server {
	s := &Server{
		Addr:   addr,
		router: chi.NewRouter(),
		status: status,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/status", s.handleStatus)

	if s.history != nil {
		s.router.Get("/runs", s.handleListRuns)
		s.router.Get("/runs/{id}", s.handleGetRun)
	}
	if s.trigger != nil {
		s.router.Post("/runs", s.handleTriggerRun)
	}
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the server. It returns nil after Shutdown.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Response represents a standard API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Error writes an error response.
func (s *Server) Error(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Error: message})
}

// Success writes a success response.
func (s *Server) Success(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var last *verifier.Report
	if s.status != nil {
		last = s.status.Last()
	}
	if last == nil {
		s.Error(w, http.StatusNotFound, "no run completed yet")
		return
	}
	s.Success(w, http.StatusOK, last)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	s.Success(w, http.StatusOK, entries)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case stderrors.Is(err, history.ErrNotFound):
		s.Error(w, http.StatusNotFound, "run not found")
	case err != nil:
		s.Error(w, http.StatusInternalServerError, err.Error())
	default:
		s.Success(w, http.StatusOK, report)
	}
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, _ *http.Request) {
	if !s.trigger("api") {
		s.Success(w, http.StatusAccepted, map[string]string{"status": "already queued"})
		return
	}
	s.Success(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
