// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes stored evaluation results over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/specgrade/internal/fixture"
	"github.com/pdiddy/specgrade/internal/observability"
	"github.com/pdiddy/specgrade/internal/store"
	"github.com/pdiddy/specgrade/pkg/types"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Options configures a Server. Store is required.
type Options struct {
	Store   store.ResultStore
	Targets types.Targets

	// Metrics, when set, is served at /metrics.
	Metrics *observability.Metrics

	Logger *slog.Logger
}

// Server is a read-only HTTP view over a result store.
type Server struct {
	store   store.ResultStore
	targets types.Targets
	metrics *observability.Metrics
	log     *slog.Logger
	router  *chi.Mux
}

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: server requires a result store", types.ErrConfiguration)
	}
	s := &Server{
		store:   opts.Store,
		targets: opts.Targets,
		metrics: opts.Metrics,
		log:     opts.Logger,
		router:  chi.NewRouter(),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(requestTimeout))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/summary", s.handleSummary)
	s.router.Route("/results", func(r chi.Router) {
		r.Get("/", s.handleListResults)
		r.Get("/{endpointID}", s.handleResult)
		r.Get("/{endpointID}/generated", s.handleGenerated)
	})
	if s.metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving results", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListResults(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []types.ResultRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id, ok := s.endpointID(w, r)
	if !ok {
		return
	}
	rec, err := s.store.LoadResult(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGenerated(w http.ResponseWriter, r *http.Request) {
	id, ok := s.endpointID(w, r)
	if !ok {
		return
	}
	doc, err := s.store.LoadGenerated(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	export, err := store.BuildExport(r.Context(), s.store, s.targets)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, export.Summary)
}

func (s *Server) endpointID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "endpointID")
	if !fixture.ValidEndpointID(id) {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid endpoint id %q", id)})
		return "", false
	}
	return id, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.log.Error("store request failed", "error", err)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encoding response failed", "error", err)
	}
}
