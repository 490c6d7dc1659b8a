// Package server serves the conversation engine, the idea gate and the
// market dashboard as a JSON API
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/metrics"
	"github.com/m-mizutani/wrinkle/pkg/usecase/conversation"
	"github.com/m-mizutani/wrinkle/pkg/usecase/market"
	"github.com/m-mizutani/wrinkle/pkg/usecase/validation"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
)

const shutdownTimeout = 10 * time.Second

// Server holds the API dependencies
type Server struct {
	manager   *conversation.Manager
	gate      *validation.Orchestrator
	dashboard *market.Dashboard
	metrics   *metrics.Metrics
}

// Option is a functional option for Server
type Option func(*Server)

// WithDashboard enables POST /api/market
func WithDashboard(d *market.Dashboard) Option {
	return func(s *Server) {
		s.dashboard = d
	}
}

// WithMetrics enables GET /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func New(manager *conversation.Manager, gate *validation.Orchestrator, opts ...Option) *Server {
	s := &Server{
		manager: manager,
		gate:    gate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds all routes to mux
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Sessions
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("PUT /api/sessions/{id}/name", s.handleRename)
	mux.HandleFunc("PUT /api/sessions/{id}/mode", s.handleSetMode)
	mux.HandleFunc("PUT /api/sessions/{id}/persona", s.handleSetPersona)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleReset)
	// Turns
	mux.HandleFunc("POST /api/sessions/{id}/turns", s.handleSubmit)
	// Gate and dashboard
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("POST /api/market", s.handleMarket)
}

// Handler returns the routed handler wrapped with request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return withLogging(mux)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return goerr.Wrap(err, "http server failed", goerr.V("addr", addr))
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return goerr.Wrap(err, "failed to shut down http server")
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		logger := logging.From(r.Context()).With("method", r.Method, "path", r.URL.Path)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(logging.With(r.Context(), logger)))

		logger.Info("http request", "status", rec.status, "duration", time.Since(started))
	})
}
