// Package httpserver wires the tracker handlers into an http.Server.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/logfields"
	"git.home.luguber.info/inful/watertracker/internal/server/handlers"
	smw "git.home.luguber.info/inful/watertracker/internal/server/middleware"
)

// Options configures the server.
type Options struct {
	Addr    string
	Counter handlers.Counter
	// History is nil when history recording is disabled.
	History handlers.History
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server serves the tracker API.
type Server struct {
	opts Options
	srv  *http.Server

	mu   sync.Mutex
	addr string
}

// New constructs a new HTTP server wiring instance.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{opts: opts}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	logger := s.opts.Logger
	api := handlers.NewAPIHandlers(s.opts.Counter, s.opts.History, logger)
	monitoring := handlers.NewMonitoringHandlers(s.opts.Counter, time.Now(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tap", api.HandleTap)
	mux.HandleFunc("POST /api/reset", api.HandleReset)
	mux.HandleFunc("GET /api/state", api.HandleState)
	mux.HandleFunc("POST /api/surfaces/refresh", api.HandleRefresh)
	mux.HandleFunc("PUT /api/surfaces/{id}", api.HandleActivateSurface)
	mux.HandleFunc("DELETE /api/surfaces/{id}", api.HandleRemoveSurface)
	mux.HandleFunc("GET /api/surfaces/{id}", api.HandleGetSurface)
	mux.HandleFunc("GET /api/history", api.HandleHistory)
	mux.HandleFunc("GET /api/history/days", api.HandleHistoryDays)
	mux.HandleFunc("GET /health", monitoring.HandleHealthCheck)
	mux.HandleFunc("GET /healthz", monitoring.HandleHealthCheck) // Kubernetes-style alias
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics)
	}

	return smw.Chain(logger, derrors.NewHTTPErrorAdapter(logger))(mux)
}

// Start binds the listen address and serves in the background. Binding
// happens synchronously so an address in use fails fast.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return derrors.DaemonError(fmt.Sprintf("http listen on %s failed", s.opts.Addr)).WithContext("error", err.Error())
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.Logger.Error("HTTP server error", logfields.Error(err))
		}
	}()
	s.opts.Logger.Info("HTTP server started", slog.String("addr", s.Addr()))
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.opts.Logger.Info("HTTP server stopped")
	return nil
}
