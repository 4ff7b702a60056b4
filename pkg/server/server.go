package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/staleserve/staleserve/pkg/engine"
	"github.com/staleserve/staleserve/pkg/events"
)

// Server serves cached artifacts over HTTP and exposes the control
// endpoints for invalidation, events, and metrics.
type Server struct {
	engine      *engine.Engine
	broadcaster *events.Broadcaster
	config      *Config
	httpServer  *http.Server
	logger      *slog.Logger
}

// New creates a Server for the given engine. The broadcaster may be
// nil, in which case /__events responds with 404.
func New(eng *engine.Engine, broadcaster *events.Broadcaster, config *Config) *Server {
	return &Server{
		engine:      eng,
		broadcaster: broadcaster,
		config:      config.withDefaults(),
		logger:      slog.Default().With("component", "server"),
	}
}

// Handler returns the chi router for mounting in external servers.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/__revalidate", s.handleRevalidate)
	r.Get("/metrics", s.metricsHandler().ServeHTTP)
	if s.broadcaster != nil {
		r.Get("/__events", s.broadcaster.HandleWebSocket)
	}
	r.NotFound(s.handleRoute)

	return r
}

func (s *Server) metricsHandler() http.Handler {
	if s.config.Registry != nil {
		return promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// Run starts the server and blocks until SIGINT/SIGTERM or a listener
// error, then shuts down gracefully.
func (s *Server) Run() error {
	if err := s.config.validate(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting connections, drains in-flight requests, and
// waits for background regenerations to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.engine.Flush()

	s.logger.Info("server shutdown complete")
	return nil
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
