// Package api serves the read-only article API, health and metrics over
// HTTP with gin, plus a manual crawl trigger.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/metrics"
)

// RouterOptions wires the router.
type RouterOptions struct {
	Handler *Handler
	Health  HealthOptions
	// Metrics enables request metrics when set.
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics when set.
	Gatherer prometheus.Gatherer
	Logger   logger.Interface
}

// NewRouter builds the gin engine with the standard middleware chain.
func NewRouter(opts RouterOptions) *gin.Engine {
	router := gin.New()

	router.Use(RecoveryMiddleware(opts.Logger))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(opts.Logger))
	if opts.Metrics != nil {
		router.Use(MetricsMiddleware(opts.Metrics))
	}

	RegisterHealthRoutes(router, opts.Health)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.Handler != nil {
		opts.Handler.RegisterRoutes(router)
	}

	return router
}

// Server is an HTTP server with lifecycle management.
type Server struct {
	server *http.Server
	logger logger.Interface
	config Config
}

// NewServer creates a server for handler.
func NewServer(cfg Config, handler http.Handler, log logger.Interface) *Server {
	cfg.SetDefaults()

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: log.WithComponent("http"),
		config: cfg,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		"address", s.server.Addr,
		"read_timeout", s.server.ReadTimeout,
		"write_timeout", s.server.WriteTimeout,
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", "timeout", s.config.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped gracefully")
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Context cancelled, shutting down")
	}

	//nolint:contextcheck // the parent context is already cancelled
	return s.Shutdown(context.Background())
}
