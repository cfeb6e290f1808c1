// Package collector provides a development OpenLineage collector: an HTTP server that
// accepts run events, validates them and keeps them in memory for inspection.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/correlator-io/retail-lineage/internal/collector/middleware"
	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

// Server is the collector HTTP server.
type Server struct {
	httpServer      *http.Server
	handler         http.Handler
	logger          *slog.Logger
	config          *ServerConfig
	startTime       time.Time
	store           *MemoryStore
	validator       *openlineage.Validator
	keyStore        middleware.KeyStore
	rateLimiter     middleware.RateLimiter
	publicEndpoints *middleware.PublicEndpoints
}

// NewServer creates a collector with structured logging and the middleware stack.
//
// Parameters:
//   - cfg: server configuration
//   - store: event store
//   - keyStore: API key store (nil disables authentication)
//   - rateLimiter: rate limiter (nil disables rate limiting)
func NewServer(
	cfg *ServerConfig,
	store *MemoryStore,
	keyStore middleware.KeyStore,
	rateLimiter middleware.RateLimiter,
) *Server {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	return newServer(cfg, store, keyStore, rateLimiter, logger)
}

func newServer(
	cfg *ServerConfig,
	store *MemoryStore,
	keyStore middleware.KeyStore,
	rateLimiter middleware.RateLimiter,
	logger *slog.Logger,
) *Server {
	mux := http.NewServeMux()

	server := &Server{
		logger:          logger,
		config:          cfg,
		store:           store,
		validator:       openlineage.NewValidator(),
		keyStore:        keyStore,
		rateLimiter:     rateLimiter,
		publicEndpoints: middleware.NewPublicEndpoints(),
	}

	server.setupRoutes(mux)

	if keyStore != nil {
		logger.Info("API key authentication enabled")
	} else {
		logger.Warn("No API keys configured - authentication disabled")
	}

	if rateLimiter != nil {
		logger.Info("Rate limiting middleware enabled")
	} else {
		logger.Warn("RateLimiter not configured - rate limiting middleware disabled")
	}

	// Middleware executes top to bottom. Rate limiting runs after authentication so
	// that authenticated clients get their own bucket.
	server.handler = middleware.Apply(mux,
		middleware.WithCorrelationID(),
		middleware.WithRecovery(logger),
		middleware.WithAuth(keyStore, server.publicEndpoints, logger),
		middleware.WithRateLimit(rateLimiter, logger),
		middleware.WithRequestLogger(logger),
	)

	server.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      server.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server
}

// Handler returns the collector's HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store returns the collector's event store.
func (s *Server) Store() *MemoryStore {
	return s.store
}

// Start starts the HTTP server and blocks until ctx is done, SIGINT or SIGTERM is
// received, or the server fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done or a shutdown signal arrives,
// then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.startTime = time.Now()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("Starting lineage collector",
			slog.String("address", listener.Addr().String()),
			slog.Duration("read_timeout", s.config.ReadTimeout),
			slog.Duration("write_timeout", s.config.WriteTimeout),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
		)

		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server failed",
				slog.String("address", listener.Addr().String()),
				slog.String("error", err.Error()),
			)

			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return errors.Join(err, s.closeDependencies())
	case <-ctx.Done():
		s.logger.Info("Received shutdown signal")

		return s.shutdown()
	}
}

// shutdown gracefully shuts down the server and closes its dependencies.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Initiating server shutdown",
		slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
	)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown failed",
			slog.String("error", err.Error()),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
		)

		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if err := s.closeDependencies(); err != nil {
		return err
	}

	s.logger.Info("Server shutdown completed successfully",
		slog.Int("runs", len(s.store.Runs())),
		slog.Int("events", s.store.EventCount()),
	)

	return nil
}

// closeDependencies stops the rate limiter's cleanup goroutine.
func (s *Server) closeDependencies() error {
	limiter, ok := s.rateLimiter.(io.Closer)
	if !ok {
		return nil
	}

	if err := limiter.Close(); err != nil {
		s.logger.Error("Failed to close rate limiter", slog.String("error", err.Error()))

		return fmt.Errorf("failed to close rate limiter: %w", err)
	}

	s.logger.Info("Rate limiter closed successfully")

	return nil
}
