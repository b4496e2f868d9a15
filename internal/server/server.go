package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"docqa/internal/domain"
)

// Config configures the HTTP server.
type Config struct {
	Host        string
	Port        int
	BearerToken string
	ReadTimeout time.Duration
}

// Server manages the HTTP server and routes.
type Server struct {
	cfg      Config
	svc      domain.QAService
	logger   *zap.Logger
	validate *validator.Validate
	router   *http.ServeMux
	server   *http.Server
}

// New creates a new HTTP server for the given service.
func New(cfg Config, svc domain.QAService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		logger:   logger,
		validate: validator.New(),
	}
	s.router = s.setupRoutes()
	// No write timeout: a request blocks on remote model calls for as long as they take.
	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     s.Handler(),
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	return s.withMiddleware(s.router)
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /api/hackrx/run", s.requireBearer(http.HandlerFunc(s.runHandler)))
	mux.HandleFunc("GET /health", s.healthHandler)
	return mux
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
