// Package server provides the query service HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/retrieval"
	"go.uber.org/zap"
)

// QueryEngine answers queries; *retrieval.Engine implements it.
type QueryEngine interface {
	Answer(ctx context.Context, query string) (*retrieval.Answer, error)
	Stats() retrieval.Stats
}

// Server is the HTTP server for the query service.
type Server struct {
	engine     QueryEngine
	config     *config.ServerConfig
	logger     *zap.Logger
	bundlePath string
	server     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithBundlePath lets GET /status report the bundle location and disk usage.
func WithBundlePath(path string) Option {
	return func(s *Server) { s.bundlePath = path }
}

// NewServer creates a server around an already loaded engine.
func NewServer(engine QueryEngine, cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/query", s.handleQuery)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting query service", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
