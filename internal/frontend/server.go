// Package frontend serves the single-page question form and relays each
// question to the query service.
package frontend

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/pkg/utils"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Query    string
	Answer   string
	Answered bool
}

// Asker sends a question to the query service.
type Asker interface {
	Ask(ctx context.Context, query string) (string, error)
}

// Server is the front-end HTTP server.
type Server struct {
	client Asker
	config *config.FrontendConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates the front-end server. client is usually a *Client for the configured endpoint.
func NewServer(client Asker, cfg *config.FrontendConfig, logger *zap.Logger) *Server {
	return &Server{client: client, config: cfg, logger: utils.LoggerOrNop(logger)}
}

// Handler returns the router serving GET / and POST /.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleIndex)
	r.Post("/", s.handleAsk)
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, pageData{})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	query := r.FormValue("query")
	answer, err := s.client.Ask(r.Context(), query)
	if err != nil {
		s.logger.Warn("query service request failed", zap.Error(err))
		answer = fmt.Sprintf("Error contacting the RAG service: %v", err)
	}
	s.render(w, pageData{Query: query, Answer: answer, Answered: true})
}

func (s *Server) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting front-end", zap.String("addr", addr), zap.String("rag_endpoint", s.config.RAGEndpoint))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
