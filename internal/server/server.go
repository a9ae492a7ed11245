// Package server provides the HTTP API for FormMind.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/formmind/formmind/internal/agent"
	"github.com/formmind/formmind/internal/config"
	"github.com/formmind/formmind/internal/storage"
)

// Server is the HTTP server for the FormMind API.
type Server struct {
	agent   *agent.Agent
	history storage.History
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. history may be nil.
func NewServer(a *agent.Agent, history storage.History, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		agent:   a,
		history: history,
		config:  cfg,
		logger:  logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/process", s.handleProcess)
	r.Post("/process_multi", s.handleProcessMulti)
	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/api/v1/history", s.handleHistory)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	if dir := s.config.Server.StaticDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				http.ServeFile(w, req, filepath.Join(dir, "index.html"))
			})
			r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
		}
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
