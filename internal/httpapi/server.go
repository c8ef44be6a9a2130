// Package httpapi exposes the summarization and search use cases over JSON.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
)

// ArticleService is the use case surface the handlers call.
type ArticleService interface {
	Summarize(ctx context.Context, articleURL string) (domain.ArticleDigest, error)
	SearchSource(ctx context.Context, query, source string, maxResults int) ([]domain.Article, error)
	SearchStored(ctx context.Context, query string, topK int) ([]domain.StoredMatch, error)
}

// Server serves the JSON API.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer registers routes and middleware on a fresh mux.
func NewServer(addr string, svc ArticleService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handlers{svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("POST /api/summarize", h.summarize)
	mux.HandleFunc("GET /api/search", h.search)
	mux.HandleFunc("GET /api/articles/search", h.searchStored)

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           chain(mux, recoverer(logger), requestID(logger), cors),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("http: listen on %s: %w", s.server.Addr, err)
	}
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
