// Package api exposes the question-answering pipeline over HTTP as a small
// JSON API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern-ai/lectern/internal/rag"
)

// QueryService is the slice of the RAG system the API depends on.
type QueryService interface {
	Answer(ctx context.Context, query, sessionID string) (rag.Reply, error)
	CourseAnalytics(ctx context.Context) (rag.Analytics, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger *slog.Logger
	System QueryService  // Required
	Pool   *pgxpool.Pool // Optional: nil disables database checks in /ready
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.System == nil {
		return nil, errors.New("query service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	qh := &queryHandler{system: cfg.System, logger: logger}
	ch := &coursesHandler{system: cfg.System, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", qh.query)
	mux.HandleFunc("GET /api/courses", ch.courses)

	// Middleware stack (outermost first): Recovery → Logging → Routes.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
