// Package api provides the JSON HTTP API over the news pipeline.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/store"
)

// NewsService is the pipeline surface the API exposes.
type NewsService interface {
	GetArticles(ctx context.Context, category string) ([]store.Article, error)
	ForceRefresh(ctx context.Context, category string) ([]store.Article, error)
	ResolveBySlug(ctx context.Context, slug string) (*store.Article, error)
	RepairCategories(ctx context.Context) (int, error)
}

// Server holds the dependencies for the API.
type Server struct {
	news          NewsService
	jwtSecret     []byte
	allowedOrigin string
	logger        *slog.Logger
}

// NewServer creates a new API Server instance. Write endpoints are
// disabled when jwtSecret is empty.
func NewServer(news NewsService, jwtSecret string) *Server {
	return &Server{
		news:      news,
		jwtSecret: []byte(jwtSecret),
		logger:    slog.Default(),
	}
}

// SetAllowedOrigin enables CORS for a single browser origin.
func (s *Server) SetAllowedOrigin(origin string) {
	s.allowedOrigin = origin
}

// Routes returns the configured http.Handler for the API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth())

	// Public
	mux.HandleFunc("GET /api/articles", s.handleListArticles())
	mux.HandleFunc("GET /api/articles/{slug}", s.handleGetArticle())

	// Protected (require JWT)
	mux.Handle("POST /api/articles/refresh", s.requireAuthHandler(http.HandlerFunc(s.handleRefresh())))
	mux.Handle("POST /api/admin/repair", s.requireAuthHandler(http.HandlerFunc(s.handleRepair())))

	return s.corsMiddleware(s.logRequests(mux))
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// --- Middleware ---

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
