package api

import (
	"errors"
	"net/http"

	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/pipeline"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/store"
)

type articlesResponse struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Articles []store.Article `json:"articles"`
	Degraded bool            `json:"degraded,omitempty"`
}

func (s *Server) handleListArticles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		articles, err := s.news.GetArticles(r.Context(), category)
		s.respondArticles(w, category, articles, err)
	}
}

func (s *Server) handleRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		s.logger.Info("forced refresh", "category", category, "by", getSubject(r))
		articles, err := s.news.ForceRefresh(r.Context(), category)
		s.respondArticles(w, category, articles, err)
	}
}

// respondArticles maps pipeline results onto HTTP. A storage failure still
// returns the in-memory articles, flagged as degraded.
func (s *Server) respondArticles(w http.ResponseWriter, category string, articles []store.Article, err error) {
	if category == "" {
		category = "general"
	}
	switch {
	case errors.Is(err, pipeline.ErrUnknownCategory):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, pipeline.ErrStorage):
		s.logger.Warn("serving articles without storage", "category", category, "error", err)
	case err != nil:
		s.logger.Error("get articles failed", "category", category, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load articles")
		return
	}
	if articles == nil {
		articles = []store.Article{}
	}
	respondJSON(w, http.StatusOK, articlesResponse{
		Category: category,
		Count:    len(articles),
		Articles: articles,
		Degraded: err != nil,
	})
}

func (s *Server) handleGetArticle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		article, err := s.news.ResolveBySlug(r.Context(), slug)
		if errors.Is(err, pipeline.ErrNotFound) {
			respondError(w, http.StatusNotFound, "article not found")
			return
		}
		if err != nil {
			s.logger.Error("resolve slug failed", "slug", slug, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to load article")
			return
		}
		respondJSON(w, http.StatusOK, article)
	}
}

func (s *Server) handleRepair() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.news.RepairCategories(r.Context())
		if err != nil {
			s.logger.Error("repair categories failed", "error", err, "repaired", n)
			respondError(w, http.StatusInternalServerError, "repair failed")
			return
		}
		respondJSON(w, http.StatusOK, map[string]int{"repaired": n})
	}
}
