package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/pipeline"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/store"
)

const testSecret = "test-secret"

type fakeNews struct {
	articles  []store.Article
	err       error
	refreshed []string
	repaired  int
	bySlug    map[string]store.Article
}

func (f *fakeNews) GetArticles(ctx context.Context, category string) ([]store.Article, error) {
	if category == "weather" {
		return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownCategory, category)
	}
	return f.articles, f.err
}

func (f *fakeNews) ForceRefresh(ctx context.Context, category string) ([]store.Article, error) {
	f.refreshed = append(f.refreshed, category)
	return f.articles, f.err
}

func (f *fakeNews) ResolveBySlug(ctx context.Context, slug string) (*store.Article, error) {
	if a, ok := f.bySlug[slug]; ok {
		return &a, nil
	}
	return nil, pipeline.ErrNotFound
}

func (f *fakeNews) RepairCategories(ctx context.Context) (int, error) {
	return f.repaired, nil
}

func do(t *testing.T, h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListArticles(t *testing.T) {
	news := &fakeNews{articles: []store.Article{{Title: "A", Slug: "a-1", Category: "technology"}}}
	h := NewServer(news, testSecret).Routes()

	rec := do(t, h, http.MethodGet, "/api/articles?category=technology", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var body articlesResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || body.Category != "technology" || body.Degraded {
		t.Fatalf("unexpected body %+v", body)
	}

	if rec := do(t, h, http.MethodGet, "/api/articles?category=weather", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rec.Code)
	}
}

func TestListArticles_StorageDegraded(t *testing.T) {
	news := &fakeNews{
		articles: []store.Article{{Title: "A"}},
		err:      fmt.Errorf("%w: upsert: disk full", pipeline.ErrStorage),
	}
	rec := do(t, NewServer(news, testSecret).Routes(), http.MethodGet, "/api/articles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body articlesResponse
	json.NewDecoder(rec.Body).Decode(&body)
	if !body.Degraded || body.Count != 1 || body.Category != "general" {
		t.Fatalf("unexpected body %+v", body)
	}

	news.err = errors.New("unexpected")
	if rec := do(t, NewServer(news, testSecret).Routes(), http.MethodGet, "/api/articles", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestGetArticle(t *testing.T) {
	news := &fakeNews{bySlug: map[string]store.Article{"hello-12345678": {Title: "Hello"}}}
	h := NewServer(news, testSecret).Routes()

	rec := do(t, h, http.MethodGet, "/api/articles/hello-12345678", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/articles/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRefresh_RequiresAdminToken(t *testing.T) {
	news := &fakeNews{}
	h := NewServer(news, testSecret).Routes()

	if rec := do(t, h, http.MethodPost, "/api/articles/refresh?category=sports", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/articles/refresh?category=sports", "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}

	wrongKey, _ := GenerateToken("other-secret", "ops", time.Hour)
	if rec := do(t, h, http.MethodPost, "/api/articles/refresh?category=sports", wrongKey); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign signature, got %d", rec.Code)
	}

	reader := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             "reader",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	readerToken, _ := reader.SignedString([]byte(testSecret))
	if rec := do(t, h, http.MethodPost, "/api/articles/refresh?category=sports", readerToken); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}

	token, err := GenerateToken(testSecret, "ops", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	rec := do(t, h, http.MethodPost, "/api/articles/refresh?category=sports", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if len(news.refreshed) != 1 || news.refreshed[0] != "sports" {
		t.Fatalf("unexpected refresh calls %v", news.refreshed)
	}
}

func TestRepair(t *testing.T) {
	h := NewServer(&fakeNews{repaired: 3}, testSecret).Routes()
	token, _ := GenerateToken(testSecret, "ops", time.Hour)

	rec := do(t, h, http.MethodPost, "/api/admin/repair", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]int
	json.NewDecoder(rec.Body).Decode(&body)
	if body["repaired"] != 3 {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteEndpointsDisabledWithoutSecret(t *testing.T) {
	h := NewServer(&fakeNews{}, "").Routes()
	if rec := do(t, h, http.MethodPost, "/api/admin/repair", "anything"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if _, err := GenerateToken("", "ops", time.Hour); err == nil {
		t.Fatal("expected error generating token without secret")
	}
}

func TestHealthAndCORS(t *testing.T) {
	s := NewServer(&fakeNews{}, testSecret)
	s.SetAllowedOrigin("http://localhost:3000")
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected CORS header %q", got)
	}
	if rec := do(t, h, http.MethodOptions, "/api/articles", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected preflight 200, got %d", rec.Code)
	}
}
