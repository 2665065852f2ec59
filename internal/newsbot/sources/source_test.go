package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeSource struct {
	name     string
	articles []RawArticle
	err      error
	delay    time.Duration
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchByCategory(ctx context.Context, category string) ([]RawArticle, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.articles, f.err
}

func TestRegistry_FetchAll_AbsorbsFailures(t *testing.T) {
	reg := NewRegistry(50 * time.Millisecond)
	reg.Register(&fakeSource{name: "a", articles: []RawArticle{{Title: "one", URL: "https://a/1"}}})
	reg.Register(&fakeSource{name: "slow", delay: 2 * time.Second, articles: []RawArticle{{Title: "late"}}})
	reg.Register(&fakeSource{name: "broken", err: errors.New("boom")})
	reg.Register(&fakeSource{name: "nokey", err: ErrMissingAPIKey})
	reg.Register(&fakeSource{name: "b", articles: []RawArticle{{Title: "two", URL: "https://b/2"}, {Title: "three", URL: "https://b/3"}}})

	start := time.Now()
	got := reg.FetchAll(context.Background(), "technology")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("slow provider blocked the fetch for %s", elapsed)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	// registration order is preserved
	if got[0].Title != "one" || got[1].Title != "two" || got[2].Title != "three" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestRegistry_FetchAll_Empty(t *testing.T) {
	reg := NewRegistry(0)
	if got := reg.FetchAll(context.Background(), "general"); len(got) != 0 {
		t.Fatalf("expected no articles, got %d", len(got))
	}
	reg.Register(&fakeSource{name: "broken", err: errors.New("boom")})
	if got := reg.FetchAll(context.Background(), "general"); len(got) != 0 {
		t.Fatalf("expected no articles, got %d", len(got))
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "broken" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestNewsAPISource_FetchByCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("category") != "technology" {
			t.Errorf("unexpected category %q", r.URL.Query().Get("category"))
		}
		w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"Verge"},"author":"Jane","title":"Chip <b>launch</b>","description":"New chip","url":"https://x/1",
			 "urlToImage":"//img.example.com/1.jpg","publishedAt":"2024-05-01T10:00:00Z","content":"Body text here [+1234 chars]"},
			{"source":{"name":"x"},"title":"[Removed]","url":"https://x/2"}
		]}`))
	}))
	defer srv.Close()

	src := NewNewsAPISource(ProviderConfig{APIKey: "k", BaseURL: srv.URL})
	got, err := src.FetchByCategory(context.Background(), "technology")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 article, got %d", len(got))
	}
	a := got[0]
	if a.Title != "Chip launch" {
		t.Errorf("expected markup stripped, got %q", a.Title)
	}
	if a.ImageURL != "https://img.example.com/1.jpg" {
		t.Errorf("unexpected image %q", a.ImageURL)
	}
	if a.Content != "Body text here" {
		t.Errorf("expected truncation marker removed, got %q", a.Content)
	}
	if a.Source != "NewsAPI" || a.Author != "Jane" {
		t.Errorf("unexpected source/author %q/%q", a.Source, a.Author)
	}
	if !a.PublishedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %s", a.PublishedAt)
	}
}

func TestAPISources_MissingKey(t *testing.T) {
	for _, src := range []Source{
		NewNewsAPISource(ProviderConfig{}),
		NewGNewsSource(ProviderConfig{}),
		NewMediastackSource(ProviderConfig{}),
		NewNewsDataSource(ProviderConfig{}),
	} {
		if _, err := src.FetchByCategory(context.Background(), "general"); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("%s: expected ErrMissingAPIKey, got %v", src.Name(), err)
		}
	}
}

func TestGNewsSource_MapsPolitics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("topic") != "nation" {
			t.Errorf("expected nation topic, got %q", r.URL.Query().Get("topic"))
		}
		w.Write([]byte(`{"articles":[{"title":"Vote","description":"d","content":"c","url":"https://g/1","image":"https://g/i.png","publishedAt":"2024-05-01T10:00:00Z","source":{"name":"G"}}]}`))
	}))
	defer srv.Close()

	got, err := NewGNewsSource(ProviderConfig{APIKey: "k", BaseURL: srv.URL}).FetchByCategory(context.Background(), "politics")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ImageURL != "https://g/i.png" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestMediastackSource_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":"invalid_access_key","message":"bad key"}}`))
	}))
	defer srv.Close()

	_, err := NewMediastackSource(ProviderConfig{APIKey: "k", BaseURL: srv.URL}).FetchByCategory(context.Background(), "sports")
	if err == nil || !strings.Contains(err.Error(), "invalid_access_key") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNewsDataSource_FetchByCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("category") != "top" {
			t.Errorf("expected general mapped to top, got %q", r.URL.Query().Get("category"))
		}
		w.Write([]byte(`{"status":"success","results":[{"title":"T","link":"https://n/1","creator":["A","B"],
			"description":"D","content":"ONLY AVAILABLE IN PAID PLANS","pubDate":"2024-05-01 10:00:00","image_url":"https://n/i.jpg"}]}`))
	}))
	defer srv.Close()

	got, err := NewNewsDataSource(ProviderConfig{APIKey: "k", BaseURL: srv.URL}).FetchByCategory(context.Background(), "general")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 article, got %d", len(got))
	}
	if got[0].Content != "" || got[0].Author != "A, B" || got[0].PublishedAt.IsZero() {
		t.Fatalf("unexpected %+v", got[0])
	}
}

func TestAPIClient_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newAPIClient(0)
	c.baseDelay = time.Millisecond
	var out struct{ OK bool }
	if err := c.getJSON(context.Background(), srv.URL, nil, &out); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 || !out.OK {
		t.Fatalf("calls=%d ok=%v", calls, out.OK)
	}
}

func TestAPIClient_NoRetryOnClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	var out struct{}
	err := newAPIClient(0).getJSON(context.Background(), srv.URL, nil, &out)
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

const testFeed = `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel><title>Feed</title>
<item>
  <title>Match report</title>
  <link>https://feed.example.com/match</link>
  <description><![CDATA[<p>Late goal wins it</p>]]></description>
  <pubDate>Wed, 01 May 2024 10:00:00 +0000</pubDate>
  <media:thumbnail url="https://feed.example.com/thumb.jpg"/>
</item>
<item>
  <title></title>
  <link>https://feed.example.com/untitled</link>
</item>
</channel></rss>`

func TestRSSSource_FetchByCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer srv.Close()

	src := NewRSSSource(FeedConfig{Name: "Sports Feed", URL: srv.URL, Category: "sports"})

	got, err := src.FetchByCategory(context.Background(), "sports")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 article, got %d", len(got))
	}
	if got[0].ImageURL != "https://feed.example.com/thumb.jpg" {
		t.Errorf("unexpected image %q", got[0].ImageURL)
	}
	if got[0].Description != "Late goal wins it" {
		t.Errorf("unexpected description %q", got[0].Description)
	}

	other, err := src.FetchByCategory(context.Background(), "business")
	if err != nil || len(other) != 0 {
		t.Fatalf("expected feed to skip other categories, got %d, %v", len(other), err)
	}
}

func TestHackerNewsSource_OnlyTechnology(t *testing.T) {
	got, err := NewHackerNewsSource(5).FetchByCategory(context.Background(), "sports")
	if err != nil || got != nil {
		t.Fatalf("expected nil result for non-technology category, got %v, %v", got, err)
	}
}

func TestParseTime(t *testing.T) {
	tests := []string{
		"2024-05-01T10:00:00Z",
		"2024-05-01T10:00:00+00:00",
		"2024-05-01 10:00:00",
		"Wed, 01 May 2024 10:00:00 +0000",
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for _, s := range tests {
		if got := parseTime(s); !got.Equal(want) {
			t.Errorf("parseTime(%q) = %s, want %s", s, got, want)
		}
	}
	if !parseTime("yesterday").IsZero() {
		t.Error("expected zero time for unparseable input")
	}
}
