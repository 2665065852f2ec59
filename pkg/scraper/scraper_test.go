package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractText_RemovesScripts(t *testing.T) {
	html := `<html><body><script>alert('xss')</script><p>Content</p><style>.foo{}</style></body></html>`
	text := ExtractText(html)
	if strings.Contains(text, "alert") {
		t.Errorf("expected script content to be removed, got: %s", text)
	}
	if strings.Contains(text, ".foo") {
		t.Errorf("expected style content to be removed, got: %s", text)
	}
	if !strings.Contains(text, "Content") {
		t.Errorf("expected 'Content' in output, got: %s", text)
	}
}

func TestExtractText_RemovesNav(t *testing.T) {
	html := `<html><body><nav><a href="/">Home</a></nav><main><p>Main content</p></main><footer>Footer</footer></body></html>`
	text := ExtractText(html)
	if strings.Contains(text, "Home") || strings.Contains(text, "Footer") {
		t.Errorf("expected nav/footer content to be removed, got: %s", text)
	}
	if !strings.Contains(text, "Main content") {
		t.Errorf("expected 'Main content' in output, got: %s", text)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"No   tags here", "No tags here"},
		{"", ""},
		{"Fish &amp; chips", "Fish & chips"},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.input); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	long := strings.Repeat("The council approved the new transit budget after a long debate. ", 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head>
<title>Fallback title</title>
<meta property="og:title" content="Transit budget approved">
<meta property="og:image" content="//cdn.example.com/bus.jpg">
</head><body><nav>menu</nav><article><p>short</p><p>` + long + `</p></article></body></html>`))
	}))
	defer srv.Close()

	page, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL+"/story", nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.Title != "Transit budget approved" {
		t.Errorf("unexpected title %q", page.Title)
	}
	if page.ImageURL != "https://cdn.example.com/bus.jpg" {
		t.Errorf("expected protocol-relative image normalized, got %q", page.ImageURL)
	}
	if !strings.Contains(page.Text, "transit budget") || strings.Contains(page.Text, "short") {
		t.Errorf("unexpected text %q", page.Text)
	}
}

func TestHTTPFetcher_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	opts := DefaultFetchOptions()
	opts.RetryCount = 0
	if _, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL, opts); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestResolveURL(t *testing.T) {
	if got := resolveURL("https://news.example.com/a/b", "/img/x.png"); got != "https://news.example.com/img/x.png" {
		t.Errorf("unexpected %q", got)
	}
}
