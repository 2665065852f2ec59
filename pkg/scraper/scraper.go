// Package scraper provides article page fetching and HTML cleanup utilities.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// FetchOptions configures the behavior of a Fetch call.
type FetchOptions struct {
	UserAgent  string            `yaml:"user_agent"`
	Timeout    time.Duration     `yaml:"timeout"`
	RetryCount int               `yaml:"retry_count"`
	Headers    map[string]string `yaml:"headers"`
	MaxBytes   int64             `yaml:"max_bytes"`
}

// DefaultFetchOptions returns sensible defaults for fetching.
func DefaultFetchOptions() *FetchOptions {
	return &FetchOptions{
		UserAgent:  "Newsdesk/1.0 (compatible; Bot; +https://github.com/RobinCoderZhao/newsdesk)",
		Timeout:    10 * time.Second,
		RetryCount: 1,
		MaxBytes:   4 << 20,
	}
}

// Page is what we can recover from an article page.
type Page struct {
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	ImageURL  string        `json:"image_url"`
	Text      string        `json:"text"`
	FetchedAt time.Time     `json:"fetched_at"`
	Duration  time.Duration `json:"duration"`
}

// Fetcher defines the interface for fetching article pages.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts *FetchOptions) (*Page, error)
}

// HTTPFetcher implements Fetcher using standard HTTP and goquery.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a new HTTP-based fetcher.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: 15 * time.Second}}
}

// NewHTTPFetcherWithClient uses the given client (tests, custom transports).
func NewHTTPFetcherWithClient(c *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: c}
}

// Fetch retrieves a URL and extracts title, representative image and body text.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string, opts *FetchOptions) (*Page, error) {
	if opts == nil {
		opts = DefaultFetchOptions()
	}
	start := time.Now()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 0; attempt <= opts.RetryCount; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", opts.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}

		resp, lastErr = f.client.Do(req)
		if lastErr == nil {
			break
		}
		if attempt < opts.RetryCount {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, lastErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if opts.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, opts.MaxBytes)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	page := ParseDocument(doc, pageURL)
	page.FetchedAt = time.Now()
	page.Duration = time.Since(start)
	return page, nil
}

// ParseDocument extracts the page fields from an already parsed document.
func ParseDocument(doc *goquery.Document, pageURL string) *Page {
	page := &Page{URL: pageURL}

	page.Title = strings.TrimSpace(metaContent(doc, "og:title"))
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	for _, key := range []string{"og:image", "og:image:url", "twitter:image", "twitter:image:src"} {
		if img := strings.TrimSpace(metaContent(doc, key)); img != "" {
			page.ImageURL = resolveURL(pageURL, img)
			break
		}
	}

	page.Text = articleText(doc)
	return page
}

func metaContent(doc *goquery.Document, key string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key)).First()
	v, _ := sel.Attr("content")
	return v
}

// articleText joins substantial paragraphs, preferring an <article> container.
func articleText(doc *goquery.Document) string {
	selectors := []string{"article p", "main p", "[itemprop=articleBody] p", ".article-body p", "p"}

	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.Join(strings.Fields(s.Text()), " ")
			if len(text) > 40 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}

func resolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// ExtractText converts HTML to clean structured text, removing navigation/footer/scripts.
func ExtractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var sb strings.Builder
	extractTextFromNode(doc, &sb, map[string]bool{
		"script": true, "style": true, "nav": true, "footer": true,
		"header": true, "noscript": true, "svg": true, "iframe": true,
	})
	return strings.TrimSpace(sb.String())
}

// StripHTML reduces an HTML snippet (feed description, API summary) to a
// single line of plain text.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(ExtractText(s)), " ")
}

func extractTextFromNode(n *html.Node, sb *strings.Builder, skipTags map[string]bool) {
	if n.Type == html.ElementNode {
		if skipTags[n.Data] {
			return
		}
		switch n.Data {
		case "br", "p", "div", "tr", "li":
			sb.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractTextFromNode(c, sb, skipTags)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "p", "li", "tr":
			sb.WriteString("\n")
		}
	}
}
