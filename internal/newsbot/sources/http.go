package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/RobinCoderZhao/newsdesk/pkg/scraper"
)

const userAgent = "Newsdesk/1.0"

// ProviderConfig holds credentials and limits shared by the API adapters.
type ProviderConfig struct {
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Country           string `yaml:"country"`
	Language          string `yaml:"language"`
}

// apiClient performs rate-limited JSON GETs with retry on transient failures.
type apiClient struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

func newAPIClient(requestsPerMinute int) *apiClient {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &apiClient{
		client:     &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: 3,
		baseDelay:  250 * time.Millisecond,
		logger:     slog.Default(),
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", ErrBadStatus, e.code, e.body)
}

func (e *statusError) Unwrap() error { return ErrBadStatus }

// getJSON decodes the response of GET url into out.
func (c *apiClient) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		lastErr = c.do(ctx, url, headers, out)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) || attempt == c.maxRetries-1 {
			break
		}

		delay := time.Duration(float64(c.baseDelay) * math.Pow(2, float64(attempt)))
		c.logger.Debug("provider request failed, retrying", "attempt", attempt+1, "delay", delay, "error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func (c *apiClient) do(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isRetryable reports rate limits, server errors and network timeouts.
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "connection reset")
}

var truncationMarker = regexp.MustCompile(`\s*\[\+\d+ chars\]\s*$`)

// cleanText strips markup and provider truncation markers from a snippet.
func cleanText(s string) string {
	s = truncationMarker.ReplaceAllString(s, "")
	return scraper.StripHTML(s)
}

// normalizeImage turns protocol-relative image URLs into https URLs.
func normalizeImage(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// parseTime tries the layouts providers are known to emit.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05+00:00",
		"2006-01-02 15:04:05",
		time.RFC1123Z,
		time.RFC1123,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
