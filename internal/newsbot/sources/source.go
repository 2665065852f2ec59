// Package sources defines the provider adapter interface, the adapters for
// each supported news API and feed, and the concurrent fetch orchestrator.
package sources

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single adapter call.
const DefaultTimeout = 8 * time.Second

var (
	// ErrMissingAPIKey is returned by adapters configured without credentials.
	ErrMissingAPIKey = errors.New("missing api key")
	// ErrBadStatus is wrapped with the HTTP status of a non-2xx provider response.
	ErrBadStatus = errors.New("unexpected status")
)

// RawArticle is one provider's view of a story. It is never persisted.
type RawArticle struct {
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content,omitempty"`
}

// Source is the interface that all news providers must implement.
type Source interface {
	// Name returns the human-readable name of the provider.
	Name() string

	// FetchByCategory retrieves articles for a category label.
	FetchByCategory(ctx context.Context, category string) ([]RawArticle, error)
}

// Registry holds the configured providers and fans fetches out across them.
type Registry struct {
	sources []Source
	timeout time.Duration
	logger  *slog.Logger
}

// NewRegistry creates a registry whose adapters are each bounded by timeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{timeout: timeout, logger: slog.Default()}
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	r.sources = append(r.sources, s)
}

// Names lists registered providers in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int { return len(r.sources) }

// FetchAll queries every provider concurrently and waits for all of them.
// A provider that fails or exceeds the timeout contributes nothing. The
// result is flattened in registration order; an empty result is not an error.
func (r *Registry) FetchAll(ctx context.Context, category string) []RawArticle {
	type result struct {
		index    int
		articles []RawArticle
	}

	ch := make(chan result, len(r.sources))
	for i, s := range r.sources {
		go func(i int, src Source) {
			ch <- result{index: i, articles: r.fetchOne(ctx, src, category)}
		}(i, s)
	}

	perSource := make([][]RawArticle, len(r.sources))
	for range r.sources {
		res := <-ch
		perSource[res.index] = res.articles
	}

	var all []RawArticle
	for _, articles := range perSource {
		all = append(all, articles...)
	}
	r.logger.Info("fetch completed", "category", category, "providers", len(r.sources), "articles", len(all))
	return all
}

// fetchOne races a single adapter against the timeout. The adapter goroutine
// writes into a buffered channel so it can finish after being abandoned.
func (r *Registry) fetchOne(ctx context.Context, src Source, category string) []RawArticle {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		articles []RawArticle
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		articles, err := src.FetchByCategory(ctx, category)
		done <- outcome{articles, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			r.logFailure(src.Name(), category, out.err)
			return nil
		}
		return out.articles
	case <-ctx.Done():
		r.logFailure(src.Name(), category, ctx.Err())
		return nil
	}
}

func (r *Registry) logFailure(provider, category string, err error) {
	attrs := []any{"provider", provider, "category", category, "at", time.Now().UTC(), "error", err}
	if errors.Is(err, ErrMissingAPIKey) {
		r.logger.Debug("provider skipped", attrs...)
		return
	}
	r.logger.Warn("provider failed", attrs...)
}
