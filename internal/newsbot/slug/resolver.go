package slug

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/store"
)

// Lookup is the subset of the store the resolver needs.
type Lookup interface {
	FindBySlug(ctx context.Context, slug string) (*store.Article, error)
	FindBySlugPrefix(ctx context.Context, prefix string, limit int) ([]store.Article, error)
	FindByTitleContains(ctx context.Context, text string) (*store.Article, error)
}

// Strategy names the lookup that produced a match.
type Strategy string

const (
	Exact   Strategy = "exact"
	Partial Strategy = "partial"
	Fuzzy   Strategy = "fuzzy"
)

const (
	partialCandidates = 50
	minTokenPrefix    = 4
)

// Resolver maps slugs back to stored articles.
type Resolver struct {
	lookup Lookup
	logger *slog.Logger
}

// NewResolver creates a resolver over lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, logger: slog.Default()}
}

// Resolve tries an exact match, then a partial match on the first three
// slug tokens, then a title search built from the slug's words. It returns
// store.ErrNotFound when all three miss.
func (r *Resolver) Resolve(ctx context.Context, s string) (*store.Article, Strategy, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", store.ErrNotFound
	}

	a, err := r.lookup.FindBySlug(ctx, s)
	if err == nil {
		return a, Exact, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, "", err
	}

	a, err = r.partial(ctx, s)
	if err == nil {
		return a, Partial, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, "", err
	}

	a, err = r.fuzzy(ctx, s)
	if err == nil {
		return a, Fuzzy, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		r.logger.Debug("slug not resolved", "slug", s)
	}
	return nil, "", err
}

func tokens(s string) []string {
	var out []string
	for _, t := range strings.Split(strings.ToLower(s), "-") {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// partial matches stored slugs sharing the first two tokens and a prefix of
// the third. The candidate with the longest common prefix with the query's
// first three tokens wins; candidates arrive newest first, so ties keep the
// newest.
func (r *Resolver) partial(ctx context.Context, s string) (*store.Article, error) {
	toks := tokens(s)
	if len(toks) == 0 {
		return nil, store.ErrNotFound
	}

	head := toks[:min(2, len(toks))]
	key := strings.Join(toks[:min(3, len(toks))], "-")

	candidates, err := r.lookup.FindBySlugPrefix(ctx, strings.Join(head, "-")+"-", partialCandidates)
	if err != nil {
		return nil, err
	}

	var (
		best      *store.Article
		bestScore int
	)
	for i := range candidates {
		c := &candidates[i]
		ct := tokens(c.Slug)
		if len(toks) >= 3 {
			if len(ct) < 3 {
				continue
			}
			need := min(minTokenPrefix, len(toks[2]))
			if !strings.HasPrefix(ct[2], toks[2][:need]) {
				continue
			}
		}
		if score := commonPrefix(strings.ToLower(c.Slug), key); score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

// fuzzy drops the numeric hash suffix and searches titles for the words.
func (r *Resolver) fuzzy(ctx context.Context, s string) (*store.Article, error) {
	toks := tokens(s)
	if n := len(toks); n > 1 && isHash(toks[n-1]) {
		toks = toks[:n-1]
	}
	if len(toks) == 0 {
		return nil, store.ErrNotFound
	}
	return r.lookup.FindByTitleContains(ctx, strings.Join(toks, " "))
}

func isHash(t string) bool {
	if len(t) != HashLength {
		return false
	}
	for _, c := range t {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
