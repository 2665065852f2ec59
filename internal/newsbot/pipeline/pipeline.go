// Package pipeline turns provider fetches into cached, stored canonical
// articles and serves category listings and slug lookups.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/cache"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/classify"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/dedup"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/slug"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/sources"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/store"
	"github.com/RobinCoderZhao/newsdesk/pkg/scraper"
)

var (
	// ErrUnknownCategory is returned for labels outside the fixed label set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNotFound is returned when a slug cannot be resolved.
	ErrNotFound = store.ErrNotFound
	// ErrStorage wraps read/write failures of the storage gateway.
	ErrStorage = errors.New("storage failure")
)

const repairBatch = 100

// Fetcher fans a category fetch out to the providers.
type Fetcher interface {
	FetchAll(ctx context.Context, category string) []sources.RawArticle
}

// Gateway is the durable storage the pipeline reads and writes.
type Gateway interface {
	slug.Lookup
	QueryRecent(ctx context.Context, categoryID int64, limit int) ([]store.Article, error)
	Upsert(ctx context.Context, articles []store.Article) (int, error)
	GetOrCreateCategoryID(ctx context.Context, name string) (int64, error)
	ArticlesMissingCategory(ctx context.Context, limit int) ([]store.Article, error)
	UpdateCategory(ctx context.Context, articleID, categoryID int64) error
}

// Options tunes the pipeline.
type Options struct {
	SimilarityThreshold float64
	Freshness           time.Duration
	QueryLimit          int
	Enrich              bool
	EnrichConcurrency   int
	RefreshTimeout      time.Duration
}

// DefaultOptions returns the reference settings.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: dedup.DefaultThreshold,
		Freshness:           60 * time.Minute,
		QueryLimit:          50,
		EnrichConcurrency:   4,
		RefreshTimeout:      2 * time.Minute,
	}
}

// Pipeline owns the cache and coordinates fetch, dedup, classification,
// slugging and storage.
type Pipeline struct {
	fetcher  Fetcher
	gateway  Gateway
	cache    *cache.Cache
	resolver *slug.Resolver
	enricher scraper.Fetcher
	opts     Options
	group    singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a pipeline. Zero-valued options fall back to DefaultOptions.
func New(fetcher Fetcher, gateway Gateway, c *cache.Cache, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = def.SimilarityThreshold
	}
	if opts.Freshness <= 0 {
		opts.Freshness = def.Freshness
	}
	if opts.QueryLimit <= 0 {
		opts.QueryLimit = def.QueryLimit
	}
	if opts.EnrichConcurrency <= 0 {
		opts.EnrichConcurrency = def.EnrichConcurrency
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = def.RefreshTimeout
	}
	if c == nil {
		c = cache.New(cache.DefaultCapacity, cache.DefaultTTL)
	}
	return &Pipeline{
		fetcher:  fetcher,
		gateway:  gateway,
		cache:    c,
		resolver: slug.NewResolver(gateway),
		opts:     opts,
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// SetEnricher enables page scraping for articles missing an image or body.
func (p *Pipeline) SetEnricher(f scraper.Fetcher) {
	p.enricher = f
}

// SetClock overrides the clock used for storage freshness checks.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// NormalizeCategory lowercases a label and checks it against the label set.
func NormalizeCategory(category string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		c = classify.General
	}
	if !classify.Valid(c) {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return c, nil
}

// GetArticles returns the newest articles for category. A cached listing is
// returned without touching storage or providers; otherwise stored articles
// are used while fresh, and providers are queried when they are not.
//
// When storage fails the merged articles are still returned together with
// an error wrapping ErrStorage, and nothing is cached.
func (p *Pipeline) GetArticles(ctx context.Context, category string) ([]store.Article, error) {
	category, err := NormalizeCategory(category)
	if err != nil {
		return nil, err
	}
	if articles, ok := p.cache.Get(category); ok {
		return articles, nil
	}
	return p.refreshShared(ctx, category, false)
}

// ForceRefresh drops the cached listing and re-fetches from providers
// regardless of storage freshness.
func (p *Pipeline) ForceRefresh(ctx context.Context, category string) ([]store.Article, error) {
	category, err := NormalizeCategory(category)
	if err != nil {
		return nil, err
	}
	p.cache.Invalidate(category)
	return p.refreshShared(ctx, category, true)
}

// ResolveBySlug finds a stored article by exact, partial or fuzzy slug match.
func (p *Pipeline) ResolveBySlug(ctx context.Context, s string) (*store.Article, error) {
	a, strategy, err := p.resolver.Resolve(ctx, s)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: resolve %s: %w", ErrStorage, s, err)
	}
	if strategy != slug.Exact {
		p.logger.Debug("slug resolved by fallback", "slug", s, "strategy", strategy, "resolved", a.Slug)
	}
	return a, nil
}

// ClassifyCategory returns the keyword-scored label for an article.
func (p *Pipeline) ClassifyCategory(a store.Article) string {
	return classify.Classify(a.Title, a.Description, a.Content)
}

// RepairCategories assigns a category to every stored article lacking one
// and returns how many were updated.
func (p *Pipeline) RepairCategories(ctx context.Context) (int, error) {
	ids := make(map[string]int64)
	repaired := 0
	for {
		batch, err := p.gateway.ArticlesMissingCategory(ctx, repairBatch)
		if err != nil {
			return repaired, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, a := range batch {
			label := p.ClassifyCategory(a)
			id, err := p.categoryID(ctx, ids, label)
			if err != nil {
				return repaired, err
			}
			if err := p.gateway.UpdateCategory(ctx, a.ID, id); err != nil {
				return repaired, fmt.Errorf("%w: %w", ErrStorage, err)
			}
			repaired++
		}
	}
	if repaired > 0 {
		p.logger.Info("categories repaired", "count", repaired)
	}
	return repaired, nil
}

type refreshResult struct {
	articles []store.Article
	err      error
}

// refreshShared coalesces concurrent refreshes of the same category. The
// shared refresh runs detached from any single caller's cancellation, bounded
// by RefreshTimeout; each caller stops waiting when its own ctx is done.
func (p *Pipeline) refreshShared(ctx context.Context, category string, force bool) ([]store.Article, error) {
	key := category
	if force {
		key = "force:" + category
	}
	ch := p.group.DoChan(key, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.RefreshTimeout)
		defer cancel()
		articles, err := p.refresh(rctx, category, force)
		return refreshResult{articles, err}, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		res := r.Val.(refreshResult)
		return res.articles, res.err
	}
}

func (p *Pipeline) refresh(ctx context.Context, category string, force bool) ([]store.Article, error) {
	ids := make(map[string]int64)

	var listID int64
	if category != classify.General {
		id, err := p.categoryID(ctx, ids, category)
		if err != nil {
			p.logStorageFailure(category, "resolve category", err)
			return p.build(ctx, category, p.fetchAndMerge(ctx, category), ids), err
		}
		listID = id
	}

	if !force {
		stored, err := p.gateway.QueryRecent(ctx, listID, p.opts.QueryLimit)
		if err != nil {
			p.logStorageFailure(category, "query recent", err)
		} else if p.fresh(stored) {
			p.cache.Set(category, stored)
			return stored, nil
		}
	}

	articles := p.build(ctx, category, p.fetchAndMerge(ctx, category), ids)
	if len(articles) > 0 {
		if _, err := p.gateway.Upsert(ctx, articles); err != nil {
			p.logStorageFailure(category, "upsert", err)
			return articles, fmt.Errorf("%w: upsert %s: %w", ErrStorage, category, err)
		}
	}

	stored, err := p.gateway.QueryRecent(ctx, listID, p.opts.QueryLimit)
	if err != nil {
		p.logStorageFailure(category, "re-read", err)
		return articles, fmt.Errorf("%w: re-read %s: %w", ErrStorage, category, err)
	}
	p.cache.Set(category, stored)
	return stored, nil
}

// build classifies and slugs merged articles. A specific category request
// keeps its label; a general request takes the classifier's label.
func (p *Pipeline) build(ctx context.Context, category string, merged []dedup.Canonical, ids map[string]int64) []store.Article {
	articles := make([]store.Article, 0, len(merged))
	for _, m := range merged {
		label := classify.Classify(m.Title, m.Description, m.Content)
		if category != classify.General && label != category {
			p.logger.Debug("classifier disagrees with requested category",
				"category", category, "classified", label, "url", m.URL)
			label = category
		}
		a := store.Article{
			URL:         m.URL,
			Slug:        slug.Generate(m.Title, m.URL),
			Category:    label,
			Title:       m.Title,
			Description: m.Description,
			Content:     m.Content,
			ImageURL:    m.ImageURL,
			Source:      m.Source,
			Author:      m.Author,
			PublishedAt: m.PublishedAt,
		}
		if id, err := p.categoryID(ctx, ids, label); err == nil {
			a.CategoryID = id
		}
		articles = append(articles, a)
	}
	return articles
}

// fetchAndMerge runs providers, groups duplicates and returns complete
// canonical articles newest-first.
func (p *Pipeline) fetchAndMerge(ctx context.Context, category string) []dedup.Canonical {
	raw := p.fetcher.FetchAll(ctx, category)
	clusters := dedup.Group(raw, p.opts.SimilarityThreshold)
	merged := dedup.MergeAll(clusters)

	if p.opts.Enrich && p.enricher != nil {
		p.enrich(ctx, merged)
	}

	kept, dropped := dedup.KeepComplete(merged)
	if dropped > 0 {
		p.logger.Debug("incomplete articles dropped", "category", category, "dropped", dropped, "at", p.now().UTC())
	}
	p.logger.Info("articles merged", "category", category, "raw", len(raw), "clusters", len(clusters), "kept", len(kept))
	return kept
}

// enrich scrapes the article page for candidates missing an image or body.
func (p *Pipeline) enrich(ctx context.Context, merged []dedup.Canonical) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.EnrichConcurrency)

	for i := range merged {
		if merged[i].Complete() || merged[i].URL == "" {
			continue
		}
		c := &merged[i]
		g.Go(func() error {
			page, err := p.enricher.Fetch(gctx, c.URL, nil)
			if err != nil {
				p.logger.Debug("enrichment failed", "url", c.URL, "error", err)
				return nil
			}
			if c.ImageURL == "" {
				c.ImageURL = page.ImageURL
			}
			if len(page.Text) > len(c.Content) {
				c.Content = page.Text
			}
			if c.Title == "" {
				c.Title = page.Title
			}
			return nil
		})
	}
	g.Wait()
}

func (p *Pipeline) fresh(stored []store.Article) bool {
	now := p.now()
	for _, a := range stored {
		if !a.UpdatedAt.IsZero() && now.Sub(a.UpdatedAt) < p.opts.Freshness {
			return true
		}
	}
	return false
}

func (p *Pipeline) categoryID(ctx context.Context, ids map[string]int64, label string) (int64, error) {
	if id, ok := ids[label]; ok {
		return id, nil
	}
	id, err := p.gateway.GetOrCreateCategoryID(ctx, label)
	if err != nil {
		return 0, fmt.Errorf("%w: category %s: %w", ErrStorage, label, err)
	}
	ids[label] = id
	return id, nil
}

func (p *Pipeline) logStorageFailure(category, op string, err error) {
	p.logger.Error("storage failure", "category", category, "op", op, "at", p.now().UTC(), "error", err)
}
