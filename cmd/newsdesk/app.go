package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/RobinCoderZhao/newsdesk/internal/config"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/cache"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/pipeline"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/sources"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/store"
	"github.com/RobinCoderZhao/newsdesk/pkg/scraper"
	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

// app bundles the wired components of one process.
type app struct {
	cfg      config.Config
	store    *store.Store
	registry *sources.Registry
	pipeline *pipeline.Pipeline
}

func setupLogging(cfg config.Config) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(handler))
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg)

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	st, err := store.New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := newRegistry(cfg)
	slog.Info("providers configured", "providers", registry.Names())

	p := pipeline.New(registry, st, cache.New(cfg.Cache.Capacity, cfg.CacheTTL()), pipeline.Options{
		SimilarityThreshold: cfg.Pipeline.SimilarityThreshold,
		Freshness:           cfg.Freshness(),
		QueryLimit:          cfg.Pipeline.QueryLimit,
		Enrich:              cfg.Pipeline.Enrich,
	})
	if cfg.Pipeline.Enrich {
		p.SetEnricher(scraper.NewHTTPFetcher())
	}

	return &app{cfg: cfg, store: st, registry: registry, pipeline: p}, nil
}

func newRegistry(cfg config.Config) *sources.Registry {
	registry := sources.NewRegistry(cfg.FetchTimeout())
	registry.Register(sources.NewNewsAPISource(cfg.Providers.NewsAPI))
	registry.Register(sources.NewGNewsSource(cfg.Providers.GNews))
	registry.Register(sources.NewMediastackSource(cfg.Providers.Mediastack))
	registry.Register(sources.NewNewsDataSource(cfg.Providers.NewsData))
	for _, feed := range cfg.Feeds {
		registry.Register(sources.NewRSSSource(feed))
	}
	if cfg.Pipeline.HackerNews {
		registry.Register(sources.NewHackerNewsSource(30))
	}
	return registry
}

func (a *app) Close() error {
	return a.store.Close()
}
