package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/sources"
	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsdesk.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheTTL() != 300*time.Second {
		t.Fatalf("expected 300s ttl, got %v", cfg.CacheTTL())
	}
	if cfg.Freshness() != time.Hour {
		t.Fatalf("expected 60m freshness, got %v", cfg.Freshness())
	}
	if cfg.Pipeline.SimilarityThreshold != 0.5 {
		t.Fatalf("unexpected threshold %v", cfg.Pipeline.SimilarityThreshold)
	}
	if cfg.Database.Driver != storage.SQLite {
		t.Fatalf("unexpected driver %q", cfg.Database.Driver)
	}
	if cfg.PollInterval() != 0 {
		t.Fatalf("polling should be off by default, got %v", cfg.PollInterval())
	}
	if len(cfg.Poll.Categories) != 8 {
		t.Fatalf("expected all 8 labels, got %v", cfg.Poll.Categories)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://localhost/news
cache:
  ttl_seconds: 120
  capacity: 8
providers:
  gnews:
    api_key: from-file
    language: es
feeds:
  - name: bbc-tech
    url: https://feeds.bbci.co.uk/news/technology/rss.xml
    category: Technology
poll:
  interval_minutes: 15
  categories: [technology, sports]
log_level: debug
`)
	t.Setenv("NEWSAPI_KEY", "from-env")
	t.Setenv("CACHE_CAPACITY", "64")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != storage.Postgres {
		t.Fatalf("unexpected driver %q", cfg.Database.Driver)
	}
	if cfg.CacheTTL() != 2*time.Minute || cfg.Cache.Capacity != 64 {
		t.Fatalf("unexpected cache config %+v", cfg.Cache)
	}
	if cfg.Providers.NewsAPI.APIKey != "from-env" || cfg.Providers.GNews.APIKey != "from-file" {
		t.Fatalf("unexpected provider keys %+v", cfg.Providers)
	}
	if cfg.Providers.GNews.Language != "es" {
		t.Fatalf("unexpected gnews language %q", cfg.Providers.GNews.Language)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].Category != "Technology" {
		t.Fatalf("unexpected feeds %+v", cfg.Feeds)
	}
	if cfg.PollInterval() != 15*time.Minute {
		t.Fatalf("unexpected poll interval %v", cfg.PollInterval())
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("unexpected level %v", cfg.SlogLevel())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold zero", func(c *Config) { c.Pipeline.SimilarityThreshold = 0 }},
		{"threshold above one", func(c *Config) { c.Pipeline.SimilarityThreshold = 1.5 }},
		{"ttl zero", func(c *Config) { c.Cache.TTLSeconds = 0 }},
		{"unknown poll category", func(c *Config) { c.Poll.Categories = []string{"weather"} }},
		{"feed without url", func(c *Config) { c.Feeds = append(c.Feeds, sources.FeedConfig{Name: "x"}) }},
		{"feed bad category", func(c *Config) { c.Feeds = append(c.Feeds, sources.FeedConfig{Name: "x", URL: "https://x/rss", Category: "gossip"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	} {
		cfg := Config{LogLevel: in}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
