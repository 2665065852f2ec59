// Package config provides newsdesk configuration management.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/classify"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/sources"
	appconfig "github.com/RobinCoderZhao/newsdesk/pkg/config"
	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

// Config is the main configuration for newsdesk.
type Config struct {
	Database  storage.Config       `yaml:"database"`
	Cache     CacheConfig          `yaml:"cache"`
	Pipeline  PipelineConfig       `yaml:"pipeline"`
	Providers ProvidersConfig      `yaml:"providers"`
	Feeds     []sources.FeedConfig `yaml:"feeds"`
	Server    ServerConfig         `yaml:"server"`
	Poll      PollConfig           `yaml:"poll"`
	LogLevel  string               `yaml:"log_level" env:"LOG_LEVEL"`
}

// CacheConfig sizes the category cache.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS"`
	Capacity   int `yaml:"capacity" env:"CACHE_CAPACITY"`
}

// PipelineConfig holds dedup and freshness settings.
type PipelineConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`
	FetchTimeoutSeconds int     `yaml:"fetch_timeout_seconds" env:"FETCH_TIMEOUT_SECONDS"`
	FreshnessMinutes    int     `yaml:"freshness_minutes" env:"FRESHNESS_MINUTES"`
	QueryLimit          int     `yaml:"query_limit" env:"QUERY_LIMIT"`
	Enrich              bool    `yaml:"enrich" env:"ENRICH_ARTICLES"`
	HackerNews          bool    `yaml:"hackernews" env:"HACKERNEWS_ENABLED"`
}

// ProvidersConfig holds per-provider credentials. A provider without a key
// contributes nothing.
type ProvidersConfig struct {
	NewsAPI    sources.ProviderConfig `yaml:"newsapi"`
	GNews      sources.ProviderConfig `yaml:"gnews"`
	Mediastack sources.ProviderConfig `yaml:"mediastack"`
	NewsData   sources.ProviderConfig `yaml:"newsdata"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string `yaml:"addr" env:"API_ADDR"`
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// PollConfig configures background refreshes. An interval of zero disables polling.
type PollConfig struct {
	IntervalMinutes int      `yaml:"interval_minutes" env:"POLL_INTERVAL_MINUTES"`
	Categories      []string `yaml:"categories" env:"POLL_CATEGORIES"`
}

// DefaultConfig returns a Config with the reference defaults.
func DefaultConfig() Config {
	return Config{
		Database: storage.Config{Driver: storage.SQLite, DSN: "newsdesk.db"},
		Cache:    CacheConfig{TTLSeconds: 300, Capacity: 32},
		Pipeline: PipelineConfig{
			SimilarityThreshold: 0.5,
			FetchTimeoutSeconds: 8,
			FreshnessMinutes:    60,
			QueryLimit:          50,
		},
		Server:   ServerConfig{Addr: ":8080"},
		Poll:     PollConfig{Categories: classify.Labels()},
		LogLevel: "info",
	}
}

// Load reads path (if it exists) over the defaults and applies env overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := appconfig.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}
	// Provider keys live under a shared struct type, so their env names are
	// applied here rather than through tags.
	for env, p := range map[string]*sources.ProviderConfig{
		"NEWSAPI_KEY":    &cfg.Providers.NewsAPI,
		"GNEWS_KEY":      &cfg.Providers.GNews,
		"MEDIASTACK_KEY": &cfg.Providers.Mediastack,
		"NEWSDATA_KEY":   &cfg.Providers.NewsData,
	} {
		if v := os.Getenv(env); v != "" {
			p.APIKey = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges and category names.
func (c Config) Validate() error {
	if c.Pipeline.SimilarityThreshold <= 0 || c.Pipeline.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1], got %v", c.Pipeline.SimilarityThreshold)
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	}
	for _, cat := range c.Poll.Categories {
		if !classify.Valid(strings.ToLower(cat)) {
			return fmt.Errorf("poll category %q is not a known label", cat)
		}
	}
	for _, f := range c.Feeds {
		if f.URL == "" {
			return fmt.Errorf("feed %q has no url", f.Name)
		}
		if f.Category != "" && !classify.Valid(strings.ToLower(f.Category)) {
			return fmt.Errorf("feed %q has unknown category %q", f.Name, f.Category)
		}
	}
	return nil
}

// CacheTTL returns the cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// FetchTimeout returns the per-provider timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Pipeline.FetchTimeoutSeconds) * time.Second
}

// Freshness returns the storage freshness window as a duration.
func (c Config) Freshness() time.Duration {
	return time.Duration(c.Pipeline.FreshnessMinutes) * time.Minute
}

// PollInterval returns the polling interval, zero when disabled.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMinutes) * time.Minute
}

// SlogLevel maps log_level onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
