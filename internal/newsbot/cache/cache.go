// Package cache keeps recently served category listings in memory.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/store"
)

const (
	DefaultCapacity = 32
	DefaultTTL      = 300 * time.Second
)

// Entry is a cached category listing.
type Entry struct {
	Articles []store.Article
	StoredAt time.Time
}

// Cache is a size-bounded LRU whose entries expire after a fixed TTL. It is
// safe for concurrent use. Expiry is checked on read, so a Cache owns no
// background goroutine.
type Cache struct {
	lru *lru.Cache[string, Entry]
	ttl time.Duration
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the clock used to judge staleness.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache holding at most capacity categories for ttl each.
func New(capacity int, ttl time.Duration, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	// lru.New only fails for a non-positive size.
	c.lru, _ = lru.New[string, Entry](capacity)
	return c
}

// Get returns the listing for category if present and younger than the TTL.
func (c *Cache) Get(category string) ([]store.Article, bool) {
	e, ok := c.lru.Get(category)
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.StoredAt) >= c.ttl {
		c.lru.Remove(category)
		return nil, false
	}
	return e.Articles, true
}

// Set stores the listing for category.
func (c *Cache) Set(category string, articles []store.Article) {
	c.lru.Add(category, Entry{Articles: articles, StoredAt: c.now()})
}

// Invalidate drops the listing for category.
func (c *Cache) Invalidate(category string) {
	c.lru.Remove(category)
}

// Len returns the number of cached categories.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
