package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedConfig describes one RSS/Atom feed and the category it covers.
type FeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// RSSSource fetches articles from any RSS/Atom feed.
type RSSSource struct {
	feed   FeedConfig
	parser *gofeed.Parser
}

// NewRSSSource creates a new RSS source for the given feed.
func NewRSSSource(feed FeedConfig) *RSSSource {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: 15 * time.Second}
	return &RSSSource{feed: feed, parser: parser}
}

func (r *RSSSource) Name() string { return r.feed.Name }

// FetchByCategory returns the feed's items when the feed serves category.
// Feeds without a category are treated as general news; a general request
// accepts every feed.
func (r *RSSSource) FetchByCategory(ctx context.Context, category string) ([]RawArticle, error) {
	feedCategory := strings.ToLower(r.feed.Category)
	if feedCategory == "" {
		feedCategory = "general"
	}
	if category != "general" && category != feedCategory {
		return nil, nil
	}

	feed, err := r.parser.ParseURLWithContext(r.feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch RSS feed %s: %w", r.feed.Name, err)
	}

	articles := make([]RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" || item.Title == "" {
			continue
		}
		articles = append(articles, RawArticle{
			Source:      r.feed.Name,
			Author:      itemAuthor(item),
			Title:       cleanText(item.Title),
			Description: cleanText(item.Description),
			URL:         item.Link,
			ImageURL:    normalizeImage(itemImage(item)),
			PublishedAt: itemTime(item),
			Content:     cleanText(item.Content),
		})
	}
	return articles, nil
}

func itemAuthor(item *gofeed.Item) string {
	for _, p := range item.Authors {
		if p != nil && p.Name != "" {
			return p.Name
		}
	}
	return ""
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return time.Time{}
}

// itemImage looks for a thumbnail in the places feeds commonly put one.
func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"thumbnail", "content"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
		for _, group := range media["group"] {
			for _, ext := range group.Children["content"] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
