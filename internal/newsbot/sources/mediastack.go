package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// MediastackSource fetches live news from mediastack.com.
type MediastackSource struct {
	cfg    ProviderConfig
	client *apiClient
}

// NewMediastackSource creates a Mediastack adapter.
func NewMediastackSource(cfg ProviderConfig) *MediastackSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://api.mediastack.com/v1"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &MediastackSource{cfg: cfg, client: newAPIClient(cfg.RequestsPerMinute)}
}

func (m *MediastackSource) Name() string { return "Mediastack" }

type mediastackResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Data []struct {
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Source      string `json:"source"`
		Image       string `json:"image"`
		PublishedAt string `json:"published_at"`
	} `json:"data"`
}

func (m *MediastackSource) FetchByCategory(ctx context.Context, category string) ([]RawArticle, error) {
	if m.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	q := url.Values{}
	q.Set("access_key", m.cfg.APIKey)
	q.Set("languages", m.cfg.Language)
	q.Set("sort", "published_desc")
	q.Set("limit", "25")
	if category == "politics" {
		q.Set("keywords", "politics")
	} else {
		q.Set("categories", category)
	}
	if m.cfg.Country != "" {
		q.Set("countries", m.cfg.Country)
	}

	var resp mediastackResponse
	if err := m.client.getJSON(ctx, m.cfg.BaseURL+"/news?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("mediastack %s: %w", category, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("mediastack %s: %s: %s", category, resp.Error.Code, resp.Error.Message)
	}

	articles := make([]RawArticle, 0, len(resp.Data))
	for _, a := range resp.Data {
		if a.URL == "" || a.Title == "" {
			continue
		}
		articles = append(articles, RawArticle{
			Source:      m.Name(),
			Author:      strings.TrimSpace(a.Author),
			Title:       cleanText(a.Title),
			Description: cleanText(a.Description),
			URL:         a.URL,
			ImageURL:    normalizeImage(a.Image),
			PublishedAt: parseTime(a.PublishedAt),
		})
	}
	return articles, nil
}
