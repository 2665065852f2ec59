package sources

import (
	"context"
	"fmt"
	"net/url"
)

// GNewsSource fetches top headlines from gnews.io.
type GNewsSource struct {
	cfg    ProviderConfig
	client *apiClient
}

// NewGNewsSource creates a GNews adapter.
func NewGNewsSource(cfg ProviderConfig) *GNewsSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://gnews.io/api/v4"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &GNewsSource{cfg: cfg, client: newAPIClient(cfg.RequestsPerMinute)}
}

func (g *GNewsSource) Name() string { return "GNews" }

// gnewsTopics maps our labels onto GNews topics.
var gnewsTopics = map[string]string{
	"general":       "general",
	"technology":    "technology",
	"business":      "business",
	"sports":        "sports",
	"entertainment": "entertainment",
	"health":        "health",
	"science":       "science",
	"politics":      "nation",
}

type gnewsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		Image       string `json:"image"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (g *GNewsSource) FetchByCategory(ctx context.Context, category string) ([]RawArticle, error) {
	if g.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	topic, ok := gnewsTopics[category]
	if !ok {
		topic = "general"
	}

	q := url.Values{}
	q.Set("topic", topic)
	q.Set("lang", g.cfg.Language)
	q.Set("max", "25")
	q.Set("apikey", g.cfg.APIKey)
	if g.cfg.Country != "" {
		q.Set("country", g.cfg.Country)
	}

	var resp gnewsResponse
	if err := g.client.getJSON(ctx, g.cfg.BaseURL+"/top-headlines?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("gnews %s: %w", category, err)
	}

	articles := make([]RawArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		articles = append(articles, RawArticle{
			Source:      g.Name(),
			Title:       cleanText(a.Title),
			Description: cleanText(a.Description),
			URL:         a.URL,
			ImageURL:    normalizeImage(a.Image),
			PublishedAt: parseTime(a.PublishedAt),
			Content:     cleanText(a.Content),
		})
	}
	return articles, nil
}
