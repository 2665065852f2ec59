package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// NewsAPISource fetches top headlines from newsapi.org.
type NewsAPISource struct {
	cfg    ProviderConfig
	client *apiClient
}

// NewNewsAPISource creates a NewsAPI adapter.
func NewNewsAPISource(cfg ProviderConfig) *NewsAPISource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsapi.org/v2"
	}
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	return &NewsAPISource{cfg: cfg, client: newAPIClient(cfg.RequestsPerMinute)}
}

func (n *NewsAPISource) Name() string { return "NewsAPI" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

func (n *NewsAPISource) FetchByCategory(ctx context.Context, category string) ([]RawArticle, error) {
	if n.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	q := url.Values{}
	q.Set("country", n.cfg.Country)
	q.Set("pageSize", "30")
	if category == "politics" {
		q.Set("q", "politics")
	} else {
		q.Set("category", category)
	}

	var resp newsAPIResponse
	err := n.client.getJSON(ctx, n.cfg.BaseURL+"/top-headlines?"+q.Encode(),
		map[string]string{"X-Api-Key": n.cfg.APIKey}, &resp)
	if err != nil {
		return nil, fmt.Errorf("newsapi %s: %w", category, err)
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi %s: %s", category, resp.Message)
	}

	articles := make([]RawArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.URL == "" || a.Title == "" || a.Title == "[Removed]" {
			continue
		}
		articles = append(articles, RawArticle{
			Source:      n.Name(),
			Author:      strings.TrimSpace(a.Author),
			Title:       cleanText(a.Title),
			Description: cleanText(a.Description),
			URL:         a.URL,
			ImageURL:    normalizeImage(a.URLToImage),
			PublishedAt: parseTime(a.PublishedAt),
			Content:     cleanText(a.Content),
		})
	}
	return articles, nil
}
