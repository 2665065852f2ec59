package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// NewsDataSource fetches latest news from newsdata.io.
type NewsDataSource struct {
	cfg    ProviderConfig
	client *apiClient
}

// NewNewsDataSource creates a NewsData.io adapter.
func NewNewsDataSource(cfg ProviderConfig) *NewsDataSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsdata.io/api/1"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &NewsDataSource{cfg: cfg, client: newAPIClient(cfg.RequestsPerMinute)}
}

func (n *NewsDataSource) Name() string { return "NewsData" }

type newsDataResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Title       string   `json:"title"`
		Link        string   `json:"link"`
		Creator     []string `json:"creator"`
		Description string   `json:"description"`
		Content     string   `json:"content"`
		PubDate     string   `json:"pubDate"`
		ImageURL    string   `json:"image_url"`
		SourceID    string   `json:"source_id"`
	} `json:"results"`
}

func (n *NewsDataSource) FetchByCategory(ctx context.Context, category string) ([]RawArticle, error) {
	if n.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	providerCategory := category
	if category == "general" {
		providerCategory = "top"
	}

	q := url.Values{}
	q.Set("apikey", n.cfg.APIKey)
	q.Set("category", providerCategory)
	q.Set("language", n.cfg.Language)
	if n.cfg.Country != "" {
		q.Set("country", n.cfg.Country)
	}

	var resp newsDataResponse
	if err := n.client.getJSON(ctx, n.cfg.BaseURL+"/latest?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("newsdata %s: %w", category, err)
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, fmt.Errorf("newsdata %s: status %s", category, resp.Status)
	}

	articles := make([]RawArticle, 0, len(resp.Results))
	for _, a := range resp.Results {
		if a.Link == "" || a.Title == "" {
			continue
		}
		content := a.Content
		// Free plans return a placeholder instead of the body.
		if strings.HasPrefix(content, "ONLY AVAILABLE IN") {
			content = ""
		}
		articles = append(articles, RawArticle{
			Source:      n.Name(),
			Author:      strings.Join(a.Creator, ", "),
			Title:       cleanText(a.Title),
			Description: cleanText(a.Description),
			URL:         a.Link,
			ImageURL:    normalizeImage(a.ImageURL),
			PublishedAt: parseTime(a.PubDate),
			Content:     cleanText(content),
		})
	}
	return articles, nil
}
