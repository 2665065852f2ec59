package sources

import (
	"context"
	"fmt"
	"time"
)

// HackerNewsSource fetches top stories from the Hacker News API. It only
// serves the technology category; stories carry no image or body, so they
// rely on page enrichment to pass the merge quality gate.
type HackerNewsSource struct {
	baseURL  string
	client   *apiClient
	maxItems int
}

// NewHackerNewsSource creates a new HN source.
func NewHackerNewsSource(maxItems int) *HackerNewsSource {
	if maxItems <= 0 {
		maxItems = 30
	}
	return &HackerNewsSource{
		baseURL:  "https://hacker-news.firebaseio.com/v0",
		client:   newAPIClient(0),
		maxItems: maxItems,
	}
}

func (h *HackerNewsSource) Name() string { return "Hacker News" }

func (h *HackerNewsSource) FetchByCategory(ctx context.Context, category string) ([]RawArticle, error) {
	if category != "technology" {
		return nil, nil
	}

	var ids []int
	if err := h.client.getJSON(ctx, h.baseURL+"/topstories.json", nil, &ids); err != nil {
		return nil, fmt.Errorf("fetch top stories: %w", err)
	}
	if len(ids) > h.maxItems {
		ids = ids[:h.maxItems]
	}

	type storyResult struct {
		index   int
		article RawArticle
		err     error
	}

	sem := make(chan struct{}, 5)
	results := make(chan storyResult, len(ids))

	for i, id := range ids {
		go func(i, storyID int) {
			sem <- struct{}{}
			defer func() { <-sem }()

			article, err := h.fetchStory(ctx, storyID)
			results <- storyResult{index: i, article: article, err: err}
		}(i, id)
	}

	ordered := make([]*RawArticle, len(ids))
	for range ids {
		res := <-results
		if res.err != nil || res.article.URL == "" {
			continue
		}
		a := res.article
		ordered[res.index] = &a
	}

	var articles []RawArticle
	for _, a := range ordered {
		if a != nil {
			articles = append(articles, *a)
		}
	}
	return articles, nil
}

type hnStory struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
	Text  string `json:"text"`
	Type  string `json:"type"`
}

func (h *HackerNewsSource) fetchStory(ctx context.Context, id int) (RawArticle, error) {
	var story hnStory
	if err := h.client.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.baseURL, id), nil, &story); err != nil {
		return RawArticle{}, err
	}
	if story.Type != "story" {
		return RawArticle{}, nil
	}

	return RawArticle{
		Source:      h.Name(),
		Author:      story.By,
		Title:       story.Title,
		URL:         story.URL,
		PublishedAt: time.Unix(story.Time, 0).UTC(),
		Content:     cleanText(story.Text),
	}, nil
}
