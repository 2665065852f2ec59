package dedup

import (
	"sort"
	"strings"
	"time"
)

// SourceSeparator joins contributing provider names.
const SourceSeparator = " + "

// Canonical is the merged representation of one cluster.
type Canonical struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	ImageURL    string    `json:"image_url"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Complete reports whether the article passes the quality gate.
func (c Canonical) Complete() bool {
	return c.Title != "" && c.ImageURL != "" && c.Content != ""
}

// Merge reduces a cluster to one article. Text fields take the longest
// non-empty value; equal lengths keep the earlier member. The URL comes
// from the member with the longest content, the timestamp is the latest,
// and the image is the first one present.
func Merge(c Cluster) Canonical {
	var out Canonical
	if len(c) == 0 {
		return out
	}

	var (
		names     []string
		seen      = make(map[string]bool)
		urlWeight = -1
	)
	for _, a := range c {
		out.Title = longer(out.Title, strings.TrimSpace(a.Title))
		out.Description = longer(out.Description, strings.TrimSpace(a.Description))
		out.Content = longer(out.Content, strings.TrimSpace(a.Content))

		if out.ImageURL == "" {
			out.ImageURL = normalizeImageURL(a.ImageURL)
		}
		if out.Author == "" {
			out.Author = strings.TrimSpace(a.Author)
		}
		if a.PublishedAt.After(out.PublishedAt) {
			out.PublishedAt = a.PublishedAt
		}
		if a.URL != "" && len(a.Content) > urlWeight {
			out.URL = a.URL
			urlWeight = len(a.Content)
		}

		name := strings.TrimSpace(a.Source)
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	out.Source = strings.Join(names, SourceSeparator)
	return out
}

// MergeAll merges every cluster, preserving cluster order.
func MergeAll(clusters []Cluster) []Canonical {
	out := make([]Canonical, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, Merge(c))
	}
	return out
}

// KeepComplete drops articles missing a title, image or content, and sorts
// the survivors newest-first.
func KeepComplete(articles []Canonical) (kept []Canonical, dropped int) {
	for _, a := range articles {
		if !a.Complete() {
			dropped++
			continue
		}
		kept = append(kept, a)
	}
	SortNewestFirst(kept)
	return kept, dropped
}

// SortNewestFirst orders by publication time descending, stable on ties.
func SortNewestFirst(articles []Canonical) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}

func longer(current, candidate string) string {
	if len(candidate) > len(current) {
		return candidate
	}
	return current
}

func normalizeImageURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
