// Package dedup groups near-duplicate provider articles and merges each
// group into one canonical article.
package dedup

import (
	"strings"

	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/sources"
)

// DefaultThreshold is the similarity above which two articles are duplicates.
const DefaultThreshold = 0.5

// Cluster is an ordered group of articles describing the same event.
type Cluster []sources.RawArticle

// Tokens returns the lowercase whitespace-separated word set of the
// article's title and description.
func Tokens(a sources.RawArticle) map[string]struct{} {
	text := a.Title
	if a.Description != "" {
		text += " " + a.Description
	}
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets are identical.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Similarity compares two articles by their title+description tokens.
func Similarity(a, b sources.RawArticle) float64 {
	return Jaccard(Tokens(a), Tokens(b))
}

// Group performs single-link clustering in input order: an article joins
// the first existing cluster containing a member whose similarity exceeds
// threshold, otherwise it starts a new cluster.
func Group(articles []sources.RawArticle, threshold float64) []Cluster {
	var clusters []Cluster
	var tokens [][]map[string]struct{}

	for _, a := range articles {
		t := Tokens(a)
		joined := false
		for ci := range clusters {
			if matchesAny(t, tokens[ci], threshold) {
				clusters[ci] = append(clusters[ci], a)
				tokens[ci] = append(tokens[ci], t)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, Cluster{a})
			tokens = append(tokens, []map[string]struct{}{t})
		}
	}
	return clusters
}

func matchesAny(t map[string]struct{}, members []map[string]struct{}, threshold float64) bool {
	for _, m := range members {
		if Jaccard(t, m) > threshold {
			return true
		}
	}
	return false
}
