package news

import (
	"fmt"
	"slices"
	"strings"
)

// SortOption is the global ordering preference applied to every bucket.
type SortOption string

const (
	SortNewest SortOption = "newest"
	SortOldest SortOption = "oldest"
)

// DefaultSort is used until the user picks an order.
const DefaultSort = SortNewest

func (o SortOption) Valid() bool {
	return o == SortNewest || o == SortOldest
}

func ParseSortOption(raw string) (SortOption, error) {
	opt := SortOption(strings.ToLower(strings.TrimSpace(raw)))
	if !opt.Valid() {
		return "", fmt.Errorf("sort option must be newest or oldest: %q", raw)
	}
	return opt, nil
}

// Sort orders articles in place by PublishedAt following opt. Ties are broken
// by URL so the order is total and re-sorting never moves equal items around.
func Sort(articles []Article, opt SortOption) {
	slices.SortFunc(articles, func(a, b Article) int {
		c := a.PublishedAt.Compare(b.PublishedAt)
		if opt != SortOldest {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.URL, b.URL)
	})
}

// Sorted returns a sorted copy of articles.
func Sorted(articles []Article, opt SortOption) []Article {
	out := slices.Clone(articles)
	Sort(out, opt)
	return out
}

// Dedupe keeps one article per URL. A later occurrence replaces the fields of
// an earlier one.
func Dedupe(articles []Article) []Article {
	out := make([]Article, 0, len(articles))
	index := make(map[string]int, len(articles))
	for _, a := range articles {
		if i, ok := index[a.URL]; ok {
			out[i] = a
			continue
		}
		index[a.URL] = len(out)
		out = append(out, a)
	}
	return out
}

// Merge folds incoming into existing, deduplicated by URL with incoming
// copies winning, and returns the result sorted by opt.
func Merge(existing, incoming []Article, opt SortOption) []Article {
	merged := make([]Article, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)
	merged = Dedupe(merged)
	Sort(merged, opt)
	return merged
}

// Added returns the articles of fetched whose URL does not appear in prior,
// in fetched order.
func Added(prior, fetched []Article) []Article {
	seen := make(map[string]struct{}, len(prior))
	for _, a := range prior {
		seen[a.URL] = struct{}{}
	}
	var out []Article
	for _, a := range fetched {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}

// IndexOf returns the position of the article with url, or -1.
func IndexOf(articles []Article, url string) int {
	return slices.IndexFunc(articles, func(a Article) bool { return a.URL == url })
}
