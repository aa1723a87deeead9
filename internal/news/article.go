// Package news holds the article model shared by the feed client, the cache
// store and the cache engine, together with the ordering rules every bucket
// follows.
package news

import (
	"strings"
	"time"
)

// Source identifies the publisher of an article.
type Source struct {
	ID   string
	Name string
}

// Article is a single news item. URL is its identity: two articles with the
// same URL are the same article.
type Article struct {
	URL         string
	Title       string
	Description string
	Content     string
	URLToImage  string
	Source      Source
	Author      string
	PublishedAt time.Time
}

// Matches reports whether title, description or content contains query,
// ignoring case.
func (a Article) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(a.Title), q) ||
		strings.Contains(strings.ToLower(a.Description), q) ||
		strings.Contains(strings.ToLower(a.Content), q)
}

// Selector names a paginated bucket: the global feed when Category is empty,
// otherwise one category feed.
type Selector struct {
	Category string
}

// Global selects the global headlines feed.
var Global = Selector{}

// Category selects the feed of one category. Names are case-insensitive.
func Category(name string) Selector {
	return Selector{Category: strings.ToLower(strings.TrimSpace(name))}
}

func (s Selector) IsGlobal() bool {
	return s.Category == ""
}

func (s Selector) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "category:" + s.Category
}
