package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glabrego/newsreader/internal/news"
	"github.com/glabrego/newsreader/internal/notify"
)

// ErrCorrupt marks a stored value that cannot be decoded.
var ErrCorrupt = errors.New("corrupt cache entry")

type storedSource struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type storedArticle struct {
	URL         string       `json:"url"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Content     string       `json:"content,omitempty"`
	URLToImage  string       `json:"urlToImage,omitempty"`
	Source      storedSource `json:"source"`
	Author      string       `json:"author,omitempty"`
	PublishedAt string       `json:"publishedAt"`
}

type categorySnapshot struct {
	FetchedAt string          `json:"fetchedAt"`
	Articles  []storedArticle `json:"articles"`
}

type storedPreferences struct {
	Enabled      bool     `json:"enabled"`
	BreakingNews bool     `json:"breakingNews"`
	DailyDigest  bool     `json:"dailyDigest"`
	Categories   []string `json:"categories"`
}

func toStored(articles []news.Article) []storedArticle {
	out := make([]storedArticle, 0, len(articles))
	for _, a := range articles {
		out = append(out, storedArticle{
			URL:         a.URL,
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			URLToImage:  a.URLToImage,
			Source:      storedSource{ID: a.Source.ID, Name: a.Source.Name},
			Author:      a.Author,
			PublishedAt: formatTime(a.PublishedAt),
		})
	}
	return out
}

// fromStored drops entries without a URL; a bad timestamp reads as zero.
func fromStored(stored []storedArticle) []news.Article {
	out := make([]news.Article, 0, len(stored))
	for _, s := range stored {
		if s.URL == "" {
			continue
		}
		published, _ := parseTime(s.PublishedAt)
		out = append(out, news.Article{
			URL:         s.URL,
			Title:       s.Title,
			Description: s.Description,
			Content:     s.Content,
			URLToImage:  s.URLToImage,
			Source:      news.Source{ID: s.Source.ID, Name: s.Source.Name},
			Author:      s.Author,
			PublishedAt: published,
		})
	}
	return out
}

func (p storedPreferences) toPreferences() notify.Preferences {
	return notify.Preferences{
		Enabled:      p.Enabled,
		BreakingNews: p.BreakingNews,
		DailyDigest:  p.DailyDigest,
		Categories:   append([]string(nil), p.Categories...),
	}
}

func fromPreferences(p notify.Preferences) storedPreferences {
	return storedPreferences{
		Enabled:      p.Enabled,
		BreakingNews: p.BreakingNews,
		DailyDigest:  p.DailyDigest,
		Categories:   append([]string(nil), p.Categories...),
	}
}

func encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decode(value string, dst any) error {
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
