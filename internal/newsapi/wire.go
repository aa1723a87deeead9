package newsapi

import (
	"strings"
	"time"

	"github.com/glabrego/newsreader/internal/news"
)

// removedMarker is what the API puts in place of articles withdrawn by the
// publisher.
const removedMarker = "[Removed]"

type articlesResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []wireArticle `json:"articles"`
}

type wireSource struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

type wireArticle struct {
	Source      wireSource `json:"source"`
	Author      *string    `json:"author"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	URL         string     `json:"url"`
	URLToImage  *string    `json:"urlToImage"`
	PublishedAt string     `json:"publishedAt"`
	Content     *string    `json:"content"`
}

func (r articlesResponse) toArticles() []news.Article {
	out := make([]news.Article, 0, len(r.Articles))
	for _, w := range r.Articles {
		if strings.TrimSpace(w.URL) == "" || deref(w.Title) == removedMarker {
			continue
		}
		out = append(out, news.Article{
			URL:         w.URL,
			Title:       deref(w.Title),
			Description: deref(w.Description),
			Content:     deref(w.Content),
			URLToImage:  deref(w.URLToImage),
			Source:      news.Source{ID: deref(w.Source.ID), Name: w.Source.Name},
			Author:      deref(w.Author),
			PublishedAt: parsePublishedAt(w.PublishedAt),
		})
	}
	return out
}

// parsePublishedAt returns the zero time for missing or malformed values.
func parsePublishedAt(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
