// Package notify describes the alerts the cache engine emits when new content
// arrives and the dispatchers that deliver them.
package notify

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/glabrego/newsreader/internal/news"
)

// Type tells the UI where a notification deep-links to.
type Type string

const (
	TypeArticle     Type = "article"
	TypeCategory    Type = "category"
	TypeDailyDigest Type = "daily_digest"
	TypeTest        Type = "test"
)

type Data struct {
	Type       Type   `json:"type"`
	ArticleURL string `json:"articleUrl,omitempty"`
	Category   string `json:"category,omitempty"`
}

type Notification struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Data  Data   `json:"data"`
}

func newNotification(title, body string, data Data) Notification {
	return Notification{
		ID:    uuid.NewString(),
		Title: title,
		Body:  body,
		Data:  data,
	}
}

// BreakingNews points at a single article.
func BreakingNews(a news.Article) Notification {
	body := strings.TrimSpace(a.Title)
	if a.Source.Name != "" {
		body += " (" + a.Source.Name + ")"
	}
	return newNotification("Breaking News", body, Data{Type: TypeArticle, ArticleURL: a.URL})
}

// CategoryUpdate summarizes count new articles in category.
func CategoryUpdate(category string, count int) Notification {
	noun := "articles"
	if count == 1 {
		noun = "article"
	}
	return newNotification(
		"New in "+displayCategory(category),
		fmt.Sprintf("%d new %s in %s", count, noun, category),
		Data{Type: TypeCategory, Category: category},
	)
}

// DailyDigest lists up to three headlines from articles.
func DailyDigest(articles []news.Article) Notification {
	if len(articles) == 0 {
		return newNotification("Your Daily Digest", "No new stories today.", Data{Type: TypeDailyDigest})
	}
	titles := make([]string, 0, 3)
	for _, a := range articles {
		if t := strings.TrimSpace(a.Title); t != "" {
			titles = append(titles, t)
		}
		if len(titles) == 3 {
			break
		}
	}
	body := fmt.Sprintf("%d top stories: %s", len(articles), strings.Join(titles, "; "))
	return newNotification("Your Daily Digest", body, Data{Type: TypeDailyDigest})
}

func Test() Notification {
	return newNotification("Test Notification", "Notifications are working.", Data{Type: TypeTest})
}

func displayCategory(category string) string {
	if category == "" {
		return ""
	}
	return strings.ToUpper(category[:1]) + category[1:]
}
