package app

import (
	"context"
	"maps"
	"slices"

	"github.com/glabrego/newsreader/internal/news"
)

// ToggleBookmark removes a bookmarked article or adds a new one, then
// persists the bookmarks. It returns whether the article is now bookmarked.
// Persistence failures are logged only.
func (e *Engine) ToggleBookmark(ctx context.Context, a news.Article) bool {
	e.bookmarkMu.Lock()
	defer e.bookmarkMu.Unlock()

	e.mu.Lock()
	bookmarks := slices.Clone(e.bookmarks)
	added := false
	if i := news.IndexOf(bookmarks, a.URL); i >= 0 {
		bookmarks = slices.Delete(bookmarks, i, i+1)
	} else {
		bookmarks = append(bookmarks, a)
		news.Sort(bookmarks, e.sort)
		added = true
	}
	e.bookmarks = bookmarks
	snapshot := slices.Clone(bookmarks)
	e.mu.Unlock()
	e.publish()

	if err := e.store.SaveBookmarks(context.WithoutCancel(ctx), snapshot); err != nil {
		e.logger.WarnContext(ctx, "persist bookmarks", "url", a.URL, "error", err)
	}
	return added
}

func (e *Engine) IsBookmarked(url string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return news.IndexOf(e.bookmarks, url) >= 0
}

// ResolveArticle finds an article by URL, looking in the global feed, the
// search results, the bookmarks and then the category feeds.
func (e *Engine) ResolveArticle(url string) (news.Article, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sources := [][]news.Article{e.global.articles, e.search, e.bookmarks}
	for _, name := range slices.Sorted(maps.Keys(e.categories)) {
		sources = append(sources, e.categories[name].articles)
	}
	for _, articles := range sources {
		if i := news.IndexOf(articles, url); i >= 0 {
			return articles[i], true
		}
	}
	return news.Article{}, false
}
