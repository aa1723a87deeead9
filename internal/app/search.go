package app

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/glabrego/newsreader/internal/news"
)

// Search replaces the search results with articles matching query. A blank
// query clears the results without any I/O. Offline, the persisted feeds and
// the bookmarks are searched instead. A failed request keeps the previous
// results and reports the failure through State.Error.
func (e *Engine) Search(ctx context.Context, query string) {
	query = strings.TrimSpace(query)

	e.mu.Lock()
	e.searchGen++
	gen := e.searchGen
	if query == "" {
		e.search = nil
		e.searchQuery = ""
		e.searching = false
		e.mu.Unlock()
		e.publish()
		return
	}
	e.searchQuery = query
	e.searching = true
	e.err = ""
	e.mu.Unlock()
	e.publish()

	defer e.finishSearch(gen)

	e.reprobe(ctx)
	connected := e.monitor.IsConnected()
	e.mu.Lock()
	e.offline = !connected
	e.mu.Unlock()

	if !connected {
		e.searchOffline(context.WithoutCancel(ctx), query, gen)
		return
	}

	articles, err := e.client.Search(ctx, query, e.pageSize, 1)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searchGen != gen {
		return
	}
	if err != nil {
		e.logger.WarnContext(ctx, "search", "query", query, "error", err)
		e.err = "Search failed: " + err.Error()
		return
	}
	e.search = news.Sorted(news.Dedupe(articles), e.sort)
}

func (e *Engine) finishSearch(gen uint64) {
	e.mu.Lock()
	if e.searchGen == gen {
		e.searching = false
	}
	e.mu.Unlock()
	e.publish()
}

// searchOffline matches query against the union of the persisted global feed,
// every persisted category feed and the in-memory bookmarks.
func (e *Engine) searchOffline(ctx context.Context, query string, gen uint64) {
	var pool []news.Article
	global, _ := e.readCached(ctx, news.Global)
	pool = append(pool, global...)

	categories, err := e.store.CachedCategories(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "read category snapshots", "error", err)
	}
	for _, name := range slices.Sorted(maps.Keys(categories)) {
		pool = append(pool, categories[name]...)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searchGen != gen {
		return
	}
	pool = append(pool, e.bookmarks...)

	var matches []news.Article
	for _, a := range news.Dedupe(pool) {
		if a.Matches(query) {
			matches = append(matches, a)
		}
	}
	news.Sort(matches, e.sort)

	e.search = matches
	if len(matches) == 0 {
		e.err = MsgNoOfflineMatches
	}
}
