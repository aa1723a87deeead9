package app

import (
	"context"
	"slices"
	"time"

	"github.com/glabrego/newsreader/internal/news"
)

// FetchFeed loads one page of a feed bucket. Page 1 (or refresh) resets
// pagination and replaces the bucket; later pages are merged in. While offline,
// or when the request fails, the persisted snapshot is served instead and the
// outcome is reported through State.Error. FetchFeed never fails.
func (e *Engine) FetchFeed(ctx context.Context, sel news.Selector, page int, refresh bool) {
	e.mu.Lock()
	page, gen := e.beginFetchLocked(sel, page, refresh)
	e.mu.Unlock()
	e.publish()

	if refresh {
		e.reprobe(ctx)
	}
	e.runFetch(ctx, sel, page, gen)
}

// LoadMore fetches the page after the current one. It does nothing and
// returns false while a fetch for the bucket is in flight or after the feed
// ran out of articles.
func (e *Engine) LoadMore(ctx context.Context, sel news.Selector) bool {
	e.mu.Lock()
	b := e.bucketLocked(sel)
	if b.loading || b.loadingMore || !b.hasMore {
		e.mu.Unlock()
		return false
	}
	page, gen := e.beginFetchLocked(sel, b.page+1, false)
	e.mu.Unlock()
	e.publish()

	e.runFetch(ctx, sel, page, gen)
	return true
}

func (e *Engine) beginFetchLocked(sel news.Selector, page int, refresh bool) (int, uint64) {
	if page < 1 || refresh {
		page = 1
	}
	b := e.bucketLocked(sel)
	b.generation++
	if page == 1 {
		b.page = 1
		b.hasMore = true
		b.loading = true
		b.loadingMore = false
	} else {
		b.loadingMore = true
	}
	e.err = ""
	return page, b.generation
}

func (e *Engine) runFetch(ctx context.Context, sel news.Selector, page int, gen uint64) {
	defer e.finishFetch(sel, gen)

	// Results are written even if the caller gives up waiting.
	storeCtx := context.WithoutCancel(ctx)

	// Connectivity is read once; events arriving later update State.Offline
	// but do not change the path this fetch takes.
	connected := e.monitor.IsConnected()
	e.mu.Lock()
	e.offline = !connected
	e.mu.Unlock()

	if !connected {
		e.applyOffline(storeCtx, sel, gen)
		return
	}

	articles, err := e.client.TopHeadlines(ctx, e.country, sel.Category, e.pageSize, page)
	if err != nil {
		e.applyFailure(storeCtx, sel, gen, err)
		return
	}
	e.applySuccess(storeCtx, sel, page, gen, articles)
}

func (e *Engine) finishFetch(sel news.Selector, gen uint64) {
	e.mu.Lock()
	b := e.bucketLocked(sel)
	if b.generation == gen {
		b.loading = false
		b.loadingMore = false
	}
	e.mu.Unlock()
	e.publish()
}

func (e *Engine) applySuccess(ctx context.Context, sel news.Selector, page int, gen uint64, fetched []news.Article) {
	now := e.now()

	e.mu.Lock()
	b := e.bucketLocked(sel)
	if b.generation != gen {
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "dropping superseded page", "bucket", sel.String(), "page", page)
		return
	}
	prior := b.articles
	if page == 1 {
		b.articles = news.Merge(nil, fetched, e.sort)
	} else {
		b.articles = news.Merge(b.articles, fetched, e.sort)
	}
	b.hasMore = len(fetched) > 0
	b.page = page
	b.lastFetched = now
	snapshot := slices.Clone(b.articles)
	e.mu.Unlock()

	if err := e.store.SaveCached(ctx, sel, snapshot, now); err != nil {
		e.logger.WarnContext(ctx, "persist feed snapshot", "bucket", sel.String(), "error", err)
	}

	if page == 1 {
		e.detectDeltas(ctx, sel, prior, fetched)
	}
}

// applyOffline replaces the bucket with its persisted snapshot, even when the
// snapshot is empty.
func (e *Engine) applyOffline(ctx context.Context, sel news.Selector, gen uint64) {
	cached, fetchedAt := e.readCached(ctx, sel)

	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.bucketLocked(sel)
	if b.generation != gen {
		return
	}
	b.articles = news.Sorted(news.Dedupe(cached), e.sort)
	b.lastFetched = fetchedAt
	if len(b.articles) == 0 {
		e.err = MsgNoCachedOffline
	}
}

// applyFailure serves the persisted snapshot after a failed request. An empty
// snapshot leaves the bucket as it was and keeps the failure message.
func (e *Engine) applyFailure(ctx context.Context, sel news.Selector, gen uint64, fetchErr error) {
	e.logger.WarnContext(ctx, "fetch feed", "bucket", sel.String(), "error", fetchErr)
	cached, fetchedAt := e.readCached(ctx, sel)

	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.bucketLocked(sel)
	if b.generation != gen {
		return
	}
	if len(cached) == 0 {
		e.err = "Failed to fetch articles: " + fetchErr.Error()
		return
	}
	b.articles = news.Sorted(news.Dedupe(cached), e.sort)
	b.lastFetched = fetchedAt
	e.err = MsgShowingCached
}

// readCached returns the persisted snapshot of sel and when it was saved.
// The time is zero when unknown.
func (e *Engine) readCached(ctx context.Context, sel news.Selector) ([]news.Article, time.Time) {
	cached, err := e.store.Cached(ctx, sel)
	if err != nil {
		e.logger.WarnContext(ctx, "read feed snapshot", "bucket", sel.String(), "error", err)
		return nil, time.Time{}
	}
	if len(cached) == 0 {
		return nil, time.Time{}
	}
	fetchedAt, ok, err := e.store.FetchTime(ctx, sel)
	if err != nil {
		e.logger.WarnContext(ctx, "read feed fetch time", "bucket", sel.String(), "error", err)
	}
	if !ok {
		fetchedAt = time.Time{}
	}
	return cached, fetchedAt
}
