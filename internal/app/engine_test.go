package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glabrego/newsreader/internal/news"
	"github.com/glabrego/newsreader/internal/notify"
)

func TestSearch_BlankQueryClearsWithoutNetwork(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()
	h.client.results = []news.Article{article("r", 1)}
	h.engine.Search(ctx, "markets")
	require.Len(t, h.engine.Snapshot().Search, 1)

	h.engine.Search(ctx, "   ")

	snap := h.engine.Snapshot()
	assert.Empty(t, snap.Search)
	assert.Empty(t, snap.SearchQuery)
	assert.Equal(t, 1, h.client.searchCalls)
}

func TestSearch_OnlineReplacesSortedResults(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()
	h.client.results = []news.Article{article("r1", 1), article("r3", 3), article("r2", 2)}

	h.engine.Search(ctx, "markets")

	snap := h.engine.Snapshot()
	assert.Equal(t, []string{"r3", "r2", "r1"}, urlsOf(snap.Search))
	assert.Equal(t, "markets", snap.SearchQuery)
	assert.False(t, snap.Searching)

	h.client.results = []news.Article{article("only", 4)}
	h.engine.Search(ctx, "other")
	assert.Equal(t, []string{"only"}, urlsOf(h.engine.Snapshot().Search))
}

func TestSearch_OnlineErrorKeepsPreviousResults(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()
	h.client.results = []news.Article{article("keep", 1)}
	h.engine.Search(ctx, "first")

	h.client.searchErr = errors.New("rate limited")
	h.engine.Search(ctx, "second")

	snap := h.engine.Snapshot()
	assert.Equal(t, []string{"keep"}, urlsOf(snap.Search))
	assert.Contains(t, snap.Error, "rate limited")
	assert.False(t, snap.Searching)
}

func TestSearch_OfflineMatchesCachedFeedsAndBookmarks(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()

	climate := article("g1", 1)
	climate.Description = "Climate change is accelerating"
	h.store.seed(news.Global, climate, article("g2", 2))

	science := article("s1", 3)
	science.Title = "New CLIMATE model"
	h.store.seed(news.Category("science"), science)

	bookmarked := article("b1", 4)
	bookmarked.Content = "notes on climate policy [+300 chars]"
	h.engine.ToggleBookmark(ctx, bookmarked)

	updated := climate
	updated.Title = "Updated copy"
	h.store.seed(news.Category("health"), updated)

	h.monitor.set(false)
	h.engine.Search(ctx, "climate")

	snap := h.engine.Snapshot()
	require.Equal(t, []string{"b1", "s1", "g1"}, urlsOf(snap.Search))
	assert.Equal(t, "Updated copy", snap.Search[2].Title, "later occurrence wins")
	assert.True(t, snap.Offline)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 0, h.client.searchCalls)
}

func TestSearch_OfflineWithoutMatches(t *testing.T) {
	h := newHarness(nil)
	h.store.seed(news.Global, article("g1", 1))
	h.monitor.set(false)

	h.engine.Search(context.Background(), "volcano")

	snap := h.engine.Snapshot()
	assert.Empty(t, snap.Search)
	assert.Equal(t, MsgNoOfflineMatches, snap.Error)
}

func TestSearch_ReprobesBeforeOfflineFallback(t *testing.T) {
	h := newProbingHarness()
	h.client.results = []news.Article{article("r1", 1)}
	h.monitor.set(false)

	h.engine.Search(context.Background(), "markets")

	snap := h.engine.Snapshot()
	assert.Equal(t, 1, h.prober.checkCount())
	assert.Equal(t, []string{"r1"}, urlsOf(snap.Search))
	assert.False(t, snap.Offline)
	assert.Equal(t, 1, h.client.searchCalls)
}

func TestSearch_OfflineFlagFollowsEventDuringStoreRead(t *testing.T) {
	h := newHarness(nil)
	h.store.seed(news.Global, article("g1", 1))
	h.monitor.set(false)
	h.store.onRead = func() { h.monitor.set(true) }

	h.engine.Search(context.Background(), "g1")

	snap := h.engine.Snapshot()
	assert.Equal(t, []string{"g1"}, urlsOf(snap.Search))
	assert.False(t, snap.Offline)
	assert.Equal(t, 0, h.client.searchCalls)
}

func TestSetSortOption_ResortsEveryBucketIdempotently(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()
	h.client.setPages("", []news.Article{article("t0", 0), article("t1", 1), article("t2", 2)})
	h.client.setPages("science", []news.Article{article("s0", 0), article("s1", 1)})
	h.client.results = []news.Article{article("r0", 0), article("r1", 1)}

	h.engine.FetchFeed(ctx, news.Global, 1, false)
	h.engine.FetchFeed(ctx, news.Category("science"), 1, false)
	h.engine.Search(ctx, "q")
	h.engine.ToggleBookmark(ctx, article("b0", 0))
	h.engine.ToggleBookmark(ctx, article("b1", 1))
	require.Equal(t, []string{"t2", "t1", "t0"}, urlsOf(h.engine.Bucket(news.Global).Articles))

	require.NoError(t, h.engine.SetSortOption(ctx, news.SortOldest))
	first := h.engine.Snapshot()
	assert.Equal(t, []string{"t0", "t1", "t2"}, urlsOf(first.Global.Articles))
	assert.Equal(t, []string{"s0", "s1"}, urlsOf(first.Categories["science"].Articles))
	assert.Equal(t, []string{"r0", "r1"}, urlsOf(first.Search))
	assert.Equal(t, []string{"b0", "b1"}, urlsOf(first.Bookmarks))
	assert.Equal(t, news.SortOldest, first.Sort)
	assert.Equal(t, news.SortOldest, h.store.sort)

	require.NoError(t, h.engine.SetSortOption(ctx, news.SortOldest))
	second := h.engine.Snapshot()
	assert.Equal(t, first.Global.Articles, second.Global.Articles)
	assert.Equal(t, first.Bookmarks, second.Bookmarks)

	assert.Error(t, h.engine.SetSortOption(ctx, news.SortOption("random")))
}

func TestToggleBookmark_DoubleToggleRestoresState(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()
	h.engine.ToggleBookmark(ctx, article("a", 1))
	h.engine.ToggleBookmark(ctx, article("c", 3))
	before := h.engine.Snapshot().Bookmarks

	assert.True(t, h.engine.ToggleBookmark(ctx, article("b", 2)))
	assert.True(t, h.engine.IsBookmarked("b"))
	assert.Equal(t, []string{"c", "b", "a"}, urlsOf(h.engine.Snapshot().Bookmarks))

	assert.False(t, h.engine.ToggleBookmark(ctx, article("b", 2)))
	assert.False(t, h.engine.IsBookmarked("b"))
	assert.Equal(t, before, h.engine.Snapshot().Bookmarks)
	assert.Equal(t, urlsOf(before), urlsOf(h.store.savedBookmarks()))
}

func TestToggleBookmark_PersistenceFailureIsLogged(t *testing.T) {
	h := newHarness(nil)
	h.store.saveErr = errors.New("read-only")

	assert.True(t, h.engine.ToggleBookmark(context.Background(), article("a", 1)))
	assert.True(t, h.engine.IsBookmarked("a"))
}

func TestResolveArticle_PriorityOrder(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()

	inGlobal := article("shared", 1)
	inGlobal.Title = "from global"
	inSearch := article("shared", 1)
	inSearch.Title = "from search"
	h.client.setPages("", []news.Article{inGlobal})
	h.client.results = []news.Article{inSearch, article("search-only", 2)}
	h.client.setPages("sports", []news.Article{article("sports-only", 3)})

	h.engine.FetchFeed(ctx, news.Global, 1, false)
	h.engine.Search(ctx, "anything")
	h.engine.FetchFeed(ctx, news.Category("sports"), 1, false)
	h.engine.ToggleBookmark(ctx, article("bookmark-only", 4))

	got, ok := h.engine.ResolveArticle("shared")
	require.True(t, ok)
	assert.Equal(t, "from global", got.Title)

	for _, url := range []string{"search-only", "bookmark-only", "sports-only"} {
		_, ok := h.engine.ResolveArticle(url)
		assert.True(t, ok, url)
	}
	_, ok = h.engine.ResolveArticle("missing")
	assert.False(t, ok)
}

func TestRestore_LoadsSortAndBookmarks(t *testing.T) {
	h := newHarness(nil)
	h.store.sort = news.SortOldest
	h.store.bookmarks = []news.Article{article("b2", 2), article("b1", 1), article("b2", 2)}

	require.NoError(t, h.engine.Restore(context.Background()))

	snap := h.engine.Snapshot()
	assert.Equal(t, news.SortOldest, snap.Sort)
	assert.Equal(t, []string{"b1", "b2"}, urlsOf(snap.Bookmarks))
}

func TestClearCache_DropsFeedsKeepsBookmarks(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()
	h.client.setPages("", []news.Article{article("a", 1)})
	h.engine.FetchFeed(ctx, news.Global, 1, false)
	h.engine.ToggleBookmark(ctx, article("b", 2))

	require.NoError(t, h.engine.ClearCache(ctx))

	snap := h.engine.Snapshot()
	assert.Empty(t, snap.Global.Articles)
	assert.Equal(t, 0, snap.Global.CurrentPage)
	assert.True(t, snap.Global.HasMoreArticles)
	assert.Equal(t, []string{"b"}, urlsOf(snap.Bookmarks))
	assert.True(t, h.store.cleared)
}

func TestDeltaDetection_BreakingNews(t *testing.T) {
	h := newHarness(staticPrefs{prefs: notify.Preferences{Enabled: true, BreakingNews: true}})
	ctx := context.Background()

	seen := article("seen", 1)
	seen.Title = "Breaking: already known"
	h.client.setPages("", []news.Article{seen})
	h.engine.FetchFeed(ctx, news.Global, 1, false)
	require.Len(t, h.notifier.notifications(), 1)

	first := article("first", 5)
	first.Title = "BREAKING: storm makes landfall"
	second := article("second", 4)
	second.Title = "More breaking news"
	h.client.setPages("", []news.Article{seen, first, second})
	h.engine.FetchFeed(ctx, news.Global, 1, true)

	sent := h.notifier.notifications()
	require.Len(t, sent, 2)
	assert.Equal(t, notify.TypeArticle, sent[1].Data.Type)
	assert.Equal(t, "first", sent[1].Data.ArticleURL)
}

func TestDeltaDetection_OnlyOnFirstPage(t *testing.T) {
	h := newHarness(staticPrefs{prefs: notify.Preferences{Enabled: true, BreakingNews: true, Categories: []string{"world"}}})
	ctx := context.Background()
	breaking := article("late", 1)
	breaking.Title = "Breaking late story"
	h.client.setPages("world", []news.Article{article("a", 2)}, []news.Article{breaking})

	h.engine.FetchFeed(ctx, news.Category("world"), 1, false)
	require.Len(t, h.notifier.notifications(), 1)

	require.True(t, h.engine.LoadMore(ctx, news.Category("world")))
	assert.Len(t, h.notifier.notifications(), 1)
}

func TestDeltaDetection_CategoryUpdate(t *testing.T) {
	h := newHarness(staticPrefs{prefs: notify.Preferences{Enabled: true, Categories: []string{"Business"}}})
	ctx := context.Background()

	h.client.setPages("business", []news.Article{article("a", 1)})
	h.engine.FetchFeed(ctx, news.Category("business"), 1, false)

	h.client.setPages("business", []news.Article{article("a", 1), article("b", 2), article("c", 3)})
	h.engine.FetchFeed(ctx, news.Category("business"), 1, true)

	h.client.setPages("sports", []news.Article{article("s", 1)})
	h.engine.FetchFeed(ctx, news.Category("sports"), 1, false)

	sent := h.notifier.notifications()
	require.Len(t, sent, 2)
	assert.Equal(t, notify.Data{Type: notify.TypeCategory, Category: "business"}, sent[1].Data)
	assert.Equal(t, "2 new articles in business", sent[1].Body)

	h.engine.FetchFeed(ctx, news.Category("business"), 1, true)
	assert.Len(t, h.notifier.notifications(), 2, "unchanged page must not notify")
}

func TestDeltaDetection_RespectsPreferences(t *testing.T) {
	breaking := article("x", 1)
	breaking.Title = "Breaking story"

	cases := []struct {
		name  string
		prefs staticPrefs
	}{
		{name: "disabled", prefs: staticPrefs{prefs: notify.Preferences{Enabled: false, BreakingNews: true, Categories: []string{"world"}}}},
		{name: "breaking_off_unsubscribed", prefs: staticPrefs{prefs: notify.Preferences{Enabled: true}}},
		{name: "preferences_error", prefs: staticPrefs{err: errors.New("corrupt")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(tc.prefs)
			h.client.setPages("world", []news.Article{breaking})
			h.engine.FetchFeed(context.Background(), news.Category("world"), 1, false)

			assert.Empty(t, h.notifier.notifications())
			assert.Equal(t, []string{"x"}, urlsOf(h.engine.Bucket(news.Category("world")).Articles))
		})
	}
}

func TestDeltaDetection_DispatchFailureDoesNotFailFetch(t *testing.T) {
	h := newHarness(nil)
	h.notifier.err = errors.New("permission denied")
	breaking := article("x", 1)
	breaking.Title = "Breaking story"
	h.client.setPages("", []news.Article{breaking})

	h.engine.FetchFeed(context.Background(), news.Global, 1, false)

	snap := h.engine.Snapshot()
	assert.Empty(t, snap.Error)
	assert.Equal(t, []string{"x"}, urlsOf(snap.Global.Articles))
}

func TestSendTestNotificationAndDigest(t *testing.T) {
	h := newHarness(staticPrefs{prefs: notify.Preferences{Enabled: true, DailyDigest: true}})
	ctx := context.Background()
	h.client.setPages("", []news.Article{article("a", 1), article("b", 2)})
	h.engine.FetchFeed(ctx, news.Global, 1, false)

	require.NoError(t, h.engine.SendTestNotification(ctx))
	require.NoError(t, h.engine.SendDailyDigest(ctx))

	sent := h.notifier.notifications()
	require.Len(t, sent, 2)
	assert.Equal(t, notify.TypeTest, sent[0].Data.Type)
	assert.Equal(t, notify.TypeDailyDigest, sent[1].Data.Type)
	assert.Equal(t, "2 top stories: Story b; Story a", sent[1].Body)
}

func TestSendTestNotification_WithoutNotifier(t *testing.T) {
	e := NewEngine(newFakeClient(), newFakeStore(), &fakeMonitor{connected: true}, Options{})
	assert.ErrorIs(t, e.SendTestNotification(context.Background()), ErrNoNotifier)
}
