package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/glabrego/newsreader/internal/news"
	"github.com/glabrego/newsreader/internal/notify"
)

const DefaultPageSize = 20

// User-facing messages written to State.Error.
const (
	MsgNoCachedOffline  = "No cached articles available offline"
	MsgShowingCached    = "Showing cached articles. Please check your connection."
	MsgNoOfflineMatches = "No matches in offline mode"
)

type FeedClient interface {
	TopHeadlines(ctx context.Context, country, category string, pageSize, page int) ([]news.Article, error)
	Search(ctx context.Context, query string, pageSize, page int) ([]news.Article, error)
}

type ArticleStore interface {
	Cached(ctx context.Context, sel news.Selector) ([]news.Article, error)
	SaveCached(ctx context.Context, sel news.Selector, articles []news.Article, fetchedAt time.Time) error
	CachedCategories(ctx context.Context) (map[string][]news.Article, error)
	Bookmarks(ctx context.Context) ([]news.Article, error)
	SaveBookmarks(ctx context.Context, articles []news.Article) error
	LastFetchTime(ctx context.Context) (time.Time, bool, error)
	FetchTime(ctx context.Context, sel news.Selector) (time.Time, bool, error)
	SortOption(ctx context.Context) (news.SortOption, error)
	SaveSortOption(ctx context.Context, opt news.SortOption) error
	Clear(ctx context.Context) error
}

type ConnectivityMonitor interface {
	IsConnected() bool
	Subscribe(fn func(connected bool)) (unsubscribe func())
}

// ConnectivityProber re-checks reachability on demand. Concurrent checks
// are expected to share one probe.
type ConnectivityProber interface {
	Check(ctx context.Context) bool
}

type PreferenceSource interface {
	NotificationPreferences(ctx context.Context) (notify.Preferences, error)
}

type Options struct {
	Country  string
	PageSize int
	// Notifier is optional; without it no delta notifications are sent.
	Notifier notify.Dispatcher
	// Preferences is optional; notify.DefaultPreferences applies without it.
	Preferences PreferenceSource
	// Prober is optional; with it a refresh or search made while offline
	// re-probes before falling back to the store.
	Prober ConnectivityProber
	Logger *slog.Logger
	Now    func() time.Time
}

// Engine owns every in-memory article bucket. It fetches pages from the
// remote client while online, falls back to the store otherwise, keeps all
// buckets deduplicated and sorted, and reports new content to the notifier.
//
// Engine starts no goroutines of its own. Operations may be called
// concurrently; the state lock is never held across network or store calls.
type Engine struct {
	client   FeedClient
	store    ArticleStore
	monitor  ConnectivityMonitor
	notifier notify.Dispatcher
	prefs    PreferenceSource
	prober   ConnectivityProber
	logger   *slog.Logger
	now      func() time.Time
	country  string
	pageSize int

	unsubscribe func()

	// bookmarkMu orders bookmark mutations with their persistence.
	bookmarkMu sync.Mutex

	mu          sync.Mutex
	global      *bucket
	categories  map[string]*bucket
	search      []news.Article
	searchQuery string
	searching   bool
	searchGen   uint64
	bookmarks   []news.Article
	sort        news.SortOption
	offline     bool
	err         string
	seq         uint64

	listenersMu  sync.Mutex
	nextListener int
	listeners    map[int]func(State)
}

func NewEngine(client FeedClient, store ArticleStore, monitor ConnectivityMonitor, opts Options) *Engine {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &Engine{
		client:     client,
		store:      store,
		monitor:    monitor,
		notifier:   opts.Notifier,
		prefs:      opts.Preferences,
		prober:     opts.Prober,
		logger:     opts.Logger,
		now:        opts.Now,
		country:    opts.Country,
		pageSize:   opts.PageSize,
		global:     newBucket(),
		categories: make(map[string]*bucket),
		sort:       news.DefaultSort,
		offline:    !monitor.IsConnected(),
		listeners:  make(map[int]func(State)),
	}
	e.unsubscribe = monitor.Subscribe(e.onConnectivityChange)
	return e
}

// Close detaches the engine from the connectivity monitor.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// reprobe asks the prober for a fresh answer when the monitor reports
// offline. The result reaches the engine through onConnectivityChange.
func (e *Engine) reprobe(ctx context.Context) {
	if e.prober == nil || e.monitor.IsConnected() {
		return
	}
	e.prober.Check(ctx)
}

func (e *Engine) onConnectivityChange(connected bool) {
	e.mu.Lock()
	e.offline = !connected
	e.mu.Unlock()
	e.publish()
}

// Restore loads the persisted sort option and bookmarks.
func (e *Engine) Restore(ctx context.Context) error {
	opt, err := e.store.SortOption(ctx)
	if err != nil {
		return fmt.Errorf("load sort option: %w", err)
	}
	if !opt.Valid() {
		opt = news.DefaultSort
	}
	bookmarks, err := e.store.Bookmarks(ctx)
	if err != nil {
		return fmt.Errorf("load bookmarks: %w", err)
	}

	e.mu.Lock()
	e.bookmarks = news.Sorted(news.Dedupe(bookmarks), opt)
	e.sortAllLocked(opt)
	e.mu.Unlock()
	e.publish()
	return nil
}

// LastFetchTime reports when the global feed was last fetched online.
func (e *Engine) LastFetchTime(ctx context.Context) (time.Time, bool) {
	t, ok, err := e.store.LastFetchTime(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "read last fetch time", "error", err)
		return time.Time{}, false
	}
	return t, ok
}

// ClearCache drops persisted feed snapshots and every in-memory feed bucket.
// Bookmarks are kept.
func (e *Engine) ClearCache(ctx context.Context) error {
	if err := e.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear article cache: %w", err)
	}

	e.mu.Lock()
	e.global.reset()
	for _, b := range e.categories {
		b.reset()
	}
	e.search = nil
	e.searchQuery = ""
	e.err = ""
	e.mu.Unlock()
	e.publish()
	return nil
}

// SetSortOption persists opt and re-sorts every bucket.
func (e *Engine) SetSortOption(ctx context.Context, opt news.SortOption) error {
	if !opt.Valid() {
		return fmt.Errorf("set sort option: invalid value %q", opt)
	}
	if err := e.store.SaveSortOption(ctx, opt); err != nil {
		e.logger.WarnContext(ctx, "persist sort option", "sort", string(opt), "error", err)
	}

	e.mu.Lock()
	e.sortAllLocked(opt)
	e.mu.Unlock()
	e.publish()
	return nil
}

func (e *Engine) sortAllLocked(opt news.SortOption) {
	e.sort = opt
	news.Sort(e.global.articles, opt)
	for _, b := range e.categories {
		news.Sort(b.articles, opt)
	}
	news.Sort(e.search, opt)
	news.Sort(e.bookmarks, opt)
}

func (e *Engine) bucketLocked(sel news.Selector) *bucket {
	if sel.IsGlobal() {
		return e.global
	}
	b, ok := e.categories[sel.Category]
	if !ok {
		b = newBucket()
		e.categories[sel.Category] = b
	}
	return b
}
