package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glabrego/newsreader/internal/news"
	"github.com/glabrego/newsreader/internal/notify"
)

func at(hour int) time.Time {
	return time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC)
}

func article(url string, hour int) news.Article {
	return news.Article{URL: url, Title: "Story " + url, PublishedAt: at(hour)}
}

func urlsOf(articles []news.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.URL)
	}
	return out
}

type fakeClient struct {
	mu          sync.Mutex
	pages       map[string][][]news.Article
	err         error
	results     []news.Article
	searchErr   error
	calls       int
	searchCalls int
	// hook runs after the response is computed and before it is returned.
	hook func(category string, page, call int)
}

func newFakeClient() *fakeClient {
	return &fakeClient{pages: make(map[string][][]news.Article)}
}

func (f *fakeClient) setPages(category string, pages ...[]news.Article) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[category] = pages
}

func (f *fakeClient) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeClient) TopHeadlines(_ context.Context, _ string, category string, _ int, page int) ([]news.Article, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	err := f.err
	var out []news.Article
	if pages := f.pages[category]; page-1 < len(pages) {
		out = append(out, pages[page-1]...)
	}
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(category, page, call)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeClient) Search(context.Context, string, int, int) ([]news.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]news.Article(nil), f.results...), nil
}

type fakeStore struct {
	mu        sync.Mutex
	feeds     map[string][]news.Article
	fetchedAt map[string]time.Time
	bookmarks []news.Article
	sort      news.SortOption
	saveErr   error
	readErr   error
	cleared   bool
	// onRead runs at the start of every Cached call, outside the lock.
	onRead func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		feeds:     make(map[string][]news.Article),
		fetchedAt: make(map[string]time.Time),
	}
}

func (f *fakeStore) seed(sel news.Selector, articles ...news.Article) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds[sel.String()] = articles
}

func (f *fakeStore) feed(sel news.Selector) []news.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]news.Article(nil), f.feeds[sel.String()]...)
}

func (f *fakeStore) savedBookmarks() []news.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]news.Article(nil), f.bookmarks...)
}

func (f *fakeStore) Cached(_ context.Context, sel news.Selector) ([]news.Article, error) {
	f.mu.Lock()
	onRead := f.onRead
	f.mu.Unlock()
	if onRead != nil {
		onRead()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]news.Article(nil), f.feeds[sel.String()]...), nil
}

func (f *fakeStore) SaveCached(_ context.Context, sel news.Selector, articles []news.Article, fetchedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.feeds[sel.String()] = append([]news.Article(nil), articles...)
	f.fetchedAt[sel.String()] = fetchedAt
	return nil
}

func (f *fakeStore) CachedCategories(context.Context) (map[string][]news.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	out := make(map[string][]news.Article)
	for key, articles := range f.feeds {
		if name, ok := strings.CutPrefix(key, "category:"); ok {
			out[name] = append([]news.Article(nil), articles...)
		}
	}
	return out, nil
}

func (f *fakeStore) Bookmarks(context.Context) ([]news.Article, error) {
	return f.savedBookmarks(), nil
}

func (f *fakeStore) SaveBookmarks(_ context.Context, articles []news.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.bookmarks = append([]news.Article(nil), articles...)
	return nil
}

func (f *fakeStore) LastFetchTime(context.Context) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.fetchedAt[news.Global.String()]
	return t, ok, nil
}

func (f *fakeStore) FetchTime(_ context.Context, sel news.Selector) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.fetchedAt[sel.String()]
	return t, ok, nil
}

func (f *fakeStore) SortOption(context.Context) (news.SortOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sort == "" {
		return news.DefaultSort, nil
	}
	return f.sort, nil
}

func (f *fakeStore) SaveSortOption(_ context.Context, opt news.SortOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sort = opt
	return nil
}

func (f *fakeStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds = make(map[string][]news.Article)
	f.fetchedAt = make(map[string]time.Time)
	f.cleared = true
	return nil
}

type fakeMonitor struct {
	mu        sync.Mutex
	connected bool
	listeners []func(bool)
}

func (f *fakeMonitor) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeMonitor) Subscribe(fn func(bool)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
	return func() {}
}

func (f *fakeMonitor) set(connected bool) {
	f.mu.Lock()
	f.connected = connected
	listeners := append(([]func(bool))(nil), f.listeners...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(connected)
	}
}

// fakeProber answers every check with reachable and reports it to monitor.
type fakeProber struct {
	mu      sync.Mutex
	monitor *fakeMonitor
	checks  int
}

func (p *fakeProber) Check(context.Context) bool {
	p.mu.Lock()
	p.checks++
	p.mu.Unlock()
	p.monitor.set(true)
	return true
}

func (p *fakeProber) checkCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checks
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (r *recordingNotifier) Dispatch(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) notifications() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

type staticPrefs struct {
	prefs notify.Preferences
	err   error
}

func (s staticPrefs) NotificationPreferences(context.Context) (notify.Preferences, error) {
	return s.prefs, s.err
}

type harness struct {
	client   *fakeClient
	store    *fakeStore
	monitor  *fakeMonitor
	prober   *fakeProber
	notifier *recordingNotifier
	engine   *Engine
}

func newHarness(prefs PreferenceSource) *harness {
	return buildHarness(prefs, false)
}

// newProbingHarness wires a prober that always finds the network reachable.
func newProbingHarness() *harness {
	return buildHarness(nil, true)
}

func buildHarness(prefs PreferenceSource, withProber bool) *harness {
	h := &harness{
		client:   newFakeClient(),
		store:    newFakeStore(),
		monitor:  &fakeMonitor{connected: true},
		notifier: &recordingNotifier{},
	}
	opts := Options{
		Country:     "us",
		PageSize:    3,
		Notifier:    h.notifier,
		Preferences: prefs,
		Logger:      slog.New(slog.DiscardHandler),
		Now:         func() time.Time { return at(12) },
	}
	if withProber {
		h.prober = &fakeProber{monitor: h.monitor}
		opts.Prober = h.prober
	}
	h.engine = NewEngine(h.client, h.store, h.monitor, opts)
	return h
}
