package app

import (
	"maps"
	"slices"
	"time"

	"github.com/glabrego/newsreader/internal/news"
)

// BucketState is a read-only view of one paginated bucket.
type BucketState struct {
	Articles        []news.Article
	CurrentPage     int
	HasMoreArticles bool
	IsLoading       bool
	IsLoadingMore   bool
	LastFetched     time.Time
}

// State is a deep copy of everything the engine exposes to a UI.
type State struct {
	Global      BucketState
	Categories  map[string]BucketState
	Search      []news.Article
	SearchQuery string
	Searching   bool
	Bookmarks   []news.Article
	Sort        news.SortOption
	Offline     bool
	Error       string
	// Seq increases with every snapshot. A consumer that receives snapshots
	// out of order keeps the one with the highest Seq.
	Seq uint64
}

type bucket struct {
	articles    []news.Article
	page        int
	hasMore     bool
	loading     bool
	loadingMore bool
	lastFetched time.Time
	// generation identifies the latest fetch; older responses are dropped.
	generation uint64
}

func newBucket() *bucket {
	return &bucket{hasMore: true}
}

func (b *bucket) reset() {
	b.articles = nil
	b.page = 0
	b.hasMore = true
	b.lastFetched = time.Time{}
}

func (b *bucket) state() BucketState {
	return BucketState{
		Articles:        slices.Clone(b.articles),
		CurrentPage:     b.page,
		HasMoreArticles: b.hasMore,
		IsLoading:       b.loading,
		IsLoadingMore:   b.loadingMore,
		LastFetched:     b.lastFetched,
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() State {
	e.seq++
	categories := make(map[string]BucketState, len(e.categories))
	for name, b := range e.categories {
		categories[name] = b.state()
	}
	return State{
		Global:      e.global.state(),
		Categories:  categories,
		Search:      slices.Clone(e.search),
		SearchQuery: e.searchQuery,
		Searching:   e.searching,
		Bookmarks:   slices.Clone(e.bookmarks),
		Sort:        e.sort,
		Offline:     e.offline,
		Error:       e.err,
		Seq:         e.seq,
	}
}

// Bucket returns a copy of one paginated bucket. Unknown categories read as
// an empty bucket that still has articles to load.
func (e *Engine) Bucket(sel news.Selector) BucketState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sel.IsGlobal() {
		return e.global.state()
	}
	if b, ok := e.categories[sel.Category]; ok {
		return b.state()
	}
	return newBucket().state()
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that changed the state, outside the engine lock.
func (e *Engine) Subscribe(fn func(State)) (unsubscribe func()) {
	e.listenersMu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	e.listenersMu.Unlock()

	return func() {
		e.listenersMu.Lock()
		delete(e.listeners, id)
		e.listenersMu.Unlock()
	}
}

func (e *Engine) publish() {
	e.listenersMu.Lock()
	if len(e.listeners) == 0 {
		e.listenersMu.Unlock()
		return
	}
	listeners := slices.Collect(maps.Values(e.listeners))
	e.listenersMu.Unlock()

	snap := e.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}
