package state

import (
	"github.com/glabrego/newsreader/internal/app"
	"github.com/glabrego/newsreader/internal/news"
)

// Tab identifies one list the reader can show.
type Tab struct {
	Label    string
	Selector news.Selector
	Kind     TabKind
}

type TabKind int

const (
	TabFeed TabKind = iota
	TabBookmarks
	TabSearch
)

// Tabs returns the headline tab, one tab per category, then bookmarks and
// search.
func Tabs(categories []string) []Tab {
	tabs := make([]Tab, 0, len(categories)+3)
	tabs = append(tabs, Tab{Label: "Top", Selector: news.Global, Kind: TabFeed})
	for _, name := range categories {
		sel := news.Category(name)
		tabs = append(tabs, Tab{Label: sel.Category, Selector: sel, Kind: TabFeed})
	}
	tabs = append(tabs,
		Tab{Label: "Bookmarks", Kind: TabBookmarks},
		Tab{Label: "Search", Kind: TabSearch},
	)
	return tabs
}

// Articles picks the list a tab shows out of an engine snapshot.
func Articles(s app.State, tab Tab) []news.Article {
	switch tab.Kind {
	case TabBookmarks:
		return s.Bookmarks
	case TabSearch:
		return s.Search
	}
	return BucketFor(s, tab.Selector).Articles
}

func BucketFor(s app.State, sel news.Selector) app.BucketState {
	if sel.IsGlobal() {
		return s.Global
	}
	if b, ok := s.Categories[sel.Category]; ok {
		return b
	}
	return app.BucketState{HasMoreArticles: true}
}

// NearEnd reports whether the cursor is close enough to the bottom of the
// list that the next page should be requested.
func NearEnd(cursor, size int) bool {
	return size > 0 && cursor >= size-3
}

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

func PageStep(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 6
	if hasStatus {
		headerLines += 2
	}
	step := height - headerLines
	if step < 3 {
		step = 3
	}
	return step
}

func CenteredWindow(totalRows, cursor, height int) (int, int) {
	if totalRows <= 0 {
		return 0, 0
	}
	if height <= 0 || totalRows <= height {
		return 0, totalRows
	}
	cursor = ClampCursor(cursor, totalRows)
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	maxStart := totalRows - height
	if start > maxStart {
		start = maxStart
	}
	return start, start + height
}
