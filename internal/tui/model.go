package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/newsreader/internal/app"
	"github.com/glabrego/newsreader/internal/news"
	"github.com/glabrego/newsreader/internal/render/article"
	tuistate "github.com/glabrego/newsreader/internal/tui/state"
	tuitheme "github.com/glabrego/newsreader/internal/tui/theme"
	tuiview "github.com/glabrego/newsreader/internal/tui/view"
)

const commandTimeout = 15 * time.Second

type Service interface {
	Snapshot() app.State
	FetchFeed(ctx context.Context, sel news.Selector, page int, refresh bool)
	LoadMore(ctx context.Context, sel news.Selector) bool
	Search(ctx context.Context, query string)
	ToggleBookmark(ctx context.Context, a news.Article) bool
	SetSortOption(ctx context.Context, opt news.SortOption) error
	ClearCache(ctx context.Context) error
}

// StateMsg carries an engine snapshot into the program. Send one from an
// engine subscription to keep the screen current while commands run.
type StateMsg struct {
	State app.State
}

type actionDoneMsg struct {
	state  app.State
	status string
	err    error
}

type Model struct {
	service   Service
	theme     tuitheme.Theme
	tabs      []tuistate.Tab
	tab       int
	cursor    int
	state     app.State
	inDetail  bool
	detail    news.Article
	detailTop int
	inputting bool
	input     string
	width     int
	height    int
	status    string
	err       error
}

func NewModel(service Service, categories []string) Model {
	m := Model{
		service: service,
		theme:   tuitheme.Default(),
		tabs:    tuistate.Tabs(categories),
	}
	if service != nil {
		m.state = service.Snapshot()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.service == nil {
		return nil
	}
	return fetchCmd(m.service, news.Global, 1, false)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case StateMsg:
		m.applyState(msg.State)
		return m, nil
	case actionDoneMsg:
		m.applyState(msg.state)
		m.err = msg.err
		if msg.status != "" {
			m.status = msg.status
		}
		return m, nil
	case tea.KeyMsg:
		if m.inputting {
			return m.updateInput(msg)
		}
		if m.inDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputting = false
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		m.inputting = false
		m.tab = len(m.tabs) - 1
		m.cursor = 0
		if m.service == nil {
			return m, nil
		}
		return m, searchCmd(m.service, m.input)
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeySpace:
		m.input += " "
		return m, nil
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.inDetail = false
		m.detailTop = 0
		return m, nil
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.detailTop > 0 {
			m.detailTop--
		}
		return m, nil
	case "down", "j":
		if m.detailTop < m.maxDetailTop() {
			m.detailTop++
		}
		return m, nil
	case "b":
		if m.service == nil {
			return m, nil
		}
		return m, bookmarkCmd(m.service, m.detail)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "down", "j":
		return m.moveCursorBy(1)
	case "up", "k":
		return m.moveCursorBy(-1)
	case "pgdown":
		return m.moveCursorBy(tuistate.PageStep(m.height, true))
	case "pgup":
		return m.moveCursorBy(-tuistate.PageStep(m.height, true))
	case "tab", "l":
		return m.switchTab((m.tab + 1) % len(m.tabs))
	case "shift+tab", "h":
		return m.switchTab((m.tab + len(m.tabs) - 1) % len(m.tabs))
	case "r":
		return m.refresh()
	case "n":
		return m.loadMore()
	case "s":
		if m.service == nil {
			return m, nil
		}
		next := news.SortOldest
		if m.state.Sort == news.SortOldest {
			next = news.SortNewest
		}
		return m, sortCmd(m.service, next)
	case "b":
		if a, ok := m.currentArticle(); ok && m.service != nil {
			return m, bookmarkCmd(m.service, a)
		}
		return m, nil
	case "/":
		m.inputting = true
		m.input = m.state.SearchQuery
		return m, nil
	case "enter":
		if a, ok := m.currentArticle(); ok {
			m.inDetail = true
			m.detail = a
			m.detailTop = 0
		}
		return m, nil
	case "x":
		if m.service == nil {
			return m, nil
		}
		m.cursor = 0
		return m, clearCacheCmd(m.service)
	}
	return m, nil
}

func (m Model) currentTab() tuistate.Tab {
	return m.tabs[m.tab]
}

func (m Model) articles() []news.Article {
	return tuistate.Articles(m.state, m.currentTab())
}

func (m Model) currentArticle() (news.Article, bool) {
	articles := m.articles()
	if len(articles) == 0 {
		return news.Article{}, false
	}
	return articles[tuistate.ClampCursor(m.cursor, len(articles))], true
}

// applyState keeps the newest snapshot; engine listeners may deliver them
// out of order.
func (m *Model) applyState(s app.State) {
	if s.Seq < m.state.Seq {
		return
	}
	m.state = s
	m.clampCursor()
}

func (m *Model) clampCursor() {
	m.cursor = tuistate.ClampCursor(m.cursor, len(m.articles()))
}

func (m Model) moveCursorBy(delta int) (tea.Model, tea.Cmd) {
	size := len(m.articles())
	m.cursor = tuistate.ClampCursor(m.cursor+delta, size)
	if delta > 0 && tuistate.NearEnd(m.cursor, size) {
		return m.loadMore()
	}
	return m, nil
}

func (m Model) switchTab(next int) (tea.Model, tea.Cmd) {
	m.tab = next
	m.cursor = 0
	tab := m.currentTab()
	if tab.Kind != tuistate.TabFeed || m.service == nil {
		return m, nil
	}
	b := tuistate.BucketFor(m.state, tab.Selector)
	if len(b.Articles) > 0 || b.IsLoading || b.CurrentPage > 0 {
		return m, nil
	}
	return m, fetchCmd(m.service, tab.Selector, 1, false)
}

func (m Model) refresh() (tea.Model, tea.Cmd) {
	if m.service == nil {
		return m, nil
	}
	tab := m.currentTab()
	switch tab.Kind {
	case tuistate.TabFeed:
		m.cursor = 0
		return m, fetchCmd(m.service, tab.Selector, 1, true)
	case tuistate.TabSearch:
		return m, searchCmd(m.service, m.state.SearchQuery)
	}
	return m, nil
}

func (m Model) loadMore() (tea.Model, tea.Cmd) {
	tab := m.currentTab()
	if tab.Kind != tuistate.TabFeed || m.service == nil {
		return m, nil
	}
	b := tuistate.BucketFor(m.state, tab.Selector)
	if b.IsLoading || b.IsLoadingMore || !b.HasMoreArticles {
		return m, nil
	}
	return m, loadMoreCmd(m.service, tab.Selector)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("News Reader"))
	b.WriteString("\n")
	b.WriteString(tuiview.TabBar(m.tabLabels(), m.tab, m.theme))
	b.WriteString("\n")
	b.WriteString(tuiview.Toolbar(m.inDetail, m.inputting))
	b.WriteString("\n\n")

	if m.inputting {
		b.WriteString("Search: " + m.input + "█\n\n")
	}
	if m.inDetail {
		b.WriteString(m.detailView())
	} else {
		b.WriteString(m.listView())
	}

	b.WriteString("\n")
	b.WriteString(tuiview.Message(m.loading(), m.state.Offline, m.warning(), m.status, m.theme))
	b.WriteString("\n")
	bucket := tuistate.BucketFor(m.state, m.currentTab().Selector)
	b.WriteString(tuiview.Footer(m.currentTab().Label, string(m.state.Sort), bucket.CurrentPage, len(m.articles()), m.state.SearchQuery, m.theme))
	b.WriteString("\n")
	return b.String()
}

func (m Model) listView() string {
	articles := m.articles()
	tab := m.currentTab()
	bucket := tuistate.BucketFor(m.state, tab.Selector)
	if len(articles) == 0 {
		switch {
		case tab.Kind == tuistate.TabFeed && bucket.IsLoading:
			return "Loading articles...\n"
		case tab.Kind == tuistate.TabSearch && m.state.Searching:
			return "Searching...\n"
		case tab.Kind == tuistate.TabBookmarks:
			return "No bookmarks yet.\n"
		}
		return "No articles available.\n"
	}

	bookmarked := make(map[string]bool, len(m.state.Bookmarks))
	for _, a := range m.state.Bookmarks {
		bookmarked[a.URL] = true
	}

	var b strings.Builder
	start, end := tuistate.CenteredWindow(len(articles), m.cursor, m.listHeight())
	for i := start; i < end; i++ {
		b.WriteString(m.renderArticleLine(articles[i], bookmarked[articles[i].URL], i == m.cursor))
		b.WriteString("\n")
	}
	if tab.Kind == tuistate.TabFeed && bucket.IsLoadingMore {
		b.WriteString("Loading more...\n")
	}
	return b.String()
}

func (m Model) renderArticleLine(a news.Article, bookmarked, active bool) string {
	prefix := "  "
	if active {
		prefix = "> "
	}
	line := prefix + m.theme.StyleArticleTitle(bookmarked, a.Title)
	if a.Source.Name != "" {
		line += " " + m.theme.Source.Render(a.Source.Name)
	}
	if !a.PublishedAt.IsZero() {
		line += " " + m.theme.MetaLabel.Render(a.PublishedAt.Local().Format("2006-01-02 15:04"))
	}
	return m.theme.RenderActiveLine(active, line)
}

func (m Model) detailLines() []string {
	a := m.detail
	lines := []string{a.Title}
	meta := a.Source.Name
	if a.Author != "" {
		meta = strings.TrimSpace(meta + " | " + a.Author)
	}
	if !a.PublishedAt.IsZero() {
		meta = strings.TrimSpace(meta + " | " + a.PublishedAt.Local().Format(time.RFC1123))
	}
	if meta != "" {
		lines = append(lines, meta)
	}
	lines = append(lines, a.URL, "")
	lines = append(lines, article.Lines(a, m.contentWidth())...)
	if article.IsTruncated(a.Content) {
		lines = append(lines, "", "Article truncated. Full text at the source URL.")
	}
	return lines
}

func (m Model) detailView() string {
	lines := m.detailLines()
	top := min(m.detailTop, len(lines))
	end := min(top+m.listHeight(), len(lines))
	return strings.Join(lines[top:end], "\n") + "\n"
}

func (m Model) maxDetailTop() int {
	return max(len(m.detailLines())-m.listHeight(), 0)
}

func (m Model) tabLabels() []string {
	labels := make([]string, len(m.tabs))
	for i, tab := range m.tabs {
		labels[i] = tab.Label
	}
	return labels
}

func (m Model) loading() bool {
	if m.state.Searching {
		return true
	}
	b := tuistate.BucketFor(m.state, m.currentTab().Selector)
	return b.IsLoading || b.IsLoadingMore
}

func (m Model) warning() string {
	if m.err != nil {
		return m.err.Error()
	}
	return m.state.Error
}

func (m Model) contentWidth() int {
	if m.width <= 4 {
		return 80
	}
	return m.width - 2
}

func (m Model) listHeight() int {
	if m.height <= 0 {
		return 20
	}
	return tuistate.PageStep(m.height, true) - 2
}

func fetchCmd(service Service, sel news.Selector, page int, refresh bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		service.FetchFeed(ctx, sel, page, refresh)
		return actionDoneMsg{state: service.Snapshot()}
	}
}

func loadMoreCmd(service Service, sel news.Selector) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		service.LoadMore(ctx, sel)
		return actionDoneMsg{state: service.Snapshot()}
	}
}

func searchCmd(service Service, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		service.Search(ctx, query)
		return actionDoneMsg{state: service.Snapshot()}
	}
}

func bookmarkCmd(service Service, a news.Article) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		status := "Bookmark removed"
		if service.ToggleBookmark(ctx, a) {
			status = "Bookmark added"
		}
		return actionDoneMsg{state: service.Snapshot(), status: status}
	}
}

func sortCmd(service Service, opt news.SortOption) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := service.SetSortOption(ctx, opt); err != nil {
			return actionDoneMsg{state: service.Snapshot(), err: fmt.Errorf("sort: %w", err)}
		}
		return actionDoneMsg{state: service.Snapshot(), status: "Sorted by " + string(opt)}
	}
}

func clearCacheCmd(service Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := service.ClearCache(ctx); err != nil {
			return actionDoneMsg{state: service.Snapshot(), err: fmt.Errorf("clear cache: %w", err)}
		}
		return actionDoneMsg{state: service.Snapshot(), status: "Cache cleared"}
	}
}
