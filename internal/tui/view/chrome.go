package view

import (
	"fmt"
	"strings"

	tuitheme "github.com/glabrego/newsreader/internal/tui/theme"
)

func Toolbar(inDetail, inSearchInput bool) string {
	if inSearchInput {
		return "type query | enter search | esc cancel"
	}
	if inDetail {
		return "j/k scroll | b bookmark | esc back | q quit"
	}
	return "j/k move | tab/shift+tab switch | enter read | r refresh | n more | s sort | b bookmark | / search | x clear cache | q quit"
}

func TabBar(labels []string, active int, th tuitheme.Theme) string {
	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = th.RenderTab(i == active, label)
	}
	return strings.Join(parts, "")
}

func Footer(tab, sort string, page, shown int, searchQuery string, th tuitheme.Theme) string {
	parts := []string{
		th.MetaLabel.Render("tab") + " " + th.MetaValue.Render(tab),
		th.MetaLabel.Render("sort") + " " + th.MetaValue.Render(sort),
		th.MetaLabel.Render("page") + " " + th.MetaValue.Render(fmt.Sprintf("%d", page)),
		th.MetaValue.Render(fmt.Sprintf("%d shown", shown)),
	}
	if searchQuery != "" {
		parts = append(parts, th.MetaLabel.Render("search")+" "+th.MetaValue.Render(fmt.Sprintf("%q", searchQuery)))
	}
	return strings.Join(parts, " • ")
}

func Message(loading, offline bool, warning, status string, th tuitheme.Theme) string {
	state := "idle"
	stateLabel := th.StateIdle.Render("state")
	switch {
	case warning != "":
		state = "warning"
		stateLabel = th.StateWarn.Render("state")
	case loading:
		state = "loading"
		stateLabel = th.StateLoad.Render("state")
	}
	main := "Ready"
	if warning != "" {
		main = warning
	} else if status != "" {
		main = status
	}
	line := fmt.Sprintf("%s: %s | %s", stateLabel, state, th.MetaValue.Render(main))
	if offline {
		line = th.Offline.Render("OFFLINE") + " " + line
	}
	return line
}
