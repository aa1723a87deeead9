package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Title      lipgloss.Style
	Tab        lipgloss.Style
	ActiveTab  lipgloss.Style
	Source     lipgloss.Style
	ActiveLine lipgloss.Style
	MetaLabel  lipgloss.Style
	MetaValue  lipgloss.Style
	StateIdle  lipgloss.Style
	StateWarn  lipgloss.Style
	StateLoad  lipgloss.Style
	Offline    lipgloss.Style

	TitlePlain      lipgloss.Style
	TitleBookmarked lipgloss.Style
}

func Default() Theme {
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpYellow := lipgloss.Color("#f9e2af")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpTeal := lipgloss.Color("#94e2d5")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext1 := lipgloss.Color("#bac2de")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		Tab:        lipgloss.NewStyle().Foreground(cpOverlay1).Padding(0, 1),
		ActiveTab:  lipgloss.NewStyle().Foreground(cpLavender).Background(cpSurface0).Bold(true).Padding(0, 1),
		Source:     lipgloss.NewStyle().Foreground(cpTeal),
		ActiveLine: lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:  lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:  lipgloss.NewStyle().Foreground(cpSubtext1),
		StateIdle:  lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn:  lipgloss.NewStyle().Foreground(cpRed),
		StateLoad:  lipgloss.NewStyle().Foreground(cpPeach),
		Offline:    lipgloss.NewStyle().Foreground(cpYellow).Bold(true),

		TitlePlain:      lipgloss.NewStyle().Foreground(cpText),
		TitleBookmarked: lipgloss.NewStyle().Bold(true).Foreground(cpYellow),
	}
}

func (t Theme) StyleArticleTitle(bookmarked bool, title string) string {
	if title == "" {
		return title
	}
	if bookmarked {
		return t.TitleBookmarked.Render(title)
	}
	return t.TitlePlain.Render(title)
}

func (t Theme) RenderTab(active bool, label string) string {
	if active {
		return t.ActiveTab.Render(label)
	}
	return t.Tab.Render(label)
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}
