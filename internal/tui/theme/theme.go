package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/glabrego/newsbox-cli/internal/timeline"
)

type Theme struct {
	Title       lipgloss.Style
	Pill        lipgloss.Style
	PillActive  lipgloss.Style
	PillSkipped lipgloss.Style
	Section     lipgloss.Style
	UnreadCount lipgloss.Style
	ActiveLine  lipgloss.Style
	MetaLabel   lipgloss.Style
	MetaValue   lipgloss.Style
	StateIdle   lipgloss.Style
	StateWarn   lipgloss.Style
	StateLoad   lipgloss.Style

	TitleUnread  lipgloss.Style
	TitleStarred lipgloss.Style
	TitleRead    lipgloss.Style
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
	cpSubtext0 := lipgloss.Color("#a6adc8")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		Pill:        lipgloss.NewStyle().Foreground(cpLavender).Background(cpSurface0).Padding(0, 1),
		PillActive:  lipgloss.NewStyle().Bold(true).Foreground(cpSurface0).Background(cpMauve).Padding(0, 1),
		PillSkipped: lipgloss.NewStyle().Foreground(cpOverlay1).Background(cpSurface0).Padding(0, 1),
		Section:     lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
		UnreadCount: lipgloss.NewStyle().Foreground(cpYellow).Bold(true),
		ActiveLine:  lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:   lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:   lipgloss.NewStyle().Foreground(cpSubtext0),
		StateIdle:   lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn:   lipgloss.NewStyle().Foreground(cpRed),
		StateLoad:   lipgloss.NewStyle().Foreground(cpPeach),

		TitleUnread:  lipgloss.NewStyle().Bold(true).Foreground(cpText),
		TitleStarred: lipgloss.NewStyle().Italic(true).Foreground(cpLavender),
		TitleRead:    lipgloss.NewStyle().Foreground(cpSubtext0),
	}
}

func (t Theme) StyleArticleTitle(article timeline.ArticlePreview, label string) string {
	switch {
	case article.Starred:
		return t.TitleStarred.Render(label)
	case article.Unread:
		return t.TitleUnread.Render(label)
	default:
		return t.TitleRead.Render(label)
	}
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if active {
		return t.ActiveLine.Render(line)
	}
	return line
}

func (t Theme) StylePill(status timeline.FolderStatus, active bool) lipgloss.Style {
	switch {
	case active:
		return t.PillActive
	case status == timeline.StatusSkipped:
		return t.PillSkipped
	default:
		return t.Pill
	}
}
