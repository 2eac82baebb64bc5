package tui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/glabrego/newsbox-cli/internal/timeline"
	"github.com/glabrego/newsbox-cli/internal/tui/state"
)

var reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}

	width := m.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")
	b.WriteString(m.renderQueuePills(width))
	b.WriteString("\n")
	b.WriteString(m.renderProgressLine())
	b.WriteString("\n\n")
	b.WriteString(m.renderArticleList(width))
	b.WriteString("\n")
	if m.status != "" {
		style := m.theme.StateIdle
		if m.warn {
			style = m.theme.StateWarn
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.theme.MetaLabel.Render("j/k move · m read · x star · o open · a folder read · s skip · n next · R restart · r sync · ? help"))
	return b.String()
}

func (m Model) renderHeader(width int) string {
	left := m.theme.Title.Render("NewsBox") + "  " +
		m.theme.UnreadCount.Render(fmt.Sprintf("%d unread", m.view.TotalUnread))

	var right string
	switch {
	case m.loading || m.view.Syncing:
		right = m.theme.StateLoad.Render("syncing…")
	case m.view.LastUpdateError != "":
		right = m.theme.StateWarn.Render("sync error")
	case m.view.LastSynced > 0:
		at := time.UnixMilli(m.view.LastSynced).Local().Format("15:04")
		right = m.theme.StateIdle.Render("synced " + at)
	default:
		right = m.theme.MetaValue.Render("not synced")
	}

	gap := width - visibleLen(left) - visibleLen(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderQueuePills(width int) string {
	if len(m.view.Queue) == 0 {
		return m.theme.MetaValue.Render("No folders with unread articles")
	}

	pills := make([]string, 0, len(m.view.Queue))
	for _, entry := range m.view.Queue {
		label := fmt.Sprintf("%s %d", entry.Name, entry.UnreadCount)
		if entry.Status == timeline.StatusSkipped {
			label = entry.Name + " skipped"
		}
		style := m.theme.StylePill(entry.Status, entry.ID == m.view.ActiveFolderID)
		pills = append(pills, style.Render(label))
	}

	line := strings.Join(pills, " ")
	if visibleLen(line) > width {
		line = truncateRunes(line, width)
	}
	return line
}

func (m Model) renderProgressLine() string {
	progress := m.view.Progress
	if progress.AllViewed {
		if len(m.view.Queue) == 0 {
			return m.theme.StateIdle.Render("All caught up")
		}
		return m.theme.StateIdle.Render("All folders viewed. Press R to restart the queue")
	}

	position := 0
	for i, entry := range m.view.Queue {
		if entry.ID == progress.CurrentFolderID {
			position = i + 1
			break
		}
	}

	line := fmt.Sprintf("Folder %d of %d", position, len(m.view.Queue))
	if progress.NextFolderID != 0 {
		for _, entry := range m.view.Queue {
			if entry.ID == progress.NextFolderID {
				line += " · up next: " + entry.Name
				break
			}
		}
	}
	return m.theme.MetaValue.Render(line)
}

func (m Model) renderArticleList(width int) string {
	articles := m.view.ActiveArticles()
	if len(articles) == 0 {
		return m.theme.MetaValue.Render("  Nothing to read in this folder")
	}

	listHeight := state.ArticleListHeight(m.height, m.status != "")
	start, end := state.CenteredWindow(len(articles), m.cursor, listHeight)

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderArticleLine(articles[i], i == m.cursor, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderArticleLine(article timeline.ArticlePreview, active bool, width int) string {
	cursorMarker := " "
	if active {
		cursorMarker = ">"
	}
	readMarker := " "
	if article.Unread {
		readMarker = "●"
	}
	prefix := fmt.Sprintf(" %s %s ", cursorMarker, readMarker)

	date := time.Unix(article.PubDate, 0).UTC().Format(time.DateOnly)
	meta := "[" + article.FeedName + " · " + date + "]"

	available := width - visibleLen(prefix) - 1 - visibleLen(meta)
	if available < 1 {
		available = 1
	}
	label := truncateRunes(strings.TrimSpace(article.Title), available)
	styled := m.theme.StyleArticleTitle(article, label)

	gap := width - visibleLen(prefix) - visibleLen(label) - visibleLen(meta)
	if gap < 1 {
		gap = 1
	}
	return m.theme.RenderActiveLine(active, prefix+styled+strings.Repeat(" ", gap)+m.theme.MetaValue.Render(meta))
}

func (m Model) renderHelp() string {
	lines := []string{
		m.theme.Title.Render("NewsBox keys"),
		"",
		"  j / k      select next / previous article",
		"  g / G      jump to top / bottom",
		"  m          mark selected article read",
		"  x          star / unstar selected article",
		"  o          open selected article in browser",
		"  a          mark whole folder read",
		"  s          skip folder (moves to end of queue)",
		"  n / tab    jump to next folder",
		"  R          restart queue (requeue skipped folders)",
		"  r          sync with server",
		"  q          quit",
		"",
		m.theme.MetaLabel.Render("press q or esc to close"),
	}
	return strings.Join(lines, "\n")
}

func visibleLen(s string) int {
	return len([]rune(reANSICodes.ReplaceAllString(s, "")))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
