package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/newsbox-cli/internal/app"
	"github.com/glabrego/newsbox-cli/internal/timeline"
	"github.com/glabrego/newsbox-cli/internal/tui/actions"
	"github.com/glabrego/newsbox-cli/internal/tui/platform"
	"github.com/glabrego/newsbox-cli/internal/tui/state"
	tuitheme "github.com/glabrego/newsbox-cli/internal/tui/theme"
)

const statusClearAfter = 4 * time.Second

// Service is the orchestrator surface the TUI needs: the mutating
// operations plus the read snapshot.
type Service interface {
	actions.Service
	View() app.View
}

type readFlushMsg struct {
	ids []int64
}

type clearStatusMsg struct {
	id int
}

type Model struct {
	service Service
	theme   tuitheme.Theme

	view       app.View
	selectedID int64
	cursor     int

	batcher *timeline.ReadBatcher
	flushCh chan []int64
	seen    map[int64]struct{}

	width    int
	height   int
	loading  bool
	status   string
	statusID int
	warn     bool
	showHelp bool
}

func NewModel(service Service, debounce time.Duration) Model {
	flushCh := make(chan []int64, 8)
	return Model{
		service: service,
		theme:   tuitheme.Default(),
		view:    service.View(),
		batcher: timeline.NewReadBatcher(debounce, func(ids []int64) { flushCh <- ids }),
		flushCh: flushCh,
		seen:    map[int64]struct{}{},
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		actions.RefreshCmd(m.service, "startup"),
		waitForReadFlush(m.flushCh),
	)
}

func waitForReadFlush(ch chan []int64) tea.Cmd {
	return func() tea.Msg {
		return readFlushMsg{ids: <-ch}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case readFlushMsg:
		return m, tea.Batch(
			actions.MarkItemsReadCmd(m.service, msg.ids),
			waitForReadFlush(m.flushCh),
		)

	case actions.SyncSuccessMsg:
		m.loading = false
		m.refreshView()
		return m.withStatus("Synced in "+msg.Duration.Round(time.Millisecond).String(), false)

	case actions.SyncErrorMsg:
		m.loading = false
		m.refreshView()
		return m.withStatus("Sync failed: "+msg.Err.Error(), true)

	case actions.FolderReadSuccessMsg:
		m.refreshView()
		return m.withStatus("Marked "+msg.Name+" read", false)

	case actions.FolderReadErrorMsg:
		m.refreshView()
		return m.withStatus("Mark read failed, will retry on next sync: "+msg.Err.Error(), true)

	case actions.FolderSkippedMsg:
		m.refreshView()
		return m.withStatus("Skipped "+msg.Name, false)

	case actions.QueueRestartedMsg:
		m.refreshView()
		return m.withStatus("Queue restarted", false)

	case actions.ActiveFolderSetMsg:
		m.refreshView()
		return m, nil

	case actions.ItemsMarkedReadMsg:
		m.refreshView()
		return m, nil

	case actions.ItemStarToggledMsg:
		m.refreshView()
		return m, nil

	case actions.OpenURLSuccessMsg:
		return m.withStatus(msg.Status, false)

	case actions.OpenURLErrorMsg:
		return m.withStatus(msg.Err.Error(), true)

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "q", "esc", "?":
			m.showHelp = false
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	articles := m.view.ActiveArticles()
	orderedIDs := state.OrderedArticleIDs(articles)

	switch msg.String() {
	case "ctrl+c", "q":
		m.batcher.Flush()
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "r":
		m.loading = true
		return m, actions.RefreshCmd(m.service, "manual")

	case "j", "down":
		m.selectedID = timeline.NextSelectionID(m.selectedID, orderedIDs)
		m.syncCursor(articles)
		m.markScrolledPast(articles)
		return m, nil

	case "k", "up":
		m.selectedID = timeline.PreviousSelectionID(m.selectedID, orderedIDs)
		m.syncCursor(articles)
		return m, nil

	case "g", "home":
		m.selectedID = timeline.TopmostVisibleID(orderedIDs)
		m.syncCursor(articles)
		return m, nil

	case "G", "end":
		if len(orderedIDs) > 0 {
			m.selectedID = orderedIDs[len(orderedIDs)-1]
		}
		m.syncCursor(articles)
		m.markScrolledPast(articles)
		return m, nil

	case "tab", "n":
		if next := m.view.Progress.NextFolderID; next != 0 {
			m.resetSelection()
			return m, actions.SetActiveFolderCmd(m.service, next)
		}
		return m, nil

	case "a":
		if folder, ok := m.view.ActiveFolder(); ok {
			m.resetSelection()
			return m, actions.MarkFolderReadCmd(m.service, folder.ID, folder.Name)
		}
		return m, nil

	case "s":
		if folder, ok := m.view.ActiveFolder(); ok {
			m.resetSelection()
			return m, actions.SkipFolderCmd(m.service, folder.ID, folder.Name)
		}
		return m, nil

	case "R":
		m.resetSelection()
		return m, actions.RestartCmd(m.service)

	case "m":
		if id := m.selectedOrTopmost(orderedIDs); id != 0 {
			return m, actions.MarkItemsReadCmd(m.service, []int64{id})
		}
		return m, nil

	case "x":
		if id := m.selectedOrTopmost(orderedIDs); id != 0 {
			return m, actions.ToggleStarredCmd(m.service, id)
		}
		return m, nil

	case "o":
		idx := state.ArticleIndexByID(articles, m.selectedOrTopmost(orderedIDs))
		if idx == -1 {
			return m, nil
		}
		url, err := platform.ValidateArticleURL(articles[idx].URL)
		if err != nil {
			return m.withStatus(err.Error(), true)
		}
		return m, actions.OpenURLCmd(url, platform.OpenURLInBrowser)
	}

	return m, nil
}

func (m *Model) refreshView() {
	m.view = m.service.View()
	articles := m.view.ActiveArticles()
	if state.ArticleIndexByID(articles, m.selectedID) == -1 {
		m.selectedID = timeline.TopmostVisibleID(state.OrderedArticleIDs(articles))
	}
	m.syncCursor(articles)
}

func (m *Model) syncCursor(articles []timeline.ArticlePreview) {
	idx := state.ArticleIndexByID(articles, m.selectedID)
	if idx == -1 {
		idx = 0
	}
	m.cursor = state.ClampCursor(idx, len(articles))
}

func (m *Model) resetSelection() {
	m.selectedID = 0
	m.cursor = 0
}

func (m Model) selectedOrTopmost(orderedIDs []int64) int64 {
	if m.selectedID != 0 {
		return m.selectedID
	}
	return timeline.TopmostVisibleID(orderedIDs)
}

// markScrolledPast feeds the read batcher with every unread article that
// has fully left the visible window above the fold. Each id is submitted
// once per session; re-entering the window does not resubmit it.
func (m *Model) markScrolledPast(articles []timeline.ArticlePreview) {
	listHeight := state.ArticleListHeight(m.height, m.status != "")
	windowStart, _ := state.CenteredWindow(len(articles), m.cursor, listHeight)
	for _, id := range state.ScrolledPastIDs(articles, windowStart) {
		if _, ok := m.seen[id]; ok {
			continue
		}
		m.seen[id] = struct{}{}
		m.batcher.Add(id)
	}
}

func (m Model) withStatus(status string, warn bool) (tea.Model, tea.Cmd) {
	m.status = status
	m.warn = warn
	m.statusID++
	id := m.statusID
	return m, tea.Tick(statusClearAfter, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}
