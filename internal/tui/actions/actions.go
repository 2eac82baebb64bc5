package actions

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Service is the slice of the timeline orchestrator the TUI drives.
type Service interface {
	Refresh(ctx context.Context) error
	SetActiveFolder(ctx context.Context, folderID int64)
	MarkFolderRead(ctx context.Context, folderID int64) error
	MarkItemRead(ctx context.Context, itemID int64)
	ToggleStarred(ctx context.Context, itemID int64)
	SkipFolder(ctx context.Context, folderID int64)
	Restart(ctx context.Context)
}

type SyncSuccessMsg struct {
	Duration time.Duration
	Source   string
}

type SyncErrorMsg struct {
	Err      error
	Duration time.Duration
	Source   string
}

type FolderReadSuccessMsg struct {
	FolderID int64
	Name     string
}

type FolderReadErrorMsg struct {
	FolderID int64
	Err      error
}

type FolderSkippedMsg struct {
	FolderID int64
	Name     string
}

type QueueRestartedMsg struct{}

type ActiveFolderSetMsg struct {
	FolderID int64
}

type ItemsMarkedReadMsg struct {
	Count int
}

type ItemStarToggledMsg struct {
	ItemID int64
}

type OpenURLSuccessMsg struct {
	Status string
}

type OpenURLErrorMsg struct {
	Err error
}

func RefreshCmd(service Service, source string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		start := time.Now()

		if err := service.Refresh(ctx); err != nil {
			return SyncErrorMsg{Err: err, Duration: time.Since(start), Source: source}
		}
		return SyncSuccessMsg{Duration: time.Since(start), Source: source}
	}
}

func SetActiveFolderCmd(service Service, folderID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		service.SetActiveFolder(ctx, folderID)
		return ActiveFolderSetMsg{FolderID: folderID}
	}
}

func MarkFolderReadCmd(service Service, folderID int64, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := service.MarkFolderRead(ctx, folderID); err != nil {
			return FolderReadErrorMsg{FolderID: folderID, Err: err}
		}
		return FolderReadSuccessMsg{FolderID: folderID, Name: name}
	}
}

// MarkItemsReadCmd submits a flushed auto-read batch. Each mark is fire and
// forget inside the service, so this only reports how many were sent.
func MarkItemsReadCmd(service Service, itemIDs []int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, id := range itemIDs {
			service.MarkItemRead(ctx, id)
		}
		return ItemsMarkedReadMsg{Count: len(itemIDs)}
	}
}

func ToggleStarredCmd(service Service, itemID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		service.ToggleStarred(ctx, itemID)
		return ItemStarToggledMsg{ItemID: itemID}
	}
}

func SkipFolderCmd(service Service, folderID int64, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		service.SkipFolder(ctx, folderID)
		return FolderSkippedMsg{FolderID: folderID, Name: name}
	}
}

func RestartCmd(service Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		service.Restart(ctx)
		return QueueRestartedMsg{}
	}
}

func OpenURLCmd(url string, openFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if openFn != nil {
			if err := openFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Opened URL in browser"}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not open URL in browser")}
	}
}
