package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/newsbox-cli/internal/app"
	"github.com/glabrego/newsbox-cli/internal/config"
	"github.com/glabrego/newsbox-cli/internal/news"
	"github.com/glabrego/newsbox-cli/internal/storage"
	"github.com/glabrego/newsbox-cli/internal/tui"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelpShown) {
			return
		}
		log.Fatalf("config error: %v", err)
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	repo, err := storage.NewRepository(cfg.DBPath, logger)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := repo.Init(ctx); err != nil {
		log.Fatalf("storage schema error: %v", err)
	}
	if err := repo.CheckWritable(ctx); err != nil {
		log.Fatalf("storage write check failed (%v). Verify NEWSBOX_DB_PATH is writable: %s", err, cfg.DBPath)
	}

	client := news.NewClient(cfg.ServerURL, cfg.Username, cfg.Password, nil)
	if err := client.ValidateCredentials(ctx); err != nil {
		log.Fatalf("cannot reach the News API: %v", err)
	}

	service := app.NewTimeline(client, repo, logger)
	service.Hydrate(ctx)

	model := tui.NewModel(service, time.Duration(cfg.DebounceMs)*time.Millisecond)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}
