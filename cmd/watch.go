package main

import (
	"context"
	"fmt"

	"github.com/averymorin/tunelist/internal/shared"
	"github.com/averymorin/tunelist/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

// Watch launches the interactive live library view.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := r.buildEngine(db)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Watch.LogPath
	if logPath == "" {
		logPath = "./tmp/tunelist-watch.log"
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, engine, r.songs, r.playlists)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running watch view: %w", err)
	}

	return nil
}
