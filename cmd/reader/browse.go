package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"comicshelf/internal/gateway"
	"comicshelf/internal/ui"
)

// Browse launches the interactive reader.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to a file so they do not interfere with TUI rendering
	fileLogger, closeLog, err := newFileLogger(r.config.LogFile())
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closeLog()
	r.logger = fileLogger

	if _, err := r.client.RestoreSession(ctx); err != nil && !errors.Is(err, gateway.ErrAuthRequired) {
		fileLogger.Warn("session restore failed", "err", err)
	}

	model := ui.NewModel(ctx, r.client, fileLogger)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// newFileLogger opens path for appending and returns a logger writing to it.
func newFileLogger(path string) (*log.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return newLogger(f), func() { f.Close() }, nil
}
