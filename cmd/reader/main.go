package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"comicshelf/internal/config"
)

func main() {
	logger := newLogger(nil)

	cfg := config.LoadOrDefault(config.DefaultPath())
	runner := NewRunner(RunnerOpts{Config: cfg, Logger: logger})

	app := &cli.Command{
		Name:     "comicshelf",
		Usage:    "Read comics and track your progress from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
