package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"comicshelf/internal/config"
)

// Stats prints catalog-wide counters.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	st, err := r.client.Stats(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(st, true)
	}
	r.writePlain("comics:      %d\n", st.Comics)
	r.writePlain("chapters:    %d\n", st.Chapters)
	r.writePlain("pages:       %d\n", st.Pages)
	r.writePlain("users:       %d\n", st.Users)
	r.writePlain("in progress: %d\n", st.InProgress)
	return r.writePlain("reviews:     %d\n", st.Reviews)
}

// ConfigInit writes the default config file.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	return r.writePlain("✓ wrote %s\n", path)
}

// ConfigShow prints the active configuration as TOML.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(r.config); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return r.writePlain("%s", buf.String())
}
