package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"comicshelf/pkg/models"
)

// LibraryList prints the comics the user has progress in.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	entries, err := r.client.Library(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}
	if len(entries) == 0 {
		return r.writePlain("library is empty\n")
	}
	for _, e := range entries {
		pos := "not started"
		if e.ChapterID != "" {
			pos = fmt.Sprintf("chapter %d, page %d", e.ChapterNumber, e.PageNumber)
		}
		if err := r.writePlain("%-40s %s\n", e.ComicTitle, pos); err != nil {
			return err
		}
	}
	return nil
}

// LibraryExport writes the library to a JSON or CSV file.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	entries, err := r.client.Library(ctx)
	if err != nil {
		return err
	}

	out := cmd.String("output")
	switch format := cmd.String("format"); format {
	case "json":
		err = exportJSON(out, entries)
	case "csv":
		err = exportCSV(out, entries)
	default:
		return fmt.Errorf("unknown format %q (want json or csv)", format)
	}
	if err != nil {
		return err
	}

	r.logger.Info("library exported", "path", out, "entries", len(entries))
	return r.writePlain("✓ wrote %d entries to %s\n", len(entries), out)
}

// LibraryHistory prints the reading trail, newest first.
func (r *Runner) LibraryHistory(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	entries, err := r.client.History(ctx, cmd.String("comic"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	if len(entries) == 0 {
		return r.writePlain("no history yet\n")
	}
	for _, e := range entries {
		if err := r.writePlain("%s  %s  page %d\n",
			e.At.Local().Format("2006-01-02 15:04"), e.ComicID, e.PageNumber); err != nil {
			return err
		}
	}
	return nil
}

func exportJSON(path string, entries []models.LibraryEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func exportCSV(path string, entries []models.LibraryEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"comic_id", "comic_title", "chapter_number", "chapter_title", "page_number", "updated_at",
	}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writer.Write([]string{
			e.ComicID,
			e.ComicTitle,
			strconv.Itoa(e.ChapterNumber),
			e.ChapterTitle,
			strconv.Itoa(e.PageNumber),
			e.UpdatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
