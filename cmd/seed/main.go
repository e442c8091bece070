package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"comicshelf/pkg/database"
)

type seedComic struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	Description string        `json:"description"`
	CoverURL    string        `json:"cover_url"`
	Status      string        `json:"status"`
	Chapters    []seedChapter `json:"chapters"`
}

type seedChapter struct {
	ChapterNumber int      `json:"chapter_number"`
	Title         string   `json:"title"`
	Pages         []string `json:"pages"`
}

func main() {
	var (
		in = flag.String("in", "data/comics.json", "input JSON path for the comic catalog")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	n, err := seed(ctx, db, *in)
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}

	log.Printf("✅ seeded catalog from %s (%d comics)", *in, n)
}

func seed(ctx context.Context, db *sql.DB, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var comics []seedComic
	if err := json.Unmarshal(raw, &comics); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	for _, c := range comics {
		if c.ID == "" || c.Title == "" {
			return 0, fmt.Errorf("comic missing id or title: %+v", c)
		}
		if err := seedComicTx(ctx, db, c); err != nil {
			return 0, fmt.Errorf("seed %s: %w", c.ID, err)
		}
	}

	return len(comics), nil
}

// seedComicTx upserts one comic with its chapters and pages. Re-running the
// seeder updates rows in place instead of churning ids, so existing reading
// progress keeps pointing at the same chapters.
func seedComicTx(ctx context.Context, db *sql.DB, c seedComic) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO comics (id, title, author, description, cover_url, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  author = excluded.author,
		  description = excluded.description,
		  cover_url = excluded.cover_url,
		  status = excluded.status,
		  updated_at = CURRENT_TIMESTAMP
	`, c.ID, c.Title, c.Author, c.Description, c.CoverURL, c.Status); err != nil {
		return err
	}

	for _, ch := range c.Chapters {
		if ch.ChapterNumber < 1 {
			return fmt.Errorf("chapter number %d invalid", ch.ChapterNumber)
		}

		var chID string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM chapters WHERE comic_id = ? AND chapter_number = ?
		`, c.ID, ch.ChapterNumber).Scan(&chID)

		switch {
		case err == sql.ErrNoRows:
			chID = uuid.NewString()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO chapters (id, comic_id, chapter_number, title)
				VALUES (?, ?, ?, ?)
			`, chID, c.ID, ch.ChapterNumber, ch.Title); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if _, err := tx.ExecContext(ctx, `
				UPDATE chapters SET title = ? WHERE id = ?
			`, ch.Title, chID); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE chapter_id = ?`, chID); err != nil {
			return err
		}
		for i, url := range ch.Pages {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO pages (id, chapter_id, page_number, image_url)
				VALUES (?, ?, ?, ?)
			`, uuid.NewString(), chID, i+1, url); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE chapters SET pages_count = ? WHERE id = ?
		`, len(ch.Pages), chID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
