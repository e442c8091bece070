package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"comicshelf/pkg/database"
)

type catalogComic struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Author      string           `json:"author"`
	Description string           `json:"description"`
	CoverURL    string           `json:"cover_url"`
	Status      string           `json:"status"`
	Chapters    []catalogChapter `json:"chapters"`
}

type catalogChapter struct {
	ChapterNumber int      `json:"chapter_number"`
	Title         string   `json:"title"`
	Pages         []string `json:"pages"`
}

func main() {
	var (
		outPath = flag.String("out", "data/comics.json", "output JSON path")
		limit   = flag.Int("limit", 0, "how many comics to export (0 = all)")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	// output matches the cmd/seed input format, so a dump re-imports as-is
	comics, err := exportCatalog(ctx, db, *limit)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatalf("mkdir failed: %v", err)
	}

	b, err := json.MarshalIndent(comics, "", "  ")
	if err != nil {
		log.Fatalf("marshal failed: %v", err)
	}

	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		log.Fatalf("write failed: %v", err)
	}

	log.Printf("✅ exported %d comics to %s", len(comics), *outPath)
}

func exportCatalog(ctx context.Context, db *sql.DB, limit int) ([]catalogComic, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, title, author, description, cover_url, status
		FROM comics
		ORDER BY title
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		comics []catalogComic
		index  = make(map[string]int)
	)
	for rows.Next() {
		var c catalogComic
		if err := rows.Scan(&c.ID, &c.Title, &c.Author, &c.Description, &c.CoverURL, &c.Status); err != nil {
			return nil, err
		}
		c.Chapters = []catalogChapter{}
		index[c.ID] = len(comics)
		comics = append(comics, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chapterRows, err := db.QueryContext(ctx, `
		SELECT id, comic_id, chapter_number, title
		FROM chapters
		ORDER BY comic_id, chapter_number
	`)
	if err != nil {
		return nil, err
	}
	defer chapterRows.Close()

	// chapter row id -> position in its comic's chapter slice
	type chapterPos struct {
		comic   int
		chapter int
	}
	chapterIndex := make(map[string]chapterPos)

	for chapterRows.Next() {
		var (
			id      string
			comicID string
			ch      catalogChapter
		)
		if err := chapterRows.Scan(&id, &comicID, &ch.ChapterNumber, &ch.Title); err != nil {
			return nil, err
		}
		ci, ok := index[comicID]
		if !ok {
			continue // comic outside the export limit
		}
		ch.Pages = []string{}
		chapterIndex[id] = chapterPos{comic: ci, chapter: len(comics[ci].Chapters)}
		comics[ci].Chapters = append(comics[ci].Chapters, ch)
	}
	if err := chapterRows.Err(); err != nil {
		return nil, err
	}

	pageRows, err := db.QueryContext(ctx, `
		SELECT chapter_id, image_url
		FROM pages
		ORDER BY chapter_id, page_number
	`)
	if err != nil {
		return nil, err
	}
	defer pageRows.Close()

	for pageRows.Next() {
		var chapterID, imageURL string
		if err := pageRows.Scan(&chapterID, &imageURL); err != nil {
			return nil, err
		}
		pos, ok := chapterIndex[chapterID]
		if !ok {
			continue
		}
		c := &comics[pos.comic].Chapters[pos.chapter]
		c.Pages = append(c.Pages, imageURL)
	}
	if err := pageRows.Err(); err != nil {
		return nil, err
	}

	return comics, nil
}
