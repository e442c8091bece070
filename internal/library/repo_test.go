package library

import (
	"context"
	"database/sql"
	"testing"

	"comicshelf/pkg/database"
	"comicshelf/pkg/models"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
// and a user plus two comics seeded for foreign keys.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	seed := []string{
		`INSERT INTO users (id, username, email, password_hash) VALUES ('u1', 'reader', 'r@example.com', 'x')`,
		`INSERT INTO comics (id, title) VALUES ('c1', 'Alpha')`,
		`INSERT INTO comics (id, title) VALUES ('c2', 'Beta')`,
		`INSERT INTO chapters (id, comic_id, chapter_number, title) VALUES ('ch1', 'c1', 3, 'Third')`,
	}
	for _, q := range seed {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			t.Fatalf("seed: %v", err)
		}
	}

	return db
}

func TestUpsertLatestWins(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepo(db)
	ctx := context.Background()

	applied, err := repo.Upsert(ctx, models.ReadingProgress{
		UserID: "u1", ComicID: "c1", ChapterID: "ch1", PageNumber: 5, ClientTS: 2000,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !applied {
		t.Fatal("expected first write to apply")
	}

	// an older write must be dropped, not merged
	applied, err = repo.Upsert(ctx, models.ReadingProgress{
		UserID: "u1", ComicID: "c1", ChapterID: "ch1", PageNumber: 2, ClientTS: 1000,
	})
	if err != nil {
		t.Fatalf("stale write: %v", err)
	}
	if applied {
		t.Fatal("expected stale write to be dropped")
	}

	got, err := repo.Get(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected progress row")
	}
	if got.PageNumber != 5 || got.ClientTS != 2000 {
		t.Fatalf("stale write leaked through: page=%d ts=%d", got.PageNumber, got.ClientTS)
	}

	// equal timestamp replays are accepted
	applied, err = repo.Upsert(ctx, models.ReadingProgress{
		UserID: "u1", ComicID: "c1", ChapterID: "ch1", PageNumber: 6, ClientTS: 2000,
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !applied {
		t.Fatal("expected equal-timestamp write to apply")
	}

	// newer write advances
	applied, err = repo.Upsert(ctx, models.ReadingProgress{
		UserID: "u1", ComicID: "c1", ChapterID: "ch1", PageNumber: 9, ClientTS: 3000,
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !applied {
		t.Fatal("expected newer write to apply")
	}
	got, err = repo.Get(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("get after advance: %v", err)
	}
	if got.PageNumber != 9 || got.ClientTS != 3000 {
		t.Fatalf("advance not stored: page=%d ts=%d", got.PageNumber, got.ClientTS)
	}

	// history only records the writes that took: 3 applied, 1 dropped
	hist, err := repo.History(ctx, "u1", "c1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 history rows, got %d", len(hist))
	}
	if hist[0].PageNumber != 9 {
		t.Fatalf("expected newest history row first, got page %d", hist[0].PageNumber)
	}
}

func TestUpsertWithoutChapter(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepo(db)
	ctx := context.Background()

	applied, err := repo.Upsert(ctx, models.ReadingProgress{
		UserID: "u1", ComicID: "c1", PageNumber: 1, ClientTS: 100,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !applied {
		t.Fatal("expected write to apply")
	}

	got, err := repo.Get(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ChapterID != "" {
		t.Fatalf("expected empty chapter id, got %q", got.ChapterID)
	}
}

func TestGetMissAndDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepo(db)
	ctx := context.Background()

	got, err := repo.Get(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on miss, got %+v", got)
	}

	if _, err := repo.Upsert(ctx, models.ReadingProgress{
		UserID: "u1", ComicID: "c1", PageNumber: 1, ClientTS: 1,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	deleted, err := repo.Delete(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to remove the row")
	}

	deleted, err = repo.Delete(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatal("expected second delete to find nothing")
	}
}

func TestLibraryJoin(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepo(db)
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, models.ReadingProgress{
		UserID: "u1", ComicID: "c1", ChapterID: "ch1", PageNumber: 4, ClientTS: 10,
	}); err != nil {
		t.Fatalf("upsert c1: %v", err)
	}
	if _, err := repo.Upsert(ctx, models.ReadingProgress{
		UserID: "u1", ComicID: "c2", PageNumber: 1, ClientTS: 10,
	}); err != nil {
		t.Fatalf("upsert c2: %v", err)
	}

	// force distinct updated_at so the recency ordering is deterministic
	if _, err := db.Exec(`
		UPDATE reading_progress SET updated_at = '2026-01-02 00:00:00' WHERE comic_id = 'c1'
	`); err != nil {
		t.Fatalf("pin c1 timestamp: %v", err)
	}
	if _, err := db.Exec(`
		UPDATE reading_progress SET updated_at = '2026-01-01 00:00:00' WHERE comic_id = 'c2'
	`); err != nil {
		t.Fatalf("pin c2 timestamp: %v", err)
	}

	entries, total, err := repo.Library(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected total 2, got %d", total)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ComicID != "c1" {
		t.Fatalf("expected most recently read first, got %s", entries[0].ComicID)
	}
	if entries[0].ComicTitle != "Alpha" {
		t.Fatalf("expected joined title, got %q", entries[0].ComicTitle)
	}
	if entries[0].ChapterNumber != 3 || entries[0].ChapterTitle != "Third" {
		t.Fatalf("expected joined chapter info, got number=%d title=%q",
			entries[0].ChapterNumber, entries[0].ChapterTitle)
	}
	// a bookmark with no chapter joins to zero values
	if entries[1].ChapterID != "" || entries[1].ChapterNumber != 0 {
		t.Fatalf("expected empty chapter on c2, got %+v", entries[1])
	}

	// other users see nothing
	entries, total, err = repo.Library(ctx, "nobody", 10, 0)
	if err != nil {
		t.Fatalf("library for stranger: %v", err)
	}
	if total != 0 || len(entries) != 0 {
		t.Fatalf("expected empty library, got total=%d len=%d", total, len(entries))
	}
}

func TestHistoryFilterAndLimit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepo(db)
	ctx := context.Background()

	writes := []struct {
		comic string
		ts    int64
	}{
		{"c1", 1},
		{"c2", 2},
		{"c1", 3},
	}
	for _, w := range writes {
		if _, err := repo.Upsert(ctx, models.ReadingProgress{
			UserID: "u1", ComicID: w.comic, PageNumber: int(w.ts), ClientTS: w.ts,
		}); err != nil {
			t.Fatalf("upsert %s: %v", w.comic, err)
		}
	}

	all, err := repo.History(ctx, "u1", "", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}

	c1Only, err := repo.History(ctx, "u1", "c1", 10)
	if err != nil {
		t.Fatalf("filtered history: %v", err)
	}
	if len(c1Only) != 2 {
		t.Fatalf("expected 2 rows for c1, got %d", len(c1Only))
	}
	for _, e := range c1Only {
		if e.ComicID != "c1" {
			t.Fatalf("filter leaked comic %s", e.ComicID)
		}
	}

	limited, err := repo.History(ctx, "u1", "", 2)
	if err != nil {
		t.Fatalf("limited history: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}
}

func TestComicExists(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepo(db)
	ctx := context.Background()

	ok, err := repo.ComicExists(ctx, "c1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Fatal("expected c1 to exist")
	}

	ok, err = repo.ComicExists(ctx, "ghost")
	if err != nil {
		t.Fatalf("exists miss: %v", err)
	}
	if ok {
		t.Fatal("expected ghost to be missing")
	}
}
