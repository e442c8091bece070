package library

import (
	"context"
	"database/sql"
	"fmt"

	"comicshelf/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert stores a user's bookmark for a comic. Writes carry the client's
// monotonic timestamp; a write older than the stored row is dropped, so the
// user's latest navigation wins even when requests arrive out of order.
// Accepted writes also append a history row. Returns whether the write took.
func (r *Repo) Upsert(ctx context.Context, p models.ReadingProgress) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert progress: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO reading_progress (user_id, comic_id, chapter_id, page_number, client_ts, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, comic_id) DO UPDATE SET
			chapter_id = excluded.chapter_id,
			page_number = excluded.page_number,
			client_ts = excluded.client_ts,
			updated_at = CURRENT_TIMESTAMP
		WHERE excluded.client_ts >= reading_progress.client_ts
	`, p.UserID, p.ComicID, nullString(p.ChapterID), p.PageNumber, p.ClientTS)
	if err != nil {
		return false, fmt.Errorf("upsert progress: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert progress rows: %w", err)
	}
	if n == 0 {
		// stale write, dropped by the client_ts guard
		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO progress_history (user_id, comic_id, chapter_id, page_number)
		VALUES (?, ?, ?, ?)
	`, p.UserID, p.ComicID, nullString(p.ChapterID), p.PageNumber); err != nil {
		return false, fmt.Errorf("append history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit upsert progress: %w", err)
	}
	return true, nil
}

func (r *Repo) Get(ctx context.Context, userID, comicID string) (*models.ReadingProgress, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT user_id, comic_id, chapter_id, page_number, client_ts, updated_at
		FROM reading_progress
		WHERE user_id = ? AND comic_id = ?
	`, userID, comicID)

	var (
		p         models.ReadingProgress
		chapterID sql.NullString
	)
	if err := row.Scan(&p.UserID, &p.ComicID, &chapterID, &p.PageNumber, &p.ClientTS, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	p.ChapterID = chapterID.String
	return &p, nil
}

func (r *Repo) Delete(ctx context.Context, userID, comicID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM reading_progress
		WHERE user_id = ? AND comic_id = ?
	`, userID, comicID)
	if err != nil {
		return false, fmt.Errorf("delete progress: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Library lists a user's progress joined with catalog info, most recently
// read first.
func (r *Repo) Library(ctx context.Context, userID string, limit, offset int) ([]models.LibraryEntry, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reading_progress WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count library: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT p.user_id, p.comic_id, p.chapter_id, p.page_number, p.client_ts, p.updated_at,
		       c.title, c.cover_url,
		       COALESCE(ch.chapter_number, 0), COALESCE(ch.title, '')
		FROM reading_progress p
		JOIN comics c ON c.id = p.comic_id
		LEFT JOIN chapters ch ON ch.id = p.chapter_id
		WHERE p.user_id = ?
		ORDER BY p.updated_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list library: %w", err)
	}
	defer rows.Close()

	out := make([]models.LibraryEntry, 0, limit)
	for rows.Next() {
		var (
			e         models.LibraryEntry
			chapterID sql.NullString
		)
		if err := rows.Scan(
			&e.UserID, &e.ComicID, &chapterID, &e.PageNumber, &e.ClientTS, &e.UpdatedAt,
			&e.ComicTitle, &e.ComicCover,
			&e.ChapterNumber, &e.ChapterTitle,
		); err != nil {
			return nil, 0, fmt.Errorf("scan library row: %w", err)
		}
		e.ChapterID = chapterID.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}

	return out, total, nil
}

func (r *Repo) History(ctx context.Context, userID, comicID string, limit int) ([]models.ProgressEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows *sql.Rows
	var err error

	if comicID == "" {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT user_id, comic_id, chapter_id, page_number, at
			FROM progress_history
			WHERE user_id = ?
			ORDER BY at DESC, id DESC
			LIMIT ?
		`, userID, limit)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT user_id, comic_id, chapter_id, page_number, at
			FROM progress_history
			WHERE user_id = ? AND comic_id = ?
			ORDER BY at DESC, id DESC
			LIMIT ?
		`, userID, comicID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ProgressEntry, 0, limit)
	for rows.Next() {
		var (
			e         models.ProgressEntry
			chapterID sql.NullString
		)
		if err := rows.Scan(&e.UserID, &e.ComicID, &chapterID, &e.PageNumber, &e.At); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.ChapterID = chapterID.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) ComicExists(ctx context.Context, comicID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM comics WHERE id = ?`, comicID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("comic exists: %w", err)
	}
	return true, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
