package comics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"comicshelf/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Search string // substring match on title only
	Limit  int
	Offset int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const comicCols = `id, title, author, description, cover_url, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComic(sc rowScanner) (models.Comic, error) {
	var m models.Comic
	err := sc.Scan(
		&m.ID, &m.Title, &m.Author, &m.Description,
		&m.CoverURL, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Comic, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+comicCols+` FROM comics WHERE id = ?
	`, id)

	m, err := scanComic(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get comic: %w", err)
	}
	return &m, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count comics: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Comic, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list comics: %w", err)
	}
	defer rows.Close()

	out := make([]models.Comic, 0, q.Limit)
	for rows.Next() {
		m, err := scanComic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comic: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// buildListSQL builds either COUNT(*) or the SELECT list. Search matches the
// title only; newest comics come first, id breaks created_at ties so paging
// stays stable.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT ` + comicCols + ` FROM comics`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM comics`
	}

	var where []string
	var args []any

	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY created_at DESC, id"
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}

func (r *Repo) Create(ctx context.Context, m models.Comic) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO comics (id, title, author, description, cover_url, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.Title, m.Author, m.Description, m.CoverURL, m.Status)

	if err != nil {
		return fmt.Errorf("create comic: %w", err)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, m models.Comic) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE comics
		SET title = ?, author = ?, description = ?, cover_url = ?, status = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, m.Title, m.Author, m.Description, m.CoverURL, m.Status, m.ID)

	if err != nil {
		return fmt.Errorf("update comic: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM comics WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete comic: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete comic rows: %w", err)
	}
	return affected > 0, nil
}

const chapterCols = `id, comic_id, chapter_number, title, pages_count, created_at`

func scanChapter(sc rowScanner) (models.Chapter, error) {
	var ch models.Chapter
	err := sc.Scan(&ch.ID, &ch.ComicID, &ch.ChapterNumber, &ch.Title, &ch.PagesCount, &ch.CreatedAt)
	return ch, err
}

func (r *Repo) Chapters(ctx context.Context, comicID string) ([]models.Chapter, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+chapterCols+` FROM chapters
		WHERE comic_id = ?
		ORDER BY chapter_number ASC
	`, comicID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	out := make([]models.Chapter, 0)
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) GetChapter(ctx context.Context, id string) (*models.Chapter, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+chapterCols+` FROM chapters WHERE id = ?
	`, id)

	ch, err := scanChapter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return &ch, nil
}

func (r *Repo) GetChapterByNumber(ctx context.Context, comicID string, number int) (*models.Chapter, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+chapterCols+` FROM chapters
		WHERE comic_id = ? AND chapter_number = ?
	`, comicID, number)

	ch, err := scanChapter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get chapter by number: %w", err)
	}
	return &ch, nil
}

func (r *Repo) CreateChapter(ctx context.Context, ch models.Chapter) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO chapters (id, comic_id, chapter_number, title)
		VALUES (?, ?, ?, ?)
	`, ch.ID, ch.ComicID, ch.ChapterNumber, ch.Title)

	if err != nil {
		return fmt.Errorf("create chapter: %w", err)
	}
	return nil
}

func (r *Repo) Pages(ctx context.Context, chapterID string) ([]models.Page, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, chapter_id, page_number, image_url
		FROM pages
		WHERE chapter_id = ?
		ORDER BY page_number ASC
	`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	out := make([]models.Page, 0)
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.ID, &p.ChapterID, &p.PageNumber, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ReplacePages swaps a chapter's page set wholesale and keeps pages_count in
// step, all in one transaction. Pages are never edited in place.
func (r *Repo) ReplacePages(ctx context.Context, chapterID string, pages []models.Page) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace pages: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE chapter_id = ?`, chapterID); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}

	for _, p := range pages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pages (id, chapter_id, page_number, image_url)
			VALUES (?, ?, ?, ?)
		`, p.ID, chapterID, p.PageNumber, p.ImageURL); err != nil {
			return fmt.Errorf("insert page %d: %w", p.PageNumber, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE chapters SET pages_count = ? WHERE id = ?
	`, len(pages), chapterID); err != nil {
		return fmt.Errorf("update pages_count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace pages: %w", err)
	}
	return nil
}

func (r *Repo) ReviewSummary(ctx context.Context, comicID string) (int, float64, error) {
	var (
		count int
		avg   float64
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(rating), 0)
		FROM reviews
		WHERE comic_id = ?
	`, comicID).Scan(&count, &avg)
	if err != nil {
		return 0, 0, fmt.Errorf("review summary: %w", err)
	}
	return count, avg, nil
}

func (r *Repo) Stats(ctx context.Context) (models.Stats, error) {
	var s models.Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM comics`, &s.Comics},
		{`SELECT COUNT(*) FROM chapters`, &s.Chapters},
		{`SELECT COUNT(*) FROM pages`, &s.Pages},
		{`SELECT COUNT(*) FROM users`, &s.Users},
		{`SELECT COUNT(*) FROM reading_progress`, &s.InProgress},
		{`SELECT COUNT(*) FROM reviews`, &s.Reviews},
	}
	for _, c := range counts {
		if err := r.DB.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return models.Stats{}, fmt.Errorf("stats: %w", err)
		}
	}
	return s, nil
}
