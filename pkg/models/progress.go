package models

import "time"

// ReadingProgress is the single bookmark a user keeps per comic. One row per
// (user_id, comic_id); every page turn in the reader overwrites it.
type ReadingProgress struct {
	UserID     string    `json:"user_id"`
	ComicID    string    `json:"comic_id"`
	ChapterID  string    `json:"chapter_id,omitempty"`
	PageNumber int       `json:"page_number"`
	ClientTS   int64     `json:"client_ts"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LibraryEntry joins a progress row with catalog fields for display.
type LibraryEntry struct {
	ReadingProgress
	ComicTitle    string `json:"comic_title"`
	ComicCover    string `json:"comic_cover,omitempty"`
	ChapterNumber int    `json:"chapter_number,omitempty"`
	ChapterTitle  string `json:"chapter_title,omitempty"`
}

// ProgressEntry is one append-only reading history row.
type ProgressEntry struct {
	UserID     string    `json:"user_id"`
	ComicID    string    `json:"comic_id"`
	ChapterID  string    `json:"chapter_id,omitempty"`
	PageNumber int       `json:"page_number"`
	At         time.Time `json:"at"`
}
