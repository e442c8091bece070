package sync

import "time"

type ProgressEvent struct {
	Type       string    `json:"type"` // "progress.update" or "progress.delete"
	UserID     string    `json:"user_id"`
	ComicID    string    `json:"comic_id"`
	ChapterID  string    `json:"chapter_id,omitempty"`
	PageNumber int       `json:"page_number,omitempty"`
	ClientTS   int64     `json:"client_ts,omitempty"`
	At         time.Time `json:"at"`
}

type ChapterEvent struct {
	Type          string    `json:"type"` // "chapter.new"
	ComicID       string    `json:"comic_id"`
	ChapterNumber int       `json:"chapter_number"`
	Title         string    `json:"title"`
	At            time.Time `json:"at"`
}
