package models

import "time"

type Chapter struct {
	ID            string    `json:"id"`
	ComicID       string    `json:"comic_id"`
	ChapterNumber int       `json:"chapter_number"`
	Title         string    `json:"title,omitempty"`
	PagesCount    int       `json:"pages_count"`
	CreatedAt     time.Time `json:"created_at"`
}
