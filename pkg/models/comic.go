package models

import "time"

type Comic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ComicDetail is the GET /api/comics/:id payload: the comic with its
// chapters embedded (ordered by chapter_number) and the review summary.
type ComicDetail struct {
	Comic
	Chapters      []Chapter `json:"chapters"`
	ReviewCount   int       `json:"review_count"`
	AverageRating float64   `json:"average_rating"`
}
