package models

// Stats is the GET /api/stats payload.
type Stats struct {
	Comics     int `json:"comics"`
	Chapters   int `json:"chapters"`
	Pages      int `json:"pages"`
	Users      int `json:"users"`
	InProgress int `json:"in_progress"`
	Reviews    int `json:"reviews"`
}
