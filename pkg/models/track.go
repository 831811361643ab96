package models

// Track links an Entry to a record on an external tracking service
// (AniList, MAL, ...). One row per (entry, tracker) pair.
type Track struct {
	ID              int64   `json:"id"`
	EntryID         int64   `json:"entry_id"`
	TrackerID       int64   `json:"tracker_id"`
	RemoteID        int64   `json:"remote_id"`
	RemoteURL       string  `json:"remote_url,omitempty"`
	Title           string  `json:"title"`
	LastChapterRead float64 `json:"last_chapter_read"`
	Status          int64   `json:"status"`
}
