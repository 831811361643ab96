package event

import "time"

// NewChaptersEvent is broadcast after a sync adds chapters to an entry.
type NewChaptersEvent struct {
	Type    string    `json:"type"` // "chapters.new"
	EntryID int64     `json:"entry_id"`
	Count   int       `json:"count"`
	At      time.Time `json:"at"`
}

// MigratedEvent is broadcast after an entry moved to a new source.
type MigratedEvent struct {
	Type  string    `json:"type"` // "entry.migrated"
	OldID int64     `json:"old_id"`
	NewID int64     `json:"new_id"`
	At    time.Time `json:"at"`
}
