// Package track persists links between library entries and external
// tracking services.
package track

import (
	"context"
	"database/sql"
	"fmt"

	"mangashelf/pkg/models"
)

// EnhancedTracker is implemented by tracker adapters that manage their own
// source binding. When an adapter recognizes a link as one of its own, a
// migration delegates to the adapter's remap logic instead of the generic
// entry-id rebind.
type EnhancedTracker interface {
	Name() string
	Accepts(link models.Track, oldEntry models.Entry, oldSourceID string) bool
	Migrate(ctx context.Context, link models.Track, newEntry models.Entry, newSourceID string) (models.Track, error)
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) GetByEntry(ctx context.Context, entryID int64) ([]models.Track, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, entry_id, tracker_id, remote_id, remote_url, title, last_chapter_read, status
		FROM tracks
		WHERE entry_id = ?
		ORDER BY tracker_id
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var out []models.Track
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ID, &t.EntryID, &t.TrackerID, &t.RemoteID, &t.RemoteURL, &t.Title, &t.LastChapterRead, &t.Status); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows tracks: %w", err)
	}
	return out, nil
}

// UpsertAll writes the links in one transaction, keyed by (entry, tracker).
func (r *Repo) UpsertAll(ctx context.Context, links []models.Track) error {
	if len(links) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (entry_id, tracker_id, remote_id, remote_url, title, last_chapter_read, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_id, tracker_id) DO UPDATE SET
		  remote_id = excluded.remote_id,
		  remote_url = excluded.remote_url,
		  title = excluded.title,
		  last_chapter_read = excluded.last_chapter_read,
		  status = excluded.status
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range links {
		if _, err := stmt.ExecContext(ctx, t.EntryID, t.TrackerID, t.RemoteID, t.RemoteURL, t.Title, t.LastChapterRead, t.Status); err != nil {
			return fmt.Errorf("upsert track %d/%d: %w", t.EntryID, t.TrackerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
