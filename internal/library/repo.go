// Package library persists entries and their chapters and exposes the HTTP
// surface for browsing and syncing the library.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"mangashelf/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const entryColumns = "id, source_id, url, title, favorite, viewer_flags, chapter_flags, date_added, last_update"

func scanEntry(row interface{ Scan(...any) error }) (models.Entry, error) {
	var e models.Entry
	err := row.Scan(&e.ID, &e.SourceID, &e.URL, &e.Title, &e.Favorite, &e.ViewerFlags, &e.ChapterFlags, &e.DateAdded, &e.LastUpdate)
	return e, err
}

func (r *Repo) GetEntry(ctx context.Context, id int64) (*models.Entry, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &e, nil
}

// ListEntries returns favorited entries, newest update first. An empty
// sourceID returns all sources.
func (r *Repo) ListEntries(ctx context.Context, sourceID string) ([]models.Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries WHERE favorite = 1"
	var args []any
	if sourceID != "" {
		query += " AND source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY last_update DESC, id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows entries: %w", err)
	}
	return out, nil
}

// InsertEntry stores a new entry and returns it with its assigned id.
func (r *Repo) InsertEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO entries (source_id, url, title, favorite, viewer_flags, chapter_flags, date_added, last_update)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SourceID, e.URL, e.Title, e.Favorite, e.ViewerFlags, e.ChapterFlags, e.DateAdded, e.LastUpdate)
	if err != nil {
		return models.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return e, nil
}

// UpdateEntry applies a partial update; nil fields stay as they are.
func (r *Repo) UpdateEntry(ctx context.Context, u models.EntryUpdate) error {
	var set []string
	var args []any
	if u.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Favorite != nil {
		set = append(set, "favorite = ?")
		args = append(args, *u.Favorite)
	}
	if u.ViewerFlags != nil {
		set = append(set, "viewer_flags = ?")
		args = append(args, *u.ViewerFlags)
	}
	if u.ChapterFlags != nil {
		set = append(set, "chapter_flags = ?")
		args = append(args, *u.ChapterFlags)
	}
	if u.DateAdded != nil {
		set = append(set, "date_added = ?")
		args = append(args, *u.DateAdded)
	}
	if u.LastUpdate != nil {
		set = append(set, "last_update = ?")
		args = append(args, *u.LastUpdate)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, u.ID)
	query := "UPDATE entries SET " + strings.Join(set, ", ") + " WHERE id = ?"
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update entry %d: %w", u.ID, err)
	}
	return nil
}

const chapterColumns = "id, entry_id, url, name, chapter_number, scanlator, source_order, date_upload, date_fetch, read, bookmark, last_page_read"

// GetByEntry returns the entry's chapters in source order.
func (r *Repo) GetByEntry(ctx context.Context, entryID int64) ([]models.Chapter, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+chapterColumns+" FROM chapters WHERE entry_id = ? ORDER BY source_order, id", entryID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var out []models.Chapter
	for rows.Next() {
		var c models.Chapter
		if err := rows.Scan(&c.ID, &c.EntryID, &c.URL, &c.Name, &c.ChapterNumber, &c.Scanlator, &c.SourceOrder, &c.DateUpload, &c.DateFetch, &c.Read, &c.Bookmark, &c.LastPageRead); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows chapters: %w", err)
	}
	return out, nil
}

// AddAll inserts the chapters in one transaction and returns them with their
// assigned ids, in input order.
func (r *Repo) AddAll(ctx context.Context, chapters []models.Chapter) ([]models.Chapter, error) {
	if len(chapters) == 0 {
		return nil, nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chapters (entry_id, url, name, chapter_number, scanlator, source_order, date_upload, date_fetch, read, bookmark, last_page_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	out := make([]models.Chapter, len(chapters))
	for i, c := range chapters {
		res, err := stmt.ExecContext(ctx, c.EntryID, c.URL, c.Name, c.ChapterNumber, c.Scanlator, c.SourceOrder, c.DateUpload, c.DateFetch, c.Read, c.Bookmark, c.LastPageRead)
		if err != nil {
			return nil, fmt.Errorf("insert chapter %q: %w", c.URL, err)
		}
		c.ID, _ = res.LastInsertId()
		out[i] = c
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return out, nil
}

func (r *Repo) RemoveWithIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chapters WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete chapter %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpdateAll applies partial chapter updates in one transaction.
func (r *Repo) UpdateAll(ctx context.Context, updates []models.ChapterUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		var set []string
		var args []any
		if u.Name != nil {
			set = append(set, "name = ?")
			args = append(args, *u.Name)
		}
		if u.ChapterNumber != nil {
			set = append(set, "chapter_number = ?")
			args = append(args, *u.ChapterNumber)
		}
		if u.Scanlator != nil {
			set = append(set, "scanlator = ?")
			args = append(args, *u.Scanlator)
		}
		if u.SourceOrder != nil {
			set = append(set, "source_order = ?")
			args = append(args, *u.SourceOrder)
		}
		if u.DateUpload != nil {
			set = append(set, "date_upload = ?")
			args = append(args, *u.DateUpload)
		}
		if u.DateFetch != nil {
			set = append(set, "date_fetch = ?")
			args = append(args, *u.DateFetch)
		}
		if u.Read != nil {
			set = append(set, "read = ?")
			args = append(args, *u.Read)
		}
		if u.Bookmark != nil {
			set = append(set, "bookmark = ?")
			args = append(args, *u.Bookmark)
		}
		if u.LastPageRead != nil {
			set = append(set, "last_page_read = ?")
			args = append(args, *u.LastPageRead)
		}
		if len(set) == 0 {
			continue
		}
		args = append(args, u.ID)
		query := "UPDATE chapters SET " + strings.Join(set, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update chapter %d: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
