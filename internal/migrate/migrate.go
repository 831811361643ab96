// Package migrate moves a favorited library entry from one source to another:
// chapters are fetched from the target, user progress is carried across, and
// category memberships, tracker links and the custom cover follow the entry
// according to a flag bitmask.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"mangashelf/internal/flags"
	"mangashelf/internal/source"
	"mangashelf/internal/syncer"
	"mangashelf/internal/track"
	"mangashelf/pkg/models"
)

var (
	// ErrBusy means another migration is still running.
	ErrBusy = errors.New("a migration is already in progress")

	// ErrUnknownSource means the target entry names a driver the registry
	// does not know.
	ErrUnknownSource = errors.New("unknown source")
)

type EntryStore interface {
	UpdateEntry(ctx context.Context, update models.EntryUpdate) error
}

type ChapterStore interface {
	GetByEntry(ctx context.Context, entryID int64) ([]models.Chapter, error)
	UpdateAll(ctx context.Context, updates []models.ChapterUpdate) error
}

type CategoryStore interface {
	GetByEntry(ctx context.Context, entryID int64) ([]int64, error)
	SetForEntry(ctx context.Context, entryID int64, categoryIDs []int64) error
}

type TrackStore interface {
	GetByEntry(ctx context.Context, entryID int64) ([]models.Track, error)
	UpsertAll(ctx context.Context, links []models.Track) error
}

type CoverStore interface {
	HasCustom(entryID int64) bool
	ReadCustom(entryID int64) ([]byte, error)
	WriteCustom(entryID int64, data []byte) error
}

// Migrator performs the cross-source move. Only the chapter fetch can fail
// the migration; everything after it is best effort, logged and skipped, so
// a flaky tracker or cover disk never leaves the user without the new entry.
type Migrator struct {
	Sources    *source.Registry
	Syncer     *syncer.Syncer
	Entries    EntryStore
	Chapters   ChapterStore
	Categories CategoryStore
	Tracks     TrackStore
	Covers     CoverStore
	Trackers   []track.EnhancedTracker

	Logger *log.Logger
	Now    func() time.Time

	migrating atomic.Bool
}

// IsMigrating reports whether a migration is currently running.
func (m *Migrator) IsMigrating() bool {
	return m.migrating.Load()
}

// Migrate moves oldEntry's library state onto newEntry. migrationFlags picks
// which satellite data follows (chapters, categories, tracks, custom cover);
// replace additionally unfavorites the old entry and keeps its date added.
func (m *Migrator) Migrate(ctx context.Context, oldEntry, newEntry models.Entry, replace bool, migrationFlags int64) error {
	if !m.migrating.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.migrating.Store(false)

	driver, ok := m.Sources.Get(newEntry.SourceID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, newEntry.SourceID)
	}

	// The fetch is the only hard failure point. If the target source can't
	// produce a listing, nothing has been touched yet and we bail out whole.
	rawChapters, err := driver.FetchChapterList(ctx, newEntry)
	if err != nil {
		return fmt.Errorf("fetch chapters from %s: %w", newEntry.SourceID, err)
	}

	if _, err := m.Syncer.Sync(ctx, rawChapters, newEntry, driver); err != nil {
		m.logf("[migrate] sync %q on %s: %v", newEntry.Title, newEntry.SourceID, err)
	}

	if flags.Has(migrationFlags, flags.MigrateChapters) {
		if err := m.migrateChapters(ctx, oldEntry, newEntry); err != nil {
			m.logf("[migrate] carry chapter progress: %v", err)
		}
	}

	if flags.Has(migrationFlags, flags.MigrateCategories) {
		if err := m.migrateCategories(ctx, oldEntry, newEntry); err != nil {
			m.logf("[migrate] carry categories: %v", err)
		}
	}

	if flags.Has(migrationFlags, flags.MigrateTracks) {
		if err := m.migrateTracks(ctx, oldEntry, newEntry); err != nil {
			m.logf("[migrate] carry tracks: %v", err)
		}
	}

	if flags.Has(migrationFlags, flags.MigrateCustomCover) {
		if err := m.migrateCover(oldEntry, newEntry); err != nil {
			m.logf("[migrate] carry custom cover: %v", err)
		}
	}

	if replace {
		unfav := false
		var zero int64
		if err := m.Entries.UpdateEntry(ctx, models.EntryUpdate{
			ID:        oldEntry.ID,
			Favorite:  &unfav,
			DateAdded: &zero,
		}); err != nil {
			m.logf("[migrate] unfavorite old entry: %v", err)
		}
	}

	fav := true
	dateAdded := m.nowMillis()
	if replace {
		dateAdded = oldEntry.DateAdded
	}
	if err := m.Entries.UpdateEntry(ctx, models.EntryUpdate{
		ID:           newEntry.ID,
		Favorite:     &fav,
		DateAdded:    &dateAdded,
		ChapterFlags: &oldEntry.ChapterFlags,
		ViewerFlags:  &oldEntry.ViewerFlags,
	}); err != nil {
		m.logf("[migrate] favorite new entry: %v", err)
	}

	return nil
}

// migrateChapters marks everything the user had read on the old entry as
// read on the new one, up to the highest read chapter number, and carries
// bookmarks and fetch dates across exact number matches so the new chapters
// don't flood the updates view.
func (m *Migrator) migrateChapters(ctx context.Context, oldEntry, newEntry models.Entry) error {
	oldChapters, err := m.Chapters.GetByEntry(ctx, oldEntry.ID)
	if err != nil {
		return fmt.Errorf("load old chapters: %w", err)
	}
	newChapters, err := m.Chapters.GetByEntry(ctx, newEntry.ID)
	if err != nil {
		return fmt.Errorf("load new chapters: %w", err)
	}

	maxRead := -1.0
	byNumber := make(map[float64]models.Chapter)
	for _, c := range oldChapters {
		if c.Read && c.ChapterNumber > maxRead {
			maxRead = c.ChapterNumber
		}
		if c.IsRecognizedNumber() {
			byNumber[c.ChapterNumber] = c
		}
	}

	var updates []models.ChapterUpdate
	for _, c := range newChapters {
		if !c.IsRecognizedNumber() {
			continue
		}
		upd := models.ChapterUpdate{ID: c.ID}
		changed := false
		if !c.Read && c.ChapterNumber <= maxRead {
			read := true
			upd.Read = &read
			changed = true
		}
		if old, ok := byNumber[c.ChapterNumber]; ok {
			if old.Bookmark && !c.Bookmark {
				mark := true
				upd.Bookmark = &mark
				changed = true
			}
			if old.DateFetch != 0 && old.DateFetch != c.DateFetch {
				dateFetch := old.DateFetch
				upd.DateFetch = &dateFetch
				changed = true
			}
		}
		if changed {
			updates = append(updates, upd)
		}
	}
	if len(updates) == 0 {
		return nil
	}
	if err := m.Chapters.UpdateAll(ctx, updates); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

func (m *Migrator) migrateCategories(ctx context.Context, oldEntry, newEntry models.Entry) error {
	ids, err := m.Categories.GetByEntry(ctx, oldEntry.ID)
	if err != nil {
		return fmt.Errorf("load old categories: %w", err)
	}
	if err := m.Categories.SetForEntry(ctx, newEntry.ID, ids); err != nil {
		return fmt.Errorf("write categories: %w", err)
	}
	return nil
}

// migrateTracks rebinds every tracker link to the new entry. Links that an
// enhanced tracker claims as its own are remapped through the tracker, which
// may rewrite the remote id for the new source.
func (m *Migrator) migrateTracks(ctx context.Context, oldEntry, newEntry models.Entry) error {
	links, err := m.Tracks.GetByEntry(ctx, oldEntry.ID)
	if err != nil {
		return fmt.Errorf("load old tracks: %w", err)
	}
	if len(links) == 0 {
		return nil
	}

	rebound := make([]models.Track, 0, len(links))
	for _, link := range links {
		claimed := false
		for _, t := range m.Trackers {
			if !t.Accepts(link, oldEntry, oldEntry.SourceID) {
				continue
			}
			claimed = true
			remapped, err := t.Migrate(ctx, link, newEntry, newEntry.SourceID)
			if err != nil {
				// A claimed link that fails to remap would point at the
				// wrong source binding, so it is dropped instead.
				m.logf("[migrate] tracker %s remap: %v", t.Name(), err)
				break
			}
			remapped.ID = 0
			remapped.EntryID = newEntry.ID
			rebound = append(rebound, remapped)
			break
		}
		if !claimed {
			link.ID = 0
			link.EntryID = newEntry.ID
			rebound = append(rebound, link)
		}
	}

	if err := m.Tracks.UpsertAll(ctx, rebound); err != nil {
		return fmt.Errorf("write tracks: %w", err)
	}
	return nil
}

func (m *Migrator) migrateCover(oldEntry, newEntry models.Entry) error {
	if !m.Covers.HasCustom(oldEntry.ID) {
		return nil
	}
	data, err := m.Covers.ReadCustom(oldEntry.ID)
	if err != nil {
		return fmt.Errorf("read cover: %w", err)
	}
	if err := m.Covers.WriteCustom(newEntry.ID, data); err != nil {
		return fmt.Errorf("write cover: %w", err)
	}
	return nil
}

func (m *Migrator) nowMillis() int64 {
	if m.Now != nil {
		return m.Now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

func (m *Migrator) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
