// Package syncer diffs a freshly fetched remote chapter listing against the
// persisted chapters of one entry, writing the minimal set of inserts,
// partial updates and deletes, while carrying user progress across chapters
// that were deleted and re-added under a new URL.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"mangashelf/internal/recognition"
	"mangashelf/internal/source"
	"mangashelf/pkg/models"
)

// ErrNoChapters means the remote listing was empty for an entry that is not
// a local one. The sync aborts with no writes.
var ErrNoChapters = errors.New("no chapters found for entry")

// ChapterStore is the persistence contract the synchronizer consumes.
type ChapterStore interface {
	GetByEntry(ctx context.Context, entryID int64) ([]models.Chapter, error)
	// AddAll inserts chapters and returns them with repository-assigned ids.
	AddAll(ctx context.Context, chapters []models.Chapter) ([]models.Chapter, error)
	RemoveWithIDs(ctx context.Context, ids []int64) error
	UpdateAll(ctx context.Context, updates []models.ChapterUpdate) error
}

type EntryStore interface {
	UpdateEntry(ctx context.Context, update models.EntryUpdate) error
}

// DownloadProvider decides whether a metadata change would rename the
// chapter's on-disk download directory.
type DownloadProvider interface {
	DirNameChanged(oldChapter, newChapter models.Chapter) bool
}

// DownloadManager renames already-downloaded chapter artifacts so they keep
// matching the naming scheme after a metadata update.
type DownloadManager interface {
	IsDownloaded(chapter models.Chapter, entry models.Entry) bool
	RenameChapter(ctx context.Context, driver source.Driver, entry models.Entry, oldChapter, newChapter models.Chapter) error
}

// Syncer holds the collaborators. Provider/Downloads are optional; leaving
// them nil disables the download-rename side effect. ShouldUpdate defaults
// to MetadataChanged, Now to time.Now.
type Syncer struct {
	Chapters  ChapterStore
	Entries   EntryStore
	Provider  DownloadProvider
	Downloads DownloadManager

	ShouldUpdate func(dbChapter, sourceChapter models.Chapter) bool
	Logger       *log.Logger
	Now          func() time.Time
}

func New(chapters ChapterStore, entries EntryStore) *Syncer {
	return &Syncer{Chapters: chapters, Entries: entries}
}

// MetadataChanged is the default update predicate: name, number, scanlator
// and source order always count; the upload date only when the source
// actually supplies one.
func MetadataChanged(dbChapter, sourceChapter models.Chapter) bool {
	return dbChapter.Name != sourceChapter.Name ||
		dbChapter.ChapterNumber != sourceChapter.ChapterNumber ||
		dbChapter.Scanlator != sourceChapter.Scanlator ||
		dbChapter.SourceOrder != sourceChapter.SourceOrder ||
		(sourceChapter.DateUpload != 0 && dbChapter.DateUpload != sourceChapter.DateUpload)
}

// Sync reconciles the remote listing with the database and returns the newly
// added chapters, excluding re-additions of chapters that were just deleted
// (those are continuations, not news).
func (s *Syncer) Sync(ctx context.Context, rawChapters []models.RawChapter, entry models.Entry, driver source.Driver) ([]models.Chapter, error) {
	if len(rawChapters) == 0 && !source.IsLocal(driver) {
		return nil, ErrNoChapters
	}

	refresher, _ := driver.(source.MetadataRefresher)

	// Dedup by URL keeping the first occurrence; the position in the
	// deduplicated listing is the source order.
	seen := make(map[string]bool, len(rawChapters))
	sourceChapters := make([]models.Chapter, 0, len(rawChapters))
	for _, raw := range rawChapters {
		if seen[raw.URL] {
			continue
		}
		seen[raw.URL] = true

		if refresher != nil {
			refresher.RefreshChapter(&raw, entry)
		}

		ch := models.NewChapter()
		ch.EntryID = entry.ID
		ch.URL = raw.URL
		ch.Name = raw.Name
		ch.Scanlator = raw.Scanlator
		ch.DateUpload = raw.DateUpload
		ch.ChapterNumber = recognition.Recognize(entry.Title, raw.Name, raw.ChapterNumber)
		ch.SourceOrder = int64(len(sourceChapters))
		sourceChapters = append(sourceChapters, ch)
	}

	dbChapters, err := s.Chapters.GetByEntry(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("load chapters: %w", err)
	}
	dbByURL := make(map[string]models.Chapter, len(dbChapters))
	for _, c := range dbChapters {
		dbByURL[c.URL] = c
	}

	// Persisted chapters gone from the source.
	var toDelete []models.Chapter
	for _, c := range dbChapters {
		if !seen[c.URL] {
			toDelete = append(toDelete, c)
		}
	}

	rightNow := s.nowMillis()

	shouldUpdate := s.ShouldUpdate
	if shouldUpdate == nil {
		shouldUpdate = MetadataChanged
	}

	var toAdd []models.Chapter
	var toChange []models.ChapterUpdate

	// Used to not give older chapters a later upload date than newer ones
	// when the source omits dates for some of them.
	var maxSeenUploadDate int64

	for _, ch := range sourceChapters {
		dbChapter, exists := dbByURL[ch.URL]
		if !exists {
			if ch.DateUpload == 0 {
				if maxSeenUploadDate == 0 {
					ch.DateUpload = rightNow
				} else {
					ch.DateUpload = maxSeenUploadDate
				}
			} else if ch.DateUpload > maxSeenUploadDate {
				maxSeenUploadDate = ch.DateUpload
			}
			toAdd = append(toAdd, ch)
			continue
		}

		if shouldUpdate(dbChapter, ch) {
			s.maybeRenameDownload(ctx, driver, entry, dbChapter, ch)

			upd := models.ChapterUpdate{
				ID:            dbChapter.ID,
				Name:          &ch.Name,
				ChapterNumber: &ch.ChapterNumber,
				Scanlator:     &ch.Scanlator,
				SourceOrder:   &ch.SourceOrder,
			}
			if ch.DateUpload != 0 {
				upd.DateUpload = &ch.DateUpload
			}
			toChange = append(toChange, upd)
		}
	}

	// Nothing to do: skip the writes entirely.
	if len(toAdd) == 0 && len(toDelete) == 0 && len(toChange) == 0 {
		return nil, nil
	}

	deletedNumbers := make(map[float64]bool, len(toDelete))
	deletedReadNumbers := make(map[float64]bool)
	deletedBookmarkNumbers := make(map[float64]bool)
	for _, c := range toDelete {
		if c.Read {
			deletedReadNumbers[c.ChapterNumber] = true
		}
		if c.Bookmark {
			deletedBookmarkNumbers[c.ChapterNumber] = true
		}
		deletedNumbers[c.ChapterNumber] = true
	}

	// Built over deletions sorted by descending dateFetch, so when two
	// deleted chapters share a number the smallest dateFetch is written
	// last and wins. Preserved as-is; see DESIGN.md.
	byFetchDesc := make([]models.Chapter, len(toDelete))
	copy(byFetchDesc, toDelete)
	sort.SliceStable(byFetchDesc, func(i, j int) bool {
		return byFetchDesc[i].DateFetch > byFetchDesc[j].DateFetch
	})
	deletedNumberDateFetch := make(map[float64]int64, len(byFetchDesc))
	for _, c := range byFetchDesc {
		deletedNumberDateFetch[c.ChapterNumber] = c.DateFetch
	}

	// Synthetic fetch dates preserve the remote ordering: chapters earlier
	// in the listing get strictly later dates, even though all are
	// inserted now. Sources return chapters from most to least recent.
	reAdded := make(map[string]bool)
	itemCount := int64(len(toAdd))
	for i := range toAdd {
		ch := &toAdd[i]
		ch.DateFetch = rightNow + itemCount
		itemCount--

		if !ch.IsRecognizedNumber() || !deletedNumbers[ch.ChapterNumber] {
			continue
		}

		// Re-added: same number was just deleted under another URL.
		// Carry progress over and reuse the original fetch date so the
		// chapter doesn't resurface as "new" in the updates view.
		ch.Read = deletedReadNumbers[ch.ChapterNumber]
		ch.Bookmark = deletedBookmarkNumbers[ch.ChapterNumber]
		if dateFetch, ok := deletedNumberDateFetch[ch.ChapterNumber]; ok {
			ch.DateFetch = dateFetch
		}
		reAdded[ch.URL] = true
	}

	if len(toDelete) > 0 {
		ids := make([]int64, len(toDelete))
		for i, c := range toDelete {
			ids[i] = c.ID
		}
		if err := s.Chapters.RemoveWithIDs(ctx, ids); err != nil {
			return nil, fmt.Errorf("delete chapters: %w", err)
		}
	}

	added := toAdd
	if len(toAdd) > 0 {
		added, err = s.Chapters.AddAll(ctx, toAdd)
		if err != nil {
			return nil, fmt.Errorf("insert chapters: %w", err)
		}
	}

	if len(toChange) > 0 {
		if err := s.Chapters.UpdateAll(ctx, toChange); err != nil {
			return nil, fmt.Errorf("update chapters: %w", err)
		}
	}

	// The chapter list changed, so bump the entry's last update stamp.
	if err := s.Entries.UpdateEntry(ctx, models.EntryUpdate{ID: entry.ID, LastUpdate: &rightNow}); err != nil {
		return nil, fmt.Errorf("bump last update: %w", err)
	}

	fresh := make([]models.Chapter, 0, len(added))
	for _, c := range added {
		if !reAdded[c.URL] {
			fresh = append(fresh, c)
		}
	}
	return fresh, nil
}

func (s *Syncer) maybeRenameDownload(ctx context.Context, driver source.Driver, entry models.Entry, oldChapter, newChapter models.Chapter) {
	if s.Provider == nil || s.Downloads == nil {
		return
	}
	if !s.Provider.DirNameChanged(oldChapter, newChapter) {
		return
	}
	if !s.Downloads.IsDownloaded(oldChapter, entry) {
		return
	}
	if err := s.Downloads.RenameChapter(ctx, driver, entry, oldChapter, newChapter); err != nil {
		s.logf("[sync] rename download %q: %v", oldChapter.Name, err)
	}
}

func (s *Syncer) nowMillis() int64 {
	if s.Now != nil {
		return s.Now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

func (s *Syncer) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
