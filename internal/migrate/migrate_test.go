package migrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"mangashelf/internal/flags"
	"mangashelf/internal/source"
	"mangashelf/internal/syncer"
	"mangashelf/pkg/models"
)

type fakeDriver struct {
	name string
	raw  []models.RawChapter
	err  error
}

func (d *fakeDriver) Name() string { return d.name }

func (d *fakeDriver) FetchChapterList(ctx context.Context, entry models.Entry) ([]models.RawChapter, error) {
	return d.raw, d.err
}

// fakeStore backs chapters, entries, categories and tracks in memory, and
// records every write so tests can assert on mutations.
type fakeStore struct {
	chapters map[int64][]models.Chapter
	cats     map[int64][]int64
	tracks   map[int64][]models.Track

	entryUpdates []models.EntryUpdate
	upserted     []models.Track
	nextID       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chapters: make(map[int64][]models.Chapter),
		cats:     make(map[int64][]int64),
		tracks:   make(map[int64][]models.Track),
		nextID:   100,
	}
}

func (s *fakeStore) GetByEntry(ctx context.Context, entryID int64) ([]models.Chapter, error) {
	out := make([]models.Chapter, len(s.chapters[entryID]))
	copy(out, s.chapters[entryID])
	return out, nil
}

func (s *fakeStore) AddAll(ctx context.Context, chapters []models.Chapter) ([]models.Chapter, error) {
	out := make([]models.Chapter, len(chapters))
	for i, c := range chapters {
		s.nextID++
		c.ID = s.nextID
		s.chapters[c.EntryID] = append(s.chapters[c.EntryID], c)
		out[i] = c
	}
	return out, nil
}

func (s *fakeStore) RemoveWithIDs(ctx context.Context, ids []int64) error {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for entryID, chs := range s.chapters {
		var kept []models.Chapter
		for _, c := range chs {
			if !drop[c.ID] {
				kept = append(kept, c)
			}
		}
		s.chapters[entryID] = kept
	}
	return nil
}

func (s *fakeStore) UpdateAll(ctx context.Context, updates []models.ChapterUpdate) error {
	for _, u := range updates {
		for entryID, chs := range s.chapters {
			for i := range chs {
				if chs[i].ID != u.ID {
					continue
				}
				if u.Read != nil {
					chs[i].Read = *u.Read
				}
				if u.Bookmark != nil {
					chs[i].Bookmark = *u.Bookmark
				}
				if u.Name != nil {
					chs[i].Name = *u.Name
				}
				if u.DateFetch != nil {
					chs[i].DateFetch = *u.DateFetch
				}
			}
			s.chapters[entryID] = chs
		}
	}
	return nil
}

func (s *fakeStore) UpdateEntry(ctx context.Context, update models.EntryUpdate) error {
	s.entryUpdates = append(s.entryUpdates, update)
	return nil
}

func (s *fakeStore) GetCategoriesByEntry(ctx context.Context, entryID int64) ([]int64, error) {
	return s.cats[entryID], nil
}

func (s *fakeStore) SetForEntry(ctx context.Context, entryID int64, categoryIDs []int64) error {
	s.cats[entryID] = categoryIDs
	return nil
}

func (s *fakeStore) GetTracksByEntry(ctx context.Context, entryID int64) ([]models.Track, error) {
	return s.tracks[entryID], nil
}

func (s *fakeStore) UpsertAll(ctx context.Context, links []models.Track) error {
	s.upserted = append(s.upserted, links...)
	return nil
}

// catStore / trackStore adapt fakeStore to the two interfaces whose method
// names collide with the chapter store.
type catStore struct{ *fakeStore }

func (s catStore) GetByEntry(ctx context.Context, entryID int64) ([]int64, error) {
	return s.GetCategoriesByEntry(ctx, entryID)
}

type trackStore struct{ *fakeStore }

func (s trackStore) GetByEntry(ctx context.Context, entryID int64) ([]models.Track, error) {
	return s.GetTracksByEntry(ctx, entryID)
}

type fakeCovers struct {
	data map[int64][]byte
}

func newFakeCovers() *fakeCovers { return &fakeCovers{data: make(map[int64][]byte)} }

func (c *fakeCovers) HasCustom(entryID int64) bool { _, ok := c.data[entryID]; return ok }

func (c *fakeCovers) ReadCustom(entryID int64) ([]byte, error) { return c.data[entryID], nil }

func (c *fakeCovers) WriteCustom(entryID int64, data []byte) error {
	c.data[entryID] = data
	return nil
}

type fakeTracker struct {
	name      string
	trackerID int64
	err       error
	migrated  []models.Track
}

func (t *fakeTracker) Name() string { return t.name }

func (t *fakeTracker) Accepts(link models.Track, oldEntry models.Entry, oldSourceID string) bool {
	return link.TrackerID == t.trackerID
}

func (t *fakeTracker) Migrate(ctx context.Context, link models.Track, newEntry models.Entry, newSourceID string) (models.Track, error) {
	if t.err != nil {
		return models.Track{}, t.err
	}
	// Remapping to the new source gives the link a fresh remote id.
	link.RemoteID += 1000
	t.migrated = append(t.migrated, link)
	return link, nil
}

var (
	oldEntry = models.Entry{ID: 1, SourceID: "alpha", Title: "Bleach", Favorite: true, DateAdded: 111, ChapterFlags: 5, ViewerFlags: 3}
	newEntry = models.Entry{ID: 2, SourceID: "beta", Title: "Bleach"}
)

func newMigrator(store *fakeStore, covers *fakeCovers, driver source.Driver, trackers ...*fakeTracker) *Migrator {
	reg := source.NewRegistry(driver)
	sy := syncer.New(store, store)
	sy.Now = func() time.Time { return time.UnixMilli(2_000_000) }

	m := &Migrator{
		Sources:    reg,
		Syncer:     sy,
		Entries:    store,
		Chapters:   store,
		Categories: catStore{store},
		Tracks:     trackStore{store},
		Covers:     covers,
		Now:        func() time.Time { return time.UnixMilli(2_000_000) },
	}
	for _, t := range trackers {
		m.Trackers = append(m.Trackers, t)
	}
	return m
}

func TestFetchFailureAbortsWithNoWrites(t *testing.T) {
	store := newFakeStore()
	store.cats[oldEntry.ID] = []int64{10}
	covers := newFakeCovers()
	covers.data[oldEntry.ID] = []byte("art")
	driver := &fakeDriver{name: "beta", err: errors.New("network down")}
	m := newMigrator(store, covers, driver)

	err := m.Migrate(context.Background(), oldEntry, newEntry, true, flags.DefaultMigrationFlags)
	if err == nil {
		t.Fatal("want error when the target fetch fails")
	}
	if len(store.entryUpdates) != 0 {
		t.Errorf("entries were touched: %+v", store.entryUpdates)
	}
	if len(store.cats[newEntry.ID]) != 0 {
		t.Error("categories were copied despite abort")
	}
	if covers.HasCustom(newEntry.ID) {
		t.Error("cover was copied despite abort")
	}
	if m.IsMigrating() {
		t.Error("migrating flag stuck after failure")
	}
}

func TestSyncFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	// Empty listing for a non-local source makes the sync error out, but
	// the migration carries on regardless.
	driver := &fakeDriver{name: "beta"}
	m := newMigrator(store, newFakeCovers(), driver)

	if err := m.Migrate(context.Background(), oldEntry, newEntry, false, 0); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if m.IsMigrating() {
		t.Error("migrating flag stuck after success")
	}
}

func TestFlagGatesSatelliteData(t *testing.T) {
	store := newFakeStore()
	store.cats[oldEntry.ID] = []int64{10, 20}
	store.tracks[oldEntry.ID] = []models.Track{{ID: 1, EntryID: oldEntry.ID, TrackerID: 7, RemoteID: 42}}
	covers := newFakeCovers()
	covers.data[oldEntry.ID] = []byte("art")
	store.chapters[oldEntry.ID] = []models.Chapter{
		{ID: 1, EntryID: oldEntry.ID, URL: "/a1", Name: "Chapter 1", ChapterNumber: 1, Read: true},
	}
	store.chapters[newEntry.ID] = []models.Chapter{
		{ID: 2, EntryID: newEntry.ID, URL: "/b1", Name: "Chapter 1", ChapterNumber: 1},
	}
	m := newMigrator(store, covers, &fakeDriver{name: "beta"})

	// Everything except chapter progress.
	migFlags := flags.MigrateCategories | flags.MigrateTracks | flags.MigrateCustomCover
	if err := m.Migrate(context.Background(), oldEntry, newEntry, false, migFlags); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if store.chapters[newEntry.ID][0].Read {
		t.Error("progress was carried although its flag was off")
	}
	if got := store.cats[newEntry.ID]; len(got) != 2 {
		t.Errorf("categories = %v, want two copied", got)
	}
	if len(store.upserted) != 1 || store.upserted[0].EntryID != newEntry.ID {
		t.Errorf("tracks = %+v, want one rebound to entry 2", store.upserted)
	}
	if string(covers.data[newEntry.ID]) != "art" {
		t.Error("custom cover was not copied")
	}
}

func TestChapterProgressCarry(t *testing.T) {
	store := newFakeStore()
	store.chapters[oldEntry.ID] = []models.Chapter{
		{ID: 1, EntryID: oldEntry.ID, URL: "/a1", Name: "Chapter 1", ChapterNumber: 1, Read: true, DateFetch: 501},
		{ID: 2, EntryID: oldEntry.ID, URL: "/a2", Name: "Chapter 2", ChapterNumber: 2, Read: true, DateFetch: 502},
		{ID: 3, EntryID: oldEntry.ID, URL: "/a3", Name: "Chapter 3", ChapterNumber: 3, Bookmark: true, DateFetch: 503},
	}
	store.chapters[newEntry.ID] = []models.Chapter{
		{ID: 11, EntryID: newEntry.ID, URL: "/b1", Name: "Chapter 1", ChapterNumber: 1, DateFetch: 901},
		{ID: 12, EntryID: newEntry.ID, URL: "/b2", Name: "Chapter 2", ChapterNumber: 2, DateFetch: 902},
		{ID: 13, EntryID: newEntry.ID, URL: "/b3", Name: "Chapter 3", ChapterNumber: 3, DateFetch: 903},
		{ID: 14, EntryID: newEntry.ID, URL: "/b4", Name: "Oneshot", ChapterNumber: -1, DateFetch: 904},
	}
	m := newMigrator(store, newFakeCovers(), &fakeDriver{name: "beta"})

	if err := m.Migrate(context.Background(), oldEntry, newEntry, false, flags.MigrateChapters); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	byID := make(map[int64]models.Chapter)
	for _, c := range store.chapters[newEntry.ID] {
		byID[c.ID] = c
	}
	if !byID[11].Read || !byID[12].Read {
		t.Error("chapters up to the highest read number should be read")
	}
	if byID[13].Read {
		t.Error("chapter 3 was never read on the old entry")
	}
	if !byID[13].Bookmark {
		t.Error("bookmark on chapter 3 should carry over")
	}
	if byID[14].Read || byID[14].Bookmark {
		t.Error("unrecognized chapter numbers must not receive progress")
	}
	if byID[11].DateFetch != 501 || byID[13].DateFetch != 503 {
		t.Errorf("fetch dates should carry across number matches: %d, %d",
			byID[11].DateFetch, byID[13].DateFetch)
	}
	if byID[14].DateFetch != 904 {
		t.Errorf("unmatched chapter fetch date changed: %d", byID[14].DateFetch)
	}
}

func TestEnhancedTrackerDelegation(t *testing.T) {
	store := newFakeStore()
	store.tracks[oldEntry.ID] = []models.Track{
		{ID: 1, EntryID: oldEntry.ID, TrackerID: 7, RemoteID: 42},
		{ID: 2, EntryID: oldEntry.ID, TrackerID: 8, RemoteID: 43},
	}
	tracker := &fakeTracker{name: "komga", trackerID: 7}
	m := newMigrator(store, newFakeCovers(), &fakeDriver{name: "beta"}, tracker)

	if err := m.Migrate(context.Background(), oldEntry, newEntry, false, flags.MigrateTracks); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if len(store.upserted) != 2 {
		t.Fatalf("got %d rebound tracks, want 2", len(store.upserted))
	}
	byTracker := make(map[int64]models.Track)
	for _, tr := range store.upserted {
		byTracker[tr.TrackerID] = tr
	}
	if got := byTracker[7].RemoteID; got != 1042 {
		t.Errorf("claimed link remote id = %d, want remapped 1042", got)
	}
	if got := byTracker[8].RemoteID; got != 43 {
		t.Errorf("plain link remote id = %d, want untouched 43", got)
	}
	for _, tr := range store.upserted {
		if tr.EntryID != newEntry.ID {
			t.Errorf("track %d still bound to entry %d", tr.TrackerID, tr.EntryID)
		}
	}
}

func TestEnhancedTrackerFailureDropsLink(t *testing.T) {
	store := newFakeStore()
	store.tracks[oldEntry.ID] = []models.Track{
		{ID: 1, EntryID: oldEntry.ID, TrackerID: 7, RemoteID: 42},
	}
	tracker := &fakeTracker{name: "komga", trackerID: 7, err: errors.New("remote 500")}
	m := newMigrator(store, newFakeCovers(), &fakeDriver{name: "beta"}, tracker)

	if err := m.Migrate(context.Background(), oldEntry, newEntry, false, flags.MigrateTracks); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(store.upserted) != 0 {
		t.Errorf("failed remap should drop the link, got %+v", store.upserted)
	}
}

func TestReplaceSemantics(t *testing.T) {
	store := newFakeStore()
	m := newMigrator(store, newFakeCovers(), &fakeDriver{name: "beta"})

	if err := m.Migrate(context.Background(), oldEntry, newEntry, true, 0); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if len(store.entryUpdates) != 2 {
		t.Fatalf("got %d entry updates, want 2", len(store.entryUpdates))
	}

	oldUpd := store.entryUpdates[0]
	if oldUpd.ID != oldEntry.ID || oldUpd.Favorite == nil || *oldUpd.Favorite {
		t.Errorf("old entry should be unfavorited: %+v", oldUpd)
	}
	if oldUpd.DateAdded == nil || *oldUpd.DateAdded != 0 {
		t.Errorf("old entry date added should reset: %+v", oldUpd)
	}

	newUpd := store.entryUpdates[1]
	if newUpd.ID != newEntry.ID || newUpd.Favorite == nil || !*newUpd.Favorite {
		t.Errorf("new entry should be favorited: %+v", newUpd)
	}
	if newUpd.DateAdded == nil || *newUpd.DateAdded != oldEntry.DateAdded {
		t.Errorf("replace keeps the old date added: %+v", newUpd)
	}
	if newUpd.ChapterFlags == nil || *newUpd.ChapterFlags != oldEntry.ChapterFlags {
		t.Errorf("chapter flags should carry over: %+v", newUpd)
	}
	if newUpd.ViewerFlags == nil || *newUpd.ViewerFlags != oldEntry.ViewerFlags {
		t.Errorf("viewer flags should carry over: %+v", newUpd)
	}
}

func TestCopyKeepsOldFavoriteAndStampsNow(t *testing.T) {
	store := newFakeStore()
	m := newMigrator(store, newFakeCovers(), &fakeDriver{name: "beta"})

	if err := m.Migrate(context.Background(), oldEntry, newEntry, false, 0); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if len(store.entryUpdates) != 1 {
		t.Fatalf("got %d entry updates, want only the new entry's", len(store.entryUpdates))
	}
	upd := store.entryUpdates[0]
	if upd.ID != newEntry.ID {
		t.Fatalf("touched entry %d, want %d", upd.ID, newEntry.ID)
	}
	if upd.DateAdded == nil || *upd.DateAdded != 2_000_000 {
		t.Errorf("copy stamps the current time as date added: %+v", upd)
	}
}

func TestUnknownTargetSource(t *testing.T) {
	store := newFakeStore()
	m := newMigrator(store, newFakeCovers(), &fakeDriver{name: "gamma"})

	err := m.Migrate(context.Background(), oldEntry, newEntry, false, 0)
	if !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("got %v, want ErrUnknownSource", err)
	}
}
