package models

// RawChapter is a chapter exactly as a source driver reports it, before it is
// matched against the database. URL is the remote-stable identity key.
type RawChapter struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	// -1 = not recognized yet. 0 is a valid pinned number (prologues), so
	// producers must start from NewRawChapter or set -1 explicitly.
	ChapterNumber float64 `json:"chapter_number"`
	Scanlator     string  `json:"scanlator,omitempty"`
	DateUpload    int64   `json:"date_upload"` // unix millis, 0 = source gave none
}

// NewRawChapter returns a raw chapter with the number sentinel set, so a
// forgotten field never reads as a pinned chapter 0.
func NewRawChapter() RawChapter {
	return RawChapter{ChapterNumber: -1}
}

// Chapter is one persisted chapter of an Entry.
//
// Chapters are matched across syncs by URL, never by numeric ID. DateFetch is
// assigned locally and orders the "recently updated" view; DateUpload comes
// from the source.
type Chapter struct {
	ID            int64   `json:"id"`
	EntryID       int64   `json:"entry_id"`
	URL           string  `json:"url"`
	Name          string  `json:"name"`
	ChapterNumber float64 `json:"chapter_number"`
	Scanlator     string  `json:"scanlator,omitempty"`
	SourceOrder   int64   `json:"source_order"` // 0-based position in the remote listing
	DateUpload    int64   `json:"date_upload"`
	DateFetch     int64   `json:"date_fetch"`
	Read          bool    `json:"read"`
	Bookmark      bool    `json:"bookmark"`
	LastPageRead  int64   `json:"last_page_read"`
}

// IsRecognizedNumber reports whether a chapter number was extracted from the
// chapter name. -1 means unrecognized, -2 means explicitly unknown.
func (c Chapter) IsRecognizedNumber() bool {
	return c.ChapterNumber >= 0
}

// NewChapter returns a chapter with the sentinel defaults expected by the
// synchronizer.
func NewChapter() Chapter {
	return Chapter{
		ID:            -1,
		EntryID:       -1,
		ChapterNumber: -1,
		DateUpload:    -1,
	}
}

// ChapterUpdate is a partial update: nil fields are left untouched.
type ChapterUpdate struct {
	ID            int64
	Name          *string
	ChapterNumber *float64
	Scanlator     *string
	SourceOrder   *int64
	DateUpload    *int64
	DateFetch     *int64
	Read          *bool
	Bookmark      *bool
	LastPageRead  *int64
}
