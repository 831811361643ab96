package models

// Entry is one tracked title in the library: a manga on a specific remote
// source, with the user state (favorite, flags, dates) that hangs off it.
type Entry struct {
	ID           int64  `json:"id"`
	SourceID     string `json:"source_id"`    // which driver owns this entry
	URL          string `json:"url"`          // remote key within the source
	Title        string `json:"title"`
	Favorite     bool   `json:"favorite"`
	ViewerFlags  int64  `json:"viewer_flags"`  // packed reading mode + orientation
	ChapterFlags int64  `json:"chapter_flags"` // packed chapter sort/filter prefs
	DateAdded    int64  `json:"date_added"`    // unix millis, 0 = never favorited
	LastUpdate   int64  `json:"last_update"`   // unix millis of last chapter-list change
}

// EntryUpdate is a partial update: nil fields are left untouched.
type EntryUpdate struct {
	ID           int64
	Title        *string
	Favorite     *bool
	ViewerFlags  *int64
	ChapterFlags *int64
	DateAdded    *int64
	LastUpdate   *int64
}
