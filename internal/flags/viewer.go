package flags

const (
	readingModeMask int64 = 0b00000111
	orientationMask int64 = 0b00111000
)

// ReadingModes is the per-entry reader layout, stored in viewer_flags.
var ReadingModes = NewFieldSet("default",
	Field{Name: "default", Flag: 0, Mask: readingModeMask},
	Field{Name: "left_to_right", Flag: 1, Mask: readingModeMask},
	Field{Name: "right_to_left", Flag: 2, Mask: readingModeMask},
	Field{Name: "vertical", Flag: 3, Mask: readingModeMask},
	Field{Name: "webtoon", Flag: 4, Mask: readingModeMask},
	Field{Name: "continuous_vertical", Flag: 5, Mask: readingModeMask},
)

// Orientations is the per-entry screen orientation, sharing viewer_flags
// with the reading mode under a disjoint mask.
var Orientations = NewFieldSet("free",
	Field{Name: "free", Flag: 0b00000000, Mask: orientationMask},
	Field{Name: "portrait", Flag: 0b00001000, Mask: orientationMask},
	Field{Name: "landscape", Flag: 0b00010000, Mask: orientationMask},
	Field{Name: "locked_portrait", Flag: 0b00011000, Mask: orientationMask},
	Field{Name: "locked_landscape", Flag: 0b00100000, Mask: orientationMask},
)
