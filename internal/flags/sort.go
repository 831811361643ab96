package flags

import "strings"

const (
	sortTypeMask      int64 = 0b00111100
	sortDirectionMask int64 = 0b01000000
)

// SortTypes enumerates what the library list can be ordered by.
var SortTypes = NewFieldSet("ALPHABETICAL",
	Field{Name: "ALPHABETICAL", Flag: 0b00000000, Mask: sortTypeMask},
	Field{Name: "LAST_READ", Flag: 0b00000100, Mask: sortTypeMask},
	Field{Name: "LAST_UPDATE", Flag: 0b00001000, Mask: sortTypeMask},
	Field{Name: "UNREAD_COUNT", Flag: 0b00001100, Mask: sortTypeMask},
	Field{Name: "TOTAL_CHAPTERS", Flag: 0b00010000, Mask: sortTypeMask},
	Field{Name: "LATEST_CHAPTER", Flag: 0b00010100, Mask: sortTypeMask},
	Field{Name: "CHAPTER_FETCH_DATE", Flag: 0b00011000, Mask: sortTypeMask},
	Field{Name: "DATE_ADDED", Flag: 0b00011100, Mask: sortTypeMask},
)

// SortDirections enumerates the sort direction.
var SortDirections = NewFieldSet("ASCENDING",
	Field{Name: "ASCENDING", Flag: 0b01000000, Mask: sortDirectionMask},
	Field{Name: "DESCENDING", Flag: 0b00000000, Mask: sortDirectionMask},
)

// LibrarySort is the (type, direction) pair packed into a category's flags
// column. Both halves live in the same int64 under disjoint masks.
type LibrarySort struct {
	Type      Field
	Direction Field
}

func DefaultSort() LibrarySort {
	return LibrarySort{Type: SortTypes.Default(), Direction: SortDirections.Default()}
}

// SortFromFlags unpacks the sort preference from a flags column. Unknown bits in
// either half fall back to that half's default.
func SortFromFlags(packed int64) LibrarySort {
	return LibrarySort{
		Type:      SortTypes.Decode(packed),
		Direction: SortDirections.Decode(packed),
	}
}

// Apply writes both halves into packed, preserving unrelated flag bits.
func (s LibrarySort) Apply(packed int64) int64 {
	packed = SortTypes.Apply(packed, s.Type)
	return SortDirections.Apply(packed, s.Direction)
}

func (s LibrarySort) IsAscending() bool {
	return s.Direction.Name == "ASCENDING"
}

// Serialize renders the pair as "TYPE,DIRECTION".
func (s LibrarySort) Serialize() string {
	return s.Type.Name + "," + s.Direction.Name
}

// DeserializeSort parses the "TYPE,DIRECTION" form. Anything malformed or
// unknown yields the default sort rather than an error.
func DeserializeSort(raw string) LibrarySort {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return DefaultSort()
	}
	sort := DefaultSort()
	if t, ok := SortTypes.ByName(strings.TrimSpace(parts[0])); ok {
		sort.Type = t
	}
	if d, ok := SortDirections.ByName(strings.TrimSpace(parts[1])); ok {
		sort.Direction = d
	}
	return sort
}
