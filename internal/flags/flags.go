// Package flags packs several small, independent preference enumerations into
// a single integer column using disjoint bitmasks. Entries carry two such
// columns (viewer_flags, chapter_flags) and categories one (flags), so the
// codec has to update one sub-field without disturbing its siblings.
package flags

// SetFlag replaces the bits selected by mask with flag, leaving all bits
// outside mask untouched.
func SetFlag(current, flag, mask int64) int64 {
	return current&^mask | flag&mask
}

// Has reports whether every bit of flag is set in current.
func Has(current, flag int64) bool {
	return current&flag == flag
}

// Field is one variant of a packed sub-field: a stable name for
// serialization, the bit pattern identifying the variant, and the mask of the
// storage cell the variant lives in. All fields of one FieldSet share a mask.
type Field struct {
	Name string
	Flag int64
	Mask int64
}

// FieldSet is a closed enumeration of variants sharing one mask. Decoding
// never fails: bit patterns that match no variant yield the default.
type FieldSet struct {
	fields []Field
	def    Field
}

// NewFieldSet builds a set from the given fields. defaultName must name one
// of them; if it does not, the first field becomes the default.
func NewFieldSet(defaultName string, fields ...Field) FieldSet {
	s := FieldSet{fields: fields, def: fields[0]}
	for _, f := range fields {
		if f.Name == defaultName {
			s.def = f
			break
		}
	}
	return s
}

func (s FieldSet) Default() Field {
	return s.def
}

// Decode extracts this set's sub-field from a packed value. Unknown bit
// patterns decode to the default variant.
func (s FieldSet) Decode(packed int64) Field {
	for _, f := range s.fields {
		if f.Flag == packed&f.Mask {
			return f
		}
	}
	return s.def
}

// ByName looks a variant up by its serialized name.
func (s FieldSet) ByName(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Apply writes the variant into packed, preserving sibling sub-fields.
func (s FieldSet) Apply(packed int64, f Field) int64 {
	return SetFlag(packed, f.Flag, f.Mask)
}
