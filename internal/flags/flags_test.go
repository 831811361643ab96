package flags

import "testing"

func TestSetFlag(t *testing.T) {
	cases := []struct {
		name                string
		current, flag, mask int64
		want                int64
	}{
		{"set into empty", 0, 0b0100, 0b1100, 0b0100},
		{"replace within mask", 0b1100, 0b0100, 0b1100, 0b0100},
		{"siblings untouched", 0b1010_0011, 0b0100, 0b1100, 0b1010_0111},
		{"flag bits outside mask dropped", 0, 0b1111, 0b0011, 0b0011},
		{"clear sub-field", 0b0110_1100, 0, 0b1100, 0b0110_0000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SetFlag(tc.current, tc.flag, tc.mask); got != tc.want {
				t.Errorf("SetFlag(%b, %b, %b) = %b, want %b", tc.current, tc.flag, tc.mask, got, tc.want)
			}
		})
	}
}

func TestLibrarySortRoundTrip(t *testing.T) {
	for _, typ := range SortTypes.fields {
		for _, dir := range SortDirections.fields {
			sort := LibrarySort{Type: typ, Direction: dir}

			packed := sort.Apply(0)
			got := SortFromFlags(packed)
			if got.Type.Name != typ.Name || got.Direction.Name != dir.Name {
				t.Errorf("decode(encode(%s,%s)) = (%s,%s)", typ.Name, dir.Name, got.Type.Name, got.Direction.Name)
			}

			back := DeserializeSort(sort.Serialize())
			if back.Type.Name != typ.Name || back.Direction.Name != dir.Name {
				t.Errorf("deserialize(serialize(%s,%s)) = (%s,%s)", typ.Name, dir.Name, back.Type.Name, back.Direction.Name)
			}
		}
	}
}

func TestLibrarySortPreservesSiblingBits(t *testing.T) {
	// Sort bits share the flags column with other preferences; applying a
	// sort must not clobber them.
	const unrelated int64 = 0b1000_0000_0011

	sort := LibrarySort{Type: mustField(t, SortTypes, "UNREAD_COUNT"), Direction: mustField(t, SortDirections, "DESCENDING")}
	packed := sort.Apply(unrelated)

	if packed&unrelated != unrelated {
		t.Errorf("unrelated bits lost: %b", packed)
	}
	if got := SortFromFlags(packed); got.Type.Name != "UNREAD_COUNT" || got.Direction.Name != "DESCENDING" {
		t.Errorf("got (%s,%s)", got.Type.Name, got.Direction.Name)
	}
}

func TestSortFromFlagsUnknownBitsYieldDefault(t *testing.T) {
	// 0b00100000 is inside the type mask but matches no defined type.
	got := SortFromFlags(0b00100000)
	if got.Type.Name != DefaultSort().Type.Name {
		t.Errorf("type = %s, want default", got.Type.Name)
	}
	// the cleared direction bit is a defined variant, not a fallback
	if got.Direction.Name != "DESCENDING" {
		t.Errorf("direction = %s, want DESCENDING", got.Direction.Name)
	}
}

func TestDeserializeSortMalformed(t *testing.T) {
	def := DefaultSort()
	for _, raw := range []string{"", "ALPHABETICAL", "A,B,C", "BOGUS,BOGUS", "???"} {
		got := DeserializeSort(raw)
		if got.Type.Name != def.Type.Name || got.Direction.Name != def.Direction.Name {
			t.Errorf("DeserializeSort(%q) = (%s,%s), want default", raw, got.Type.Name, got.Direction.Name)
		}
	}
}

func TestFieldSetDecodeUnknownViewerBits(t *testing.T) {
	// reading mode 0b111 is not a defined variant
	if got := ReadingModes.Decode(0b111); got.Name != ReadingModes.Default().Name {
		t.Errorf("got %s, want default", got.Name)
	}
	if got := Orientations.Decode(0b00101000); got.Name != Orientations.Default().Name {
		t.Errorf("got %s, want default", got.Name)
	}
}

func TestMigrationFlags(t *testing.T) {
	if !Has(DefaultMigrationFlags, MigrateChapters) ||
		!Has(DefaultMigrationFlags, MigrateCategories) ||
		!Has(DefaultMigrationFlags, MigrateTracks) ||
		!Has(DefaultMigrationFlags, MigrateCustomCover) {
		t.Fatal("default migration flags must carry everything")
	}

	partial := DefaultMigrationFlags &^ MigrateChapters
	if Has(partial, MigrateChapters) {
		t.Error("chapters bit should be cleared")
	}
	if !Has(partial, MigrateTracks) {
		t.Error("tracks bit should survive clearing chapters")
	}
}

func mustField(t *testing.T, s FieldSet, name string) Field {
	t.Helper()
	f, ok := s.ByName(name)
	if !ok {
		t.Fatalf("field %q not defined", name)
	}
	return f
}
