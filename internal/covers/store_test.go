package covers

import (
	"bytes"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if store.HasCustom(1) {
		t.Error("fresh store should have no cover")
	}

	want := []byte("not really a jpeg")
	if err := store.WriteCustom(1, want); err != nil {
		t.Fatal(err)
	}
	if !store.HasCustom(1) {
		t.Error("cover should exist after write")
	}

	got, err := store.ReadCustom(1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("read back %q, want %q", got, want)
	}

	if err := store.DeleteCustom(1); err != nil {
		t.Fatal(err)
	}
	if store.HasCustom(1) {
		t.Error("cover should be gone after delete")
	}

	// deleting twice is fine
	if err := store.DeleteCustom(1); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
