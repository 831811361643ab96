package category

import (
	"context"
	"errors"
	"testing"

	"mangashelf/pkg/models"
)

type fakeStore struct {
	cats    []models.Category
	failGet bool
	failSet bool
}

func (s *fakeStore) GetAll(ctx context.Context) ([]models.Category, error) {
	if s.failGet {
		return nil, errors.New("boom")
	}
	out := make([]models.Category, len(s.cats))
	copy(out, s.cats)
	return out, nil
}

func (s *fakeStore) UpdatePartial(ctx context.Context, updates []models.CategoryUpdate) error {
	if s.failSet {
		return errors.New("boom")
	}
	for _, u := range updates {
		for i := range s.cats {
			if s.cats[i].ID == u.ID && u.Order != nil {
				s.cats[i].Order = *u.Order
			}
		}
	}
	return nil
}

func (s *fakeStore) orderOf(id int64) int64 {
	for _, c := range s.cats {
		if c.ID == id {
			return c.Order
		}
	}
	return -1
}

func threeCategories() *fakeStore {
	return &fakeStore{cats: []models.Category{
		{ID: models.SystemCategoryID, Name: "Default", Order: 0},
		{ID: 10, Name: "Reading", Order: 1},
		{ID: 20, Name: "Completed", Order: 2},
		{ID: 30, Name: "Dropped", Order: 3},
	}}
}

func TestMoveDownSwapsNeighbours(t *testing.T) {
	store := threeCategories()
	r := NewReorderer(store)

	res := r.MoveDown(context.Background(), 10)
	if _, ok := res.(Success); !ok {
		t.Fatalf("got %T, want Success", res)
	}
	if got := store.orderOf(20); got != 1 {
		t.Errorf("category 20 order = %d, want 1", got)
	}
	if got := store.orderOf(10); got != 2 {
		t.Errorf("category 10 order = %d, want 2", got)
	}
	if got := store.orderOf(30); got != 3 {
		t.Errorf("category 30 order = %d, want 3", got)
	}
}

func TestMoveUpFirstIsNoop(t *testing.T) {
	store := threeCategories()
	r := NewReorderer(store)

	res := r.MoveUp(context.Background(), 10)
	if _, ok := res.(Unchanged); !ok {
		t.Fatalf("got %T, want Unchanged", res)
	}
	if got := store.orderOf(10); got != 1 {
		t.Errorf("category 10 order = %d, want untouched 1", got)
	}
}

func TestMoveDownLastIsNoop(t *testing.T) {
	store := threeCategories()
	r := NewReorderer(store)

	res := r.MoveDown(context.Background(), 30)
	if _, ok := res.(Unchanged); !ok {
		t.Fatalf("got %T, want Unchanged", res)
	}
}

func TestMoveUnknownCategoryIsNoop(t *testing.T) {
	store := threeCategories()
	r := NewReorderer(store)

	res := r.MoveDown(context.Background(), 999)
	if _, ok := res.(Unchanged); !ok {
		t.Fatalf("got %T, want Unchanged", res)
	}
}

func TestMoveSystemCategoryIsNoop(t *testing.T) {
	store := threeCategories()
	r := NewReorderer(store)

	res := r.MoveDown(context.Background(), models.SystemCategoryID)
	if _, ok := res.(Unchanged); !ok {
		t.Fatalf("got %T, want Unchanged", res)
	}
}

func TestMoveStoreFailure(t *testing.T) {
	store := threeCategories()
	store.failSet = true
	r := NewReorderer(store)

	res := r.MoveDown(context.Background(), 10)
	ie, ok := res.(InternalError)
	if !ok {
		t.Fatalf("got %T, want InternalError", res)
	}
	if ie.Err == nil {
		t.Error("InternalError should carry the cause")
	}
}

func TestMoveReadFailure(t *testing.T) {
	store := threeCategories()
	store.failGet = true
	r := NewReorderer(store)

	if _, ok := r.MoveUp(context.Background(), 20).(InternalError); !ok {
		t.Fatal("want InternalError on read failure")
	}
}

func TestMoveRewritesContiguousOrders(t *testing.T) {
	// Gappy stored orders come out contiguous after any successful move.
	store := &fakeStore{cats: []models.Category{
		{ID: models.SystemCategoryID, Name: "Default", Order: 0},
		{ID: 10, Name: "A", Order: 5},
		{ID: 20, Name: "B", Order: 9},
	}}
	r := NewReorderer(store)

	if _, ok := r.MoveDown(context.Background(), 10).(Success); !ok {
		t.Fatal("want Success")
	}
	if got := store.orderOf(20); got != 1 {
		t.Errorf("category 20 order = %d, want 1", got)
	}
	if got := store.orderOf(10); got != 2 {
		t.Errorf("category 10 order = %d, want 2", got)
	}
}
