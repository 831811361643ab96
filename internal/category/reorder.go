package category

import (
	"context"
	"log"
	"sync"

	"mangashelf/pkg/models"
)

// Store is the slice of persistence the reorderer needs.
type Store interface {
	GetAll(ctx context.Context) ([]models.Category, error)
	UpdatePartial(ctx context.Context, updates []models.CategoryUpdate) error
}

// Result reports what a move did. Callers type-switch over the three
// concrete outcomes.
type Result interface {
	isResult()
}

// Success means the order changed and was persisted.
type Success struct{}

// Unchanged means the move was a no-op: unknown category, system
// category, or a move past either end of the list.
type Unchanged struct{}

// InternalError wraps a persistence failure.
type InternalError struct {
	Err error
}

func (Success) isResult()       {}
func (Unchanged) isResult()     {}
func (InternalError) isResult() {}

// Reorderer serializes category moves so two concurrent swaps cannot
// interleave their read-modify-write cycles.
type Reorderer struct {
	store Store

	mu sync.Mutex
}

func NewReorderer(store Store) *Reorderer {
	return &Reorderer{store: store}
}

func (r *Reorderer) MoveUp(ctx context.Context, categoryID int64) Result {
	return r.move(ctx, categoryID, -1)
}

func (r *Reorderer) MoveDown(ctx context.Context, categoryID int64) Result {
	return r.move(ctx, categoryID, +1)
}

func (r *Reorderer) move(ctx context.Context, categoryID int64, delta int) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.GetAll(ctx)
	if err != nil {
		log.Printf("[category] reorder read failed: %v", err)
		return InternalError{Err: err}
	}

	// The system category is pinned at the front and never moves.
	cats := make([]models.Category, 0, len(all))
	for _, c := range all {
		if c.IsSystem() {
			continue
		}
		cats = append(cats, c)
	}

	idx := -1
	for i, c := range cats {
		if c.ID == categoryID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Unchanged{}
	}

	newPos := idx + delta
	if newPos < 0 || newPos >= len(cats) {
		return Unchanged{}
	}
	cats[idx], cats[newPos] = cats[newPos], cats[idx]

	// Rewrite every order so the sequence stays contiguous even if the
	// stored values had gaps.
	updates := make([]models.CategoryUpdate, 0, len(cats))
	for i := range cats {
		order := int64(i + 1)
		updates = append(updates, models.CategoryUpdate{ID: cats[i].ID, Order: &order})
	}
	if err := r.store.UpdatePartial(ctx, updates); err != nil {
		log.Printf("[category] reorder write failed: %v", err)
		return InternalError{Err: err}
	}
	return Success{}
}
