// Package source defines the remote-source driver contract and the built-in
// drivers. A driver only knows how to list chapters for an entry; everything
// else (diffing, persistence) happens elsewhere.
package source

import (
	"context"
	"sync"

	"mangashelf/pkg/models"
)

// LocalSourceID is the reserved driver name for entries that exist only on
// disk. An empty chapter listing is normal for them, not an error.
const LocalSourceID = "local"

// Driver is implemented by each external data source.
type Driver interface {
	Name() string
	FetchChapterList(ctx context.Context, entry models.Entry) ([]models.RawChapter, error)
}

// MetadataRefresher is an optional driver hook that rewrites a raw chapter's
// fields in place before it is matched against the database. Drivers with
// richer metadata use it to normalize names or pin chapter numbers.
type MetadataRefresher interface {
	RefreshChapter(raw *models.RawChapter, entry models.Entry)
}

// IsLocal reports whether the driver serves offline entries.
func IsLocal(d Driver) bool {
	return d != nil && d.Name() == LocalSourceID
}

// Registry maps driver names to drivers.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

func NewRegistry(drivers ...Driver) *Registry {
	r := &Registry{drivers: make(map[string]Driver)}
	for _, d := range drivers {
		r.Register(d)
	}
	return r
}

func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	r.drivers[d.Name()] = d
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[name]
	return d, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	return names
}
