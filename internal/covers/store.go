// Package covers stores user-set custom cover art on disk, one file per
// entry. The default cover from the source is handled by the image cache,
// not here; only explicit user overrides land in this store.
package covers

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Store struct {
	Dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure covers dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) path(entryID int64) string {
	return filepath.Join(s.Dir, strconv.FormatInt(entryID, 10))
}

func (s *Store) HasCustom(entryID int64) bool {
	info, err := os.Stat(s.path(entryID))
	return err == nil && !info.IsDir()
}

func (s *Store) ReadCustom(entryID int64) ([]byte, error) {
	data, err := os.ReadFile(s.path(entryID))
	if err != nil {
		return nil, fmt.Errorf("read cover %d: %w", entryID, err)
	}
	return data, nil
}

func (s *Store) WriteCustom(entryID int64, data []byte) error {
	tmp := s.path(entryID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cover %d: %w", entryID, err)
	}
	if err := os.Rename(tmp, s.path(entryID)); err != nil {
		return fmt.Errorf("commit cover %d: %w", entryID, err)
	}
	return nil
}

func (s *Store) DeleteCustom(entryID int64) error {
	if err := os.Remove(s.path(entryID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cover %d: %w", entryID, err)
	}
	return nil
}
