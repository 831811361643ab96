package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mangashelf/pkg/models"
)

var archiveExts = map[string]bool{
	".cbz":  true,
	".cbr":  true,
	".zip":  true,
	".rar":  true,
	".epub": true,
}

// Local serves entries stored on disk under Root. Entry.URL is the directory
// name of the title; each archive file inside is one chapter.
type Local struct {
	Root string
}

func NewLocal(root string) *Local {
	return &Local{Root: root}
}

func (s *Local) Name() string { return LocalSourceID }

func (s *Local) FetchChapterList(ctx context.Context, entry models.Entry) ([]models.RawChapter, error) {
	dir := filepath.Join(s.Root, entry.URL)

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// never imported anything for this title yet
			return nil, nil
		}
		return nil, fmt.Errorf("local: read %s: %w", dir, err)
	}

	var chapters []models.RawChapter
	for _, f := range files {
		if f.IsDir() || !archiveExts[strings.ToLower(filepath.Ext(f.Name()))] {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		raw := models.NewRawChapter()
		raw.URL = filepath.Join(entry.URL, f.Name())
		raw.Name = strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		raw.DateUpload = info.ModTime().UnixMilli()
		chapters = append(chapters, raw)
	}

	// newest chapter first, matching what remote sources return
	sort.Slice(chapters, func(i, j int) bool {
		return chapters[i].Name > chapters[j].Name
	})

	return chapters, nil
}
