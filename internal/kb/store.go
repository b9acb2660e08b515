// Package kb loads knowledge-base source documents for indexing.
package kb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrKBDirMissing aborts indexing entirely: there is no partial-index
// fallback when the knowledge base is absent.
var ErrKBDirMissing = errors.New("knowledge base directory not found")

// Document is one raw source article, keyed by its filename.
type Document struct {
	ID      string
	Content string
}

// DirStore enumerates the .txt articles under a directory.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

func (s *DirStore) Load(ctx context.Context) ([]Document, error) {
	info, err := os.Stat(s.dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrKBDirMissing, s.dir)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, entry.Name())) // #nosec G304 -- path is from application config, not user input
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		docs = append(docs, Document{
			ID:      entry.Name(),
			Content: strings.TrimSpace(string(raw)),
		})
	}
	return docs, nil
}
