// Package catalog persists the photo catalog as a single JSON document.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/starford/photoboard/internal/models"
	"github.com/starford/photoboard/internal/storage"
)

// Store is whole-document persistence of the catalog.
type Store interface {
	// Load returns the persisted catalog. found is false when nothing has
	// been persisted yet, in which case an empty catalog is returned.
	Load() (cat models.Catalog, found bool, err error)
	// Save overwrites the persisted catalog.
	Save(cat models.Catalog) error
}

// JSONStore keeps the catalog in one JSON file. A writer holds the
// advisory lock next to it for as long as it owns the document.
type JSONStore struct {
	path string

	mu   sync.Mutex
	lock *os.File
}

// NewJSONStore returns a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the document location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads and parses the document.
func (s *JSONStore) Load() (models.Catalog, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.NewCatalog(), false, nil
		}
		return nil, false, fmt.Errorf("catalog: read %s: %w", s.path, err)
	}
	var cat models.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, false, fmt.Errorf("catalog: parse %s: %w", s.path, err)
	}
	for c := range cat {
		if !c.Valid() {
			return nil, false, fmt.Errorf("catalog: parse %s: unknown category %q", s.path, c)
		}
	}
	return cat.Normalize(), true, nil
}

// Save serializes the full catalog and replaces the document atomically.
func (s *JSONStore) Save(cat models.Catalog) error {
	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	if err := storage.WriteFileAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("catalog: save: %w", err)
	}
	return nil
}
