// Package storage implements the photo file store: one flat directory per
// workflow category under a common root.
package storage

import (
	"io"

	"github.com/starford/photoboard/internal/models"
)

// Provider is the interface for category-directory file operations.
type Provider interface {
	// Put atomically writes content as filename under category.
	Put(category models.Category, filename string, content []byte) error
	// Relocate moves filename from one category directory to another. It
	// reports false with a nil error when the source file does not exist.
	Relocate(filename string, from, to models.Category) (bool, error)
	// Remove deletes filename from category.
	Remove(category models.Category, filename string) error
	// Exists reports whether filename is present under category.
	Exists(category models.Category, filename string) bool
	// List returns the filenames stored under category.
	List(category models.Category) ([]string, error)
	// Open returns a reader over filename under category.
	Open(category models.Category, filename string) (io.ReadCloser, error)
	// Path returns the absolute on-disk path of filename under category.
	Path(category models.Category, filename string) (string, error)
}
