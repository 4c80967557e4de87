// Package models defines the domain types for Photoboard.
package models

import (
	"path"
	"time"
)

// Category is a workflow state. It doubles as a directory name in the file store.
type Category string

// Workflow categories.
const (
	Todo     Category = "todo"
	Doing    Category = "doing"
	Done     Category = "done"
	Archived Category = "archived"
)

// AllCategories lists every category that owns a directory in the file store.
var AllCategories = []Category{Todo, Doing, Done, Archived}

// BoardCategories are the visible categories, in lookup order.
var BoardCategories = []Category{Todo, Doing, Done}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Todo, Doing, Done, Archived:
		return true
	}
	return false
}

// Movable reports whether c is a valid target for a move.
func (c Category) Movable() bool {
	return c == Todo || c == Doing || c == Done
}

// Photo is one tracked image and its workflow metadata.
type Photo struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	URL        string     `json:"url"`
	Category   Category   `json:"category"`
	Checksum   string     `json:"checksum,omitempty"`
	UploadedAt time.Time  `json:"uploaded_at"`
	MovedAt    *time.Time `json:"moved_at,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// PhotoURL projects the display path of a file in a category.
func PhotoURL(prefix string, c Category, filename string) string {
	return path.Join("/", prefix, string(c), filename)
}

// Catalog maps each category to its ordered photos.
type Catalog map[Category][]Photo

// NewCatalog returns an empty catalog with every board category present.
func NewCatalog() Catalog {
	c := make(Catalog, len(AllCategories))
	for _, cat := range BoardCategories {
		c[cat] = []Photo{}
	}
	return c
}

// Normalize makes sure every board category has a non-nil sequence.
func (c Catalog) Normalize() Catalog {
	if c == nil {
		return NewCatalog()
	}
	for _, cat := range BoardCategories {
		if c[cat] == nil {
			c[cat] = []Photo{}
		}
	}
	return c
}

// Clone returns a deep copy that shares no slices with c.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for cat, photos := range c {
		cp := make([]Photo, len(photos))
		for i, p := range photos {
			cp[i] = p.Clone()
		}
		out[cat] = cp
	}
	return out
}

// Clone returns a copy of p with its own timestamp pointers.
func (p Photo) Clone() Photo {
	if p.MovedAt != nil {
		t := *p.MovedAt
		p.MovedAt = &t
	}
	if p.ArchivedAt != nil {
		t := *p.ArchivedAt
		p.ArchivedAt = &t
	}
	return p
}

// Find searches the given categories in order and returns the first photo
// with id, its category and index.
func (c Catalog) Find(id string, in ...Category) (Photo, Category, int, bool) {
	for _, cat := range in {
		for i, p := range c[cat] {
			if p.ID == id {
				return p, cat, i, true
			}
		}
	}
	return Photo{}, "", -1, false
}

// Remove deletes the photo at index i of cat, keeping the order of the rest.
func (c Catalog) Remove(cat Category, i int) {
	photos := c[cat]
	c[cat] = append(photos[:i:i], photos[i+1:]...)
}

// Append adds p to the end of cat.
func (c Catalog) Append(cat Category, p Photo) {
	c[cat] = append(c[cat], p)
}

// Prepend inserts photos as a block at the front of cat, keeping their order.
func (c Catalog) Prepend(cat Category, photos []Photo) {
	out := make([]Photo, 0, len(photos)+len(c[cat]))
	out = append(out, photos...)
	c[cat] = append(out, c[cat]...)
}

// Len returns the number of photos across all categories.
func (c Catalog) Len() int {
	n := 0
	for _, photos := range c {
		n += len(photos)
	}
	return n
}
