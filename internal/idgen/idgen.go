// Package idgen produces collision-resistant identifiers for photos and
// their stored filenames.
package idgen

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Generator abstracts unique ID generation so tests are deterministic.
type Generator interface {
	New() string
}

// UUID produces random (version 4) UUIDs rendered as 32 lowercase hex digits.
type UUID struct{}

// New returns a fresh identifier.
func (UUID) New() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
