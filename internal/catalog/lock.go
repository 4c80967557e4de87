package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLocked is returned by Acquire when another process owns the catalog.
var ErrLocked = errors.New("catalog: locked by another process")

// Locker is implemented by stores that can be owned by one writer at a time.
type Locker interface {
	Acquire() error
	Release() error
}

// LockPath returns the lock file guarding the document.
func (s *JSONStore) LockPath() string {
	return s.path + ".lock"
}

// Acquire takes an exclusive advisory lock on the catalog. It fails with
// ErrLocked instead of waiting when another writer holds it.
func (s *JSONStore) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("catalog: lock: %w", err)
	}
	f, err := os.OpenFile(s.LockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("catalog: lock: %w", err)
	}
	if err := tryLock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, errWouldBlock) {
			return fmt.Errorf("%w: %s", ErrLocked, s.LockPath())
		}
		return fmt.Errorf("catalog: lock %s: %w", s.LockPath(), err)
	}
	s.lock = f
	return nil
}

// Release drops the lock taken by Acquire.
func (s *JSONStore) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return nil
	}
	f := s.lock
	s.lock = nil
	if err := unlock(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("catalog: unlock: %w", err)
	}
	return f.Close()
}
