// Package testutil provides shared test helpers for setting up uploads
// directories, catalogs, journals and deterministic clocks.
package testutil

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/photoboard/internal/catalog"
	"github.com/starford/photoboard/internal/index"
	"github.com/starford/photoboard/internal/models"
	"github.com/starford/photoboard/internal/storage"
)

// ErrInjected is returned by FlakyStore when a failure is armed.
var ErrInjected = errors.New("injected failure")

// TestDB creates a temporary SQLite journal that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "photoboard-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestUploads creates a temporary uploads directory with every category provisioned.
func TestUploads(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Provision(); err != nil {
		t.Fatal(err)
	}
	return fs.Root(), fs
}

// TestCatalog returns a JSON catalog store in a temp directory.
func TestCatalog(t *testing.T) *catalog.JSONStore {
	t.Helper()
	return catalog.NewJSONStore(filepath.Join(t.TempDir(), "photos_data.json"))
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LoadCatalog reads the persisted catalog, failing the test on error.
func LoadCatalog(t *testing.T, s catalog.Store) models.Catalog {
	t.Helper()
	cat, _, err := s.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator returns sequential IDs: "id-1", "id-2", etc.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}

// FlakyStore wraps a catalog store and fails Save while armed.
type FlakyStore struct {
	catalog.Store

	mu   sync.Mutex
	fail bool
}

// NewFlakyStore wraps s.
func NewFlakyStore(s catalog.Store) *FlakyStore {
	return &FlakyStore{Store: s}
}

// FailSaves arms or disarms Save failures.
func (f *FlakyStore) FailSaves(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *FlakyStore) Save(cat models.Catalog) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Store.Save(cat)
}
