package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/starford/photoboard/internal/models"
)

const tmpPrefix = ".photoboard-tmp-"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the uploads directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute uploads directory.
func (f *FS) Root() string {
	return f.root
}

// Provision creates the directory of every category.
func (f *FS) Provision() error {
	for _, c := range models.AllCategories {
		if err := os.MkdirAll(filepath.Join(f.root, string(c)), 0o755); err != nil {
			return fmt.Errorf("storage: provision %s: %w", c, err)
		}
	}
	return nil
}

// Dir returns the absolute directory of a category.
func (f *FS) Dir(category models.Category) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("storage: unknown category %q", category)
	}
	return filepath.Join(f.root, string(category)), nil
}

// Path validates that filename is a plain leaf name (no separators, no
// traversal) and returns its absolute path under the category directory.
func (f *FS) Path(category models.Category, filename string) (string, error) {
	dir, err := f.Dir(category)
	if err != nil {
		return "", err
	}
	if filename == "" {
		return "", fmt.Errorf("storage: filename is required")
	}
	cleaned := filepath.Clean(filename)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || cleaned == "." {
		return "", fmt.Errorf("storage: invalid filename: %s", filename)
	}
	abs := filepath.Join(dir, cleaned)
	if !strings.HasPrefix(abs, dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes category directory: %s", filename)
	}
	return abs, nil
}

// Put atomically writes content under category, creating the directory if absent.
func (f *FS) Put(category models.Category, filename string, content []byte) error {
	abs, err := f.Path(category, filename)
	if err != nil {
		return err
	}
	return WriteFileAtomic(abs, content, 0o644)
}

// Relocate moves filename between category directories without renaming it.
func (f *FS) Relocate(filename string, from, to models.Category) (bool, error) {
	src, err := f.Path(from, filename)
	if err != nil {
		return false, err
	}
	dst, err := f.Path(to, filename)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %s: %w", src, err)
	}
	if src == dst {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, fmt.Errorf("storage: mkdir for relocate: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return false, fmt.Errorf("storage: relocate: %w", err)
		}
		if err := copyThenRemove(src, dst); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Remove deletes a file from a category directory.
func (f *FS) Remove(category models.Category, filename string) error {
	abs, err := f.Path(category, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: remove %s/%s: %w", category, filename, err)
	}
	return nil
}

// Exists reports whether filename is a regular file under category.
func (f *FS) Exists(category models.Category, filename string) bool {
	abs, err := f.Path(category, filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Open returns a reader over filename under category.
func (f *FS) Open(category models.Category, filename string) (io.ReadCloser, error) {
	abs, err := f.Path(category, filename)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

// List returns the regular files of a category directory. Temp files and a
// missing directory yield nothing.
func (f *FS) List(category models.Category) ([]string, error) {
	dir, err := f.Dir(category)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list %s: %w", category, err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// WriteFileAtomic writes content to path: tmp file → fsync → rename.
// Readers observe either the previous content or the new one, never a prefix.
func WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// copyThenRemove is the cross-device fallback for Relocate.
func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("storage: open source: %w", err)
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("storage: read source: %w", err)
	}
	if err := WriteFileAtomic(dst, data, 0o644); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("storage: remove source: %w", err)
	}
	return nil
}
