package storage

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/starford/photoboard/internal/models"
)

func tempUploads(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if err := fs.Provision(); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return fs
}

func TestProvisionCreatesCategoryDirs(t *testing.T) {
	s := tempUploads(t)
	for _, c := range models.AllCategories {
		info, err := os.Stat(filepath.Join(s.Root(), string(c)))
		if err != nil || !info.IsDir() {
			t.Errorf("category dir %q missing: %v", c, err)
		}
	}
}

func TestPutAndExists(t *testing.T) {
	s := tempUploads(t)
	if err := s.Put(models.Todo, "a.jpg", []byte("jpeg")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !s.Exists(models.Todo, "a.jpg") {
		t.Error("file should exist under todo")
	}
	if s.Exists(models.Doing, "a.jpg") {
		t.Error("file should not exist under doing")
	}
	got, err := os.ReadFile(filepath.Join(s.Root(), "todo", "a.jpg"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "jpeg" {
		t.Errorf("content = %q", got)
	}
}

func TestRelocate(t *testing.T) {
	s := tempUploads(t)
	_ = s.Put(models.Todo, "a.jpg", []byte("data"))

	ok, err := s.Relocate("a.jpg", models.Todo, models.Doing)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if !ok {
		t.Fatal("Relocate reported missing source")
	}
	if s.Exists(models.Todo, "a.jpg") {
		t.Error("source should be gone")
	}
	if !s.Exists(models.Doing, "a.jpg") {
		t.Error("target should exist")
	}
}

func TestRelocateMissingSource(t *testing.T) {
	s := tempUploads(t)
	ok, err := s.Relocate("ghost.jpg", models.Todo, models.Archived)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if ok {
		t.Error("expected false for a missing source")
	}
	if s.Exists(models.Archived, "ghost.jpg") {
		t.Error("nothing should appear in the target")
	}
}

func TestRelocateCreatesMissingTargetDir(t *testing.T) {
	s := tempUploads(t)
	_ = s.Put(models.Todo, "a.jpg", []byte("data"))
	if err := os.RemoveAll(filepath.Join(s.Root(), "archived")); err != nil {
		t.Fatal(err)
	}
	ok, err := s.Relocate("a.jpg", models.Todo, models.Archived)
	if err != nil || !ok {
		t.Fatalf("Relocate = %v, %v", ok, err)
	}
	if !s.Exists(models.Archived, "a.jpg") {
		t.Error("target should exist")
	}
}

func TestRelocateSameCategory(t *testing.T) {
	s := tempUploads(t)
	_ = s.Put(models.Done, "a.jpg", []byte("data"))
	ok, err := s.Relocate("a.jpg", models.Done, models.Done)
	if err != nil || !ok {
		t.Fatalf("Relocate = %v, %v", ok, err)
	}
	if !s.Exists(models.Done, "a.jpg") {
		t.Error("file should stay in place")
	}
}

func TestList(t *testing.T) {
	s := tempUploads(t)
	_ = s.Put(models.Todo, "b.png", []byte("b"))
	_ = s.Put(models.Todo, "a.jpg", []byte("a"))
	_ = s.Put(models.Done, "c.gif", []byte("c"))
	if err := os.Mkdir(filepath.Join(s.Root(), "todo", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err := s.List(models.Todo)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a.jpg" || names[1] != "b.png" {
		t.Errorf("names = %v", names)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempUploads(t)

	cases := []string{
		"../../etc/passwd",
		"../doing/x.jpg",
		"/etc/shadow",
		"sub/x.jpg",
		"",
		".",
	}
	for _, p := range cases {
		if _, err := s.Path(models.Todo, p); err == nil {
			t.Errorf("expected error for filename %q", p)
		}
		if err := s.Put(models.Todo, p, []byte("x")); err == nil {
			t.Errorf("expected error for put to %q", p)
		}
	}
	if _, err := s.Path("trash", "x.jpg"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempUploads(t)
	path := filepath.Join(s.Root(), "doc.json")
	if err := WriteFileAtomic(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("updated"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "photoboard-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestOpen(t *testing.T) {
	s := tempUploads(t)
	if err := s.Put(models.Done, "a.png", []byte("png")); err != nil {
		t.Fatal(err)
	}
	rc, err := s.Open(models.Done, "a.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil || string(data) != "png" {
		t.Errorf("read = %q, %v", data, err)
	}

	if _, err := s.Open(models.Done, "../a.png"); err == nil {
		t.Error("expected traversal to be rejected")
	}
	if _, err := s.Open(models.Todo, "a.png"); !os.IsNotExist(err) {
		t.Errorf("missing file err = %v", err)
	}
}
