package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/starford/photoboard/internal/models"
)

// FileResolver maps a category and filename to a path on disk.
type FileResolver interface {
	Path(category models.Category, filename string) (string, error)
}

// FileHandler serves photo files out of the category directories.
type FileHandler struct {
	files FileResolver
}

// NewFileHandler creates a handler over the given file store.
func NewFileHandler(files FileResolver) *FileHandler {
	return &FileHandler{files: files}
}

// ServeFile handles GET <url_prefix>/{category}/{filename}.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	category := models.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		http.NotFound(w, r)
		return
	}
	abs, err := h.files.Path(category, chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, abs)
}
