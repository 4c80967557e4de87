package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/photoboard/internal/apperr"
	"github.com/starford/photoboard/internal/checksum"
	"github.com/starford/photoboard/internal/models"
)

// DefaultMaxBytes caps a single uploaded photo.
const DefaultMaxBytes = 16 << 20

// DefaultExtensions are the accepted image extensions.
var DefaultExtensions = []string{"png", "jpg", "jpeg", "gif", "webp"}

// Upload is one raw payload offered for ingestion.
type Upload struct {
	Name string
	Data []byte
}

// Policy screens uploads before ingestion.
type Policy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// DefaultPolicy returns the stock size and extension limits.
func DefaultPolicy() Policy {
	return Policy{MaxBytes: DefaultMaxBytes, AllowedExtensions: DefaultExtensions}
}

// Accept reports whether a file called name of the given size may be ingested.
func (p Policy) Accept(name string, size int64) bool {
	if name == "" || size < 0 {
		return false
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return false
	}
	ext := Extension(name)
	if ext == "" {
		return false
	}
	for _, allowed := range p.AllowedExtensions {
		if strings.EqualFold(strings.TrimPrefix(allowed, "."), ext) {
			return true
		}
	}
	return false
}

// Screen returns the uploads that pass the policy, in their original order.
func (p Policy) Screen(uploads []Upload) []Upload {
	out := make([]Upload, 0, len(uploads))
	for _, u := range uploads {
		if p.Accept(u.Name, int64(len(u.Data))) {
			out = append(out, u)
		}
	}
	return out
}

// Extension returns the lowercased extension of name's leaf, without the dot.
func Extension(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
}

// Ingest stores each upload under todo as a new photo and prepends the batch,
// in order, to the todo sequence with a single catalog write. The uploads are
// expected to have been screened already; an empty batch is rejected.
func (e *Engine) Ingest(ctx context.Context, uploads []Upload) ([]models.Photo, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("workflow: ingest: %w", apperr.ErrNoValidFiles)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var written []string
	rollback := func() {
		for _, name := range written {
			if err := e.files.Remove(models.Todo, name); err != nil {
				e.logger.Error("ingest rollback failed",
					slog.String("filename", name),
					slog.String("error", err.Error()))
			}
		}
	}

	now := e.clock.Now().UTC()
	photos := make([]models.Photo, 0, len(uploads))
	for _, u := range uploads {
		filename := e.ids.New()
		if ext := Extension(u.Name); ext != "" {
			filename += "." + ext
		}
		if err := e.files.Put(models.Todo, filename, u.Data); err != nil {
			rollback()
			return nil, fmt.Errorf("workflow: ingest %s: %w", u.Name, err)
		}
		written = append(written, filename)

		photos = append(photos, models.Photo{
			ID:         e.ids.New(),
			Filename:   filename,
			URL:        models.PhotoURL(e.prefix, models.Todo, filename),
			Category:   models.Todo,
			Checksum:   checksum.Sum(u.Data),
			UploadedAt: now,
		})
	}

	next := e.cat.Clone()
	next.Prepend(models.Todo, photos)
	if err := e.store.Save(next); err != nil {
		rollback()
		return nil, fmt.Errorf("workflow: save catalog: %w", err)
	}
	e.commit(next)

	out := make([]models.Photo, len(photos))
	for i, p := range photos {
		e.emit(Event{Kind: EventIngested, Photo: p.Clone(), Relocated: true, At: now})
		out[i] = p.Clone()
	}
	return out, nil
}
