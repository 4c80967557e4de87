// Package workflow moves photos through the todo → doing → done board and
// into the archive, keeping the catalog document and the category
// directories in step.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/photoboard/internal/apperr"
	"github.com/starford/photoboard/internal/catalog"
	"github.com/starford/photoboard/internal/idgen"
	"github.com/starford/photoboard/internal/models"
	"github.com/starford/photoboard/internal/storage"
)

// DefaultURLPrefix is where category directories are served from.
const DefaultURLPrefix = "/static/uploads"

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// EventKind names a completed catalog mutation.
type EventKind string

const (
	EventIngested EventKind = "ingested"
	EventMoved    EventKind = "moved"
	EventArchived EventKind = "archived"
)

// Event describes one photo affected by a committed mutation.
// Relocated is false when the photo's file was missing from its source
// directory and only the metadata moved.
type Event struct {
	Kind      EventKind
	Photo     models.Photo
	From      models.Category
	Relocated bool
	At        time.Time
}

// Listener is called after every committed mutation, in commit order.
type Listener func(Event)

// Engine owns the in-memory catalog. A single mutex serializes every
// load-mutate-save cycle.
type Engine struct {
	store     catalog.Store
	files     storage.Provider
	clock     Clock
	ids       idgen.Generator
	prefix    string
	logger    *slog.Logger
	listeners []Listener

	mu    sync.Mutex
	cat   models.Catalog
	dirty bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator overrides the identity generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithURLPrefix sets the path photo URLs are projected under.
func WithURLPrefix(prefix string) Option {
	return func(e *Engine) { e.prefix = prefix }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithListener registers a listener for committed mutations.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// New loads the catalog from store and returns a ready engine. A store that
// implements catalog.Locker is locked until Close, so a second engine on the
// same document fails here instead of overwriting the first one's commits.
func New(store catalog.Store, files storage.Provider, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:  store,
		files:  files,
		clock:  RealClock{},
		ids:    idgen.UUID{},
		prefix: DefaultURLPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if l, ok := store.(catalog.Locker); ok {
		if err := l.Acquire(); err != nil {
			return nil, fmt.Errorf("workflow: %w", err)
		}
	}

	cat, found, err := store.Load()
	if err != nil {
		e.release()
		return nil, fmt.Errorf("workflow: load catalog: %w", err)
	}
	e.cat = cat
	e.dirty = !found
	return e, nil
}

// Catalog returns a snapshot of the current catalog.
func (e *Engine) Catalog() models.Catalog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cat.Clone()
}

// Get returns the photo with id from any category, archived included.
func (e *Engine) Get(id string) (models.Photo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, _, _, ok := e.cat.Find(id, models.AllCategories...)
	if !ok {
		return models.Photo{}, fmt.Errorf("workflow: photo %s: %w", id, apperr.ErrNotFound)
	}
	return p.Clone(), nil
}

// Move transitions a board photo to target (todo, doing or done) and
// returns the updated catalog. The photo is appended to target even when
// it is already there; moved_at is refreshed either way.
func (e *Engine) Move(ctx context.Context, id string, target models.Category) (models.Catalog, error) {
	if !target.Movable() {
		return nil, fmt.Errorf("workflow: move to %q: %w", target, apperr.ErrInvalidCategory)
	}
	_, cat, err := e.transition(ctx, id, target, EventMoved)
	return cat, err
}

// Archive transitions a board photo to the archive. Archiving a photo that
// is already archived returns it unchanged.
func (e *Engine) Archive(ctx context.Context, id string) (models.Photo, error) {
	p, _, err := e.transition(ctx, id, models.Archived, EventArchived)
	return p, err
}

func (e *Engine) transition(ctx context.Context, id string, target models.Category, kind EventKind) (models.Photo, models.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return models.Photo{}, nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.cat.Clone()
	photo, source, i, ok := next.Find(id, models.BoardCategories...)
	if !ok {
		if target == models.Archived {
			if p, _, _, found := next.Find(id, models.Archived); found {
				return p, next, nil
			}
		}
		return models.Photo{}, nil, fmt.Errorf("workflow: photo %s: %w", id, apperr.ErrNotFound)
	}
	next.Remove(source, i)

	from := photo.Category
	if !from.Valid() {
		from = source
	}
	relocated, err := e.files.Relocate(photo.Filename, from, target)
	if err != nil {
		return models.Photo{}, nil, fmt.Errorf("workflow: relocate %s: %w", photo.Filename, err)
	}
	if !relocated {
		e.logger.Warn("consistency gap: file missing, updating metadata only",
			slog.String("id", photo.ID),
			slog.String("filename", photo.Filename),
			slog.String("from", string(from)),
			slog.String("to", string(target)))
	}

	now := e.clock.Now().UTC()
	photo.Category = target
	photo.URL = models.PhotoURL(e.prefix, target, photo.Filename)
	switch kind {
	case EventArchived:
		photo.ArchivedAt = &now
	default:
		photo.MovedAt = &now
	}
	next.Append(target, photo)

	if err := e.store.Save(next); err != nil {
		if relocated && from != target {
			if _, rbErr := e.files.Relocate(photo.Filename, target, from); rbErr != nil {
				e.logger.Error("rollback relocate failed",
					slog.String("filename", photo.Filename),
					slog.String("error", rbErr.Error()))
			}
		}
		return models.Photo{}, nil, fmt.Errorf("workflow: save catalog: %w", err)
	}
	e.commit(next)

	e.emit(Event{Kind: kind, Photo: photo.Clone(), From: from, Relocated: relocated, At: now})
	return photo.Clone(), next.Clone(), nil
}

// Close flushes a catalog that has never been persisted.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.release()
	if !e.dirty {
		return nil
	}
	if err := e.store.Save(e.cat); err != nil {
		return fmt.Errorf("workflow: flush catalog: %w", err)
	}
	e.dirty = false
	return nil
}

func (e *Engine) release() {
	l, ok := e.store.(catalog.Locker)
	if !ok {
		return
	}
	if err := l.Release(); err != nil {
		e.logger.Warn("catalog unlock failed", slog.String("error", err.Error()))
	}
}

// commit installs a saved catalog. Callers hold e.mu.
func (e *Engine) commit(next models.Catalog) {
	e.cat = next
	e.dirty = false
}

// emit notifies listeners. Callers hold e.mu so events arrive in commit order.
func (e *Engine) emit(ev Event) {
	for _, l := range e.listeners {
		l(ev)
	}
}
