package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/photoboard/internal/workflow"
)

// RouterConfig collects what the API router needs.
type RouterConfig struct {
	Engine  Workflow
	Journal History
	Policy  workflow.Policy
	// AuthEnabled controls whether Bearer token auth is enforced.
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// Limiter throttles uploads per client. Nil disables it.
	Limiter *UploadLimiter
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	h := NewHandler(cfg.Engine, cfg.Journal, cfg.Policy)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	r.Get("/photos", h.ListPhotos)
	r.Get("/photos/{id}", h.GetPhoto)
	r.Get("/photos/{id}/history", h.PhotoHistory)
	r.With(cfg.Limiter.Middleware).Post("/upload", h.Upload)
	r.Post("/move", h.MovePhoto)
	r.Delete("/delete/{id}", h.ArchivePhoto)

	r.Get("/consistency", h.Consistency)
	r.Get("/gaps", h.Gaps)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
