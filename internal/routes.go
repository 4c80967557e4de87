package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/photoboard/internal/api"
	"github.com/starford/photoboard/internal/mcpserver"
	"github.com/starford/photoboard/internal/sse"
)

// schemaVersioner reports the journal's applied migration.
type schemaVersioner interface {
	Version() (uint, error)
}

// newHandler assembles the HTTP surface: health checks, the REST API, the
// MCP endpoint and the photo files.
func newHandler(cfg *Config, rt *runtime, broker *sse.Broker) http.Handler {
	apiRouter := api.NewRouter(api.RouterConfig{
		Engine:      rt.engine,
		Journal:     rt.journal,
		Policy:      cfg.Upload.Policy(),
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Events:      broker,
		Limiter:     api.NewUploadLimiter(cfg.Upload.RatePerSecond, cfg.Upload.Burst),
	})
	files := api.NewFileHandler(rt.files)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/health/ready", readyHandler(rt.journal))

	r.Mount("/api", apiRouter)

	if cfg.MCP.HTTPEnabled {
		mcp := mcpserver.New(rt.engine, rt.journal, cfg.Upload.Policy()).Handler()
		r.Handle(cfg.MCP.Path, api.AuthMiddleware(cfg.Auth.AuthEnabled(), cfg.Auth.Token)(mcp))
	}

	// Photo files are served openly so <img> tags need no token.
	r.Get(strings.TrimSuffix(path.Join("/", cfg.Storage.URLPrefix), "/")+"/{category}/{filename}", files.ServeFile)

	return r
}

// readyHandler reports ready once the journal answers a schema query.
func readyHandler(journal schemaVersioner) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		v, err := journal.Version()
		if err != nil {
			slog.Warn("readiness check failed", slog.String("error", err.Error()))
			writeHealth(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": "index unavailable"})
			return
		}
		writeHealth(w, http.StatusOK, map[string]any{"status": "ok", "schema_version": v})
	}
}

func writeHealth(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
