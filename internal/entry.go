// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/photoboard/internal/catalog"
	"github.com/starford/photoboard/internal/index"
	"github.com/starford/photoboard/internal/mcpserver"
	"github.com/starford/photoboard/internal/sse"
	"github.com/starford/photoboard/internal/storage"
	"github.com/starford/photoboard/internal/watch"
	"github.com/starford/photoboard/internal/workflow"
)

var errConfigRequired = errors.New("config is required")

// ErrDrift is returned by RunAudit when the catalog and the files disagree.
var ErrDrift = errors.New("catalog and files disagree")

// runtime holds the components shared by every entry point.
type runtime struct {
	files   *storage.FS
	journal *index.DB
	engine  *workflow.Engine
}

// open provisions the uploads tree, opens the journal and loads the catalog.
func open(cfg *Config, logger *slog.Logger, extra ...workflow.Listener) (*runtime, error) {
	if err := os.MkdirAll(cfg.Storage.UploadsPath, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Storage.UploadsPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := files.Provision(); err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	journal, err := index.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithURLPrefix(cfg.Storage.URLPrefix),
		workflow.WithListener(journalListener(journal, logger)),
	}
	for _, l := range extra {
		opts = append(opts, workflow.WithListener(l))
	}
	engine, err := workflow.New(catalog.NewJSONStore(cfg.Storage.CatalogPath), files, opts...)
	if err != nil {
		journal.Close()
		if errors.Is(err, catalog.ErrLocked) {
			return nil, fmt.Errorf("init workflow: %w (another photoboard process owns the catalog; "+
				"while the server runs, use its MCP endpoint or /api/consistency)", err)
		}
		return nil, fmt.Errorf("init workflow: %w", err)
	}
	return &runtime{files: files, journal: journal, engine: engine}, nil
}

// close flushes the catalog and releases the journal.
func (rt *runtime) close(logger *slog.Logger) {
	if err := rt.engine.Close(); err != nil {
		logger.Error("catalog flush failed", slog.String("error", err.Error()))
	}
	if err := rt.journal.Close(); err != nil {
		logger.Error("index close failed", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := NewLogger(cfg.App, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("uploads_path", cfg.Storage.UploadsPath),
		slog.String("catalog_path", cfg.Storage.CatalogPath),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	rt, err := open(cfg, logger, brokerListener(broker))
	if err != nil {
		return err
	}
	defer rt.close(logger)

	if report, err := rt.engine.Audit(); err != nil {
		logger.Warn("initial audit failed", slog.String("error", err.Error()))
	} else if !report.OK() {
		logger.Warn("catalog drift at startup",
			slog.Int("missing", len(report.Missing)),
			slog.Int("untracked", len(report.Untracked)))
	}

	if cfg.MCP.HTTPEnabled {
		logger.Info("MCP endpoint mounted", slog.String("path", cfg.MCP.Path))
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHandler(cfg, rt, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			err := watch.Watch(gCtx, rt.engine, rt.files.Root(), cfg.Watch.Debounce, logger, func(report workflow.Report) {
				broker.PublishDrift(report)
			})
			if err != nil {
				logger.Warn("watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tool surface on stdin/stdout. Logs go to stderr.
// It owns the catalog like Run does, so it refuses to start while a server
// is up; clients should use the server's MCP endpoint then.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := NewLogger(cfg.App, os.Stderr)
	slog.SetDefault(logger)

	rt, err := open(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close(logger)

	srv := mcpserver.New(rt.engine, rt.journal, cfg.Upload.Policy())
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// RunAudit writes a consistency report as JSON to out and returns ErrDrift
// when the report is not clean. With verify set, file contents are re-hashed.
func RunAudit(_ context.Context, out io.Writer, verify bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := NewLogger(cfg.App, os.Stderr)

	rt, err := open(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close(logger)

	audit := rt.engine.Audit
	if verify {
		audit = rt.engine.Verify
	}
	report, err := audit()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if !report.OK() {
		return ErrDrift
	}
	return nil
}
