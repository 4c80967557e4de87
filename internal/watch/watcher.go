// Package watch observes the category directories and re-audits the catalog
// whenever their contents change outside the workflow engine.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/photoboard/internal/models"
	"github.com/starford/photoboard/internal/workflow"
)

// DefaultDebounce coalesces bursts of file events into one audit.
const DefaultDebounce = 200 * time.Millisecond

// Auditor compares the catalog with the file store.
type Auditor interface {
	Audit() (workflow.Report, error)
}

// DriftCallback is called with every audit report that is not OK.
type DriftCallback func(workflow.Report)

// Watch starts an fsnotify watcher on the uploads root and its category
// directories and runs a debounced audit after each change until ctx is
// cancelled. Category directories created at runtime are added to the
// watch list.
func Watch(ctx context.Context, auditor Auditor, root string, debounce time.Duration, logger *slog.Logger, cb DriftCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	for _, c := range models.AllCategories {
		dir := filepath.Join(root, string(c))
		if err := w.Add(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	logger.Info("watcher: started", slog.String("root", root))

	var auditTimer *time.Timer
	var auditCh <-chan time.Time
	drifting := false

	scheduleAudit := func() {
		if auditTimer == nil {
			auditTimer = time.NewTimer(debounce)
			auditCh = auditTimer.C
		} else {
			auditTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if auditTimer != nil {
				auditTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-auditCh:
			report, err := auditor.Audit()
			if err != nil {
				logger.Warn("watcher: audit failed", slog.String("error", err.Error()))
				continue
			}
			if report.OK() {
				if drifting {
					logger.Info("watcher: catalog and files agree again")
				}
				drifting = false
				continue
			}
			drifting = true
			logger.Warn("watcher: catalog drift",
				slog.Int("missing", len(report.Missing)),
				slog.Int("untracked", len(report.Untracked)),
				slog.Int("mismatched", len(report.Mismatched)),
				slog.Int("duplicates", len(report.Duplicates)))
			if cb != nil {
				cb(report)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}

			// A category directory (re)appeared under the root.
			if ev.Op&fsnotify.Create != 0 && filepath.Dir(ev.Name) == filepath.Clean(root) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.Add(ev.Name); addErr != nil {
						logger.Warn("watcher: add dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching dir", slog.String("path", ev.Name))
					}
				}
			}

			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			scheduleAudit()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
