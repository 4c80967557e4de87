package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/photoboard/internal/models"
	"github.com/starford/photoboard/internal/testutil"
	"github.com/starford/photoboard/internal/workflow"
)

// watcherTestEnv sets up an uploads tree and an engine over it.
func watcherTestEnv(t *testing.T) (string, *workflow.Engine) {
	t.Helper()
	root, fs := testutil.TestUploads(t)
	engine, err := workflow.New(testutil.TestCatalog(t), fs,
		workflow.WithIDGenerator(testutil.NewStubIDGenerator()),
		workflow.WithLogger(testutil.DiscardLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	return root, engine
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu      sync.Mutex
	reports []workflow.Report
}

func (r *recorder) record(rep workflow.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *recorder) snapshot() []workflow.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]workflow.Report(nil), r.reports...)
}

func startWatch(t *testing.T, auditor Auditor, root string) *recorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	rec := &recorder{}
	go func() {
		done <- Watch(ctx, auditor, root, 20*time.Millisecond, testutil.DiscardLogger(), rec.record)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Watch returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)
	return rec
}

func TestWatcher_UntrackedFileReportsDrift(t *testing.T) {
	root, engine := watcherTestEnv(t)
	rec := startWatch(t, engine, root)

	if err := os.WriteFile(filepath.Join(root, "todo", "stray.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		for _, r := range rec.snapshot() {
			if len(r.Untracked) == 1 && r.Untracked[0].Filename == "stray.jpg" && r.Untracked[0].Category == models.Todo {
				return true
			}
		}
		return false
	}, "drift for stray.jpg was not reported")
}

func TestWatcher_RemovedFileReportsMissing(t *testing.T) {
	root, engine := watcherTestEnv(t)
	photos, err := engine.Ingest(context.Background(), []workflow.Upload{{Name: "a.png", Data: []byte("a")}})
	if err != nil {
		t.Fatal(err)
	}
	rec := startWatch(t, engine, root)

	if err := os.Remove(filepath.Join(root, "todo", photos[0].Filename)); err != nil {
		t.Fatal(err)
	}

	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		for _, r := range rec.snapshot() {
			if len(r.Missing) == 1 && r.Missing[0].ID == photos[0].ID {
				return true
			}
		}
		return false
	}, "missing file was not reported")
}

func TestWatcher_EngineTransitionsAreQuiet(t *testing.T) {
	root, engine := watcherTestEnv(t)
	rec := startWatch(t, engine, root)

	ctx := context.Background()
	photos, err := engine.Ingest(ctx, []workflow.Upload{{Name: "a.png", Data: []byte("a")}, {Name: "b.gif", Data: []byte("b")}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Move(ctx, photos[0].ID, models.Doing); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Archive(ctx, photos[1].ID); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("engine transitions reported drift: %+v", got)
	}
}

func TestWatcher_IgnoresDotfiles(t *testing.T) {
	root, engine := watcherTestEnv(t)
	rec := startWatch(t, engine, root)

	if err := os.WriteFile(filepath.Join(root, "done", ".DS_Store"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("dotfile triggered drift: %+v", got)
	}
}

type failingAuditor struct{}

func (failingAuditor) Audit() (workflow.Report, error) {
	return workflow.Report{}, testutil.ErrInjected
}

func TestWatcher_AuditErrorIsNotDrift(t *testing.T) {
	root, _ := testutil.TestUploads(t)
	rec := startWatch(t, failingAuditor{}, root)

	if err := os.WriteFile(filepath.Join(root, "todo", "x.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("audit error reported as drift: %+v", got)
	}
}

func TestWatch_MissingRoot(t *testing.T) {
	err := Watch(context.Background(), failingAuditor{}, filepath.Join(t.TempDir(), "nope"), 0, testutil.DiscardLogger(), nil)
	if err == nil {
		t.Error("expected error for missing root")
	}
}
