package workflow

import (
	"context"
	"testing"

	"github.com/starford/photoboard/internal/models"
)

func TestAuditCleanCatalog(t *testing.T) {
	env := newTestEnv(t)
	photos := env.ingest(t, "a.jpg", "b.jpg")
	_, _ = env.eng.Move(context.Background(), photos[0].ID, models.Doing)
	_, _ = env.eng.Archive(context.Background(), photos[1].ID)

	r, err := env.eng.Audit()
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if !r.OK() {
		t.Errorf("report = %+v", r)
	}
	if r.Photos != 2 {
		t.Errorf("photos = %d", r.Photos)
	}
}

func TestAuditFindsMissingAndUntracked(t *testing.T) {
	env := newTestEnv(t)
	photos := env.ingest(t, "a.jpg")
	_ = env.files.Remove(models.Todo, photos[0].Filename)
	_ = env.files.Put(models.Done, "stray.png", []byte("x"))

	r, err := env.eng.Audit()
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if r.OK() {
		t.Fatal("report should not be OK")
	}
	if len(r.Missing) != 1 || r.Missing[0].ID != photos[0].ID || r.Missing[0].Category != models.Todo {
		t.Errorf("missing = %+v", r.Missing)
	}
	if len(r.Untracked) != 1 || r.Untracked[0].Filename != "stray.png" || r.Untracked[0].Category != models.Done {
		t.Errorf("untracked = %+v", r.Untracked)
	}
}

func TestAuditReportsGapAfterMetadataOnlyMove(t *testing.T) {
	env := newTestEnv(t)
	photos := env.ingest(t, "a.jpg")
	_ = env.files.Remove(models.Todo, photos[0].Filename)
	if _, err := env.eng.Move(context.Background(), photos[0].ID, models.Done); err != nil {
		t.Fatalf("Move: %v", err)
	}
	r, _ := env.eng.Audit()
	if len(r.Missing) != 1 || r.Missing[0].Category != models.Done {
		t.Errorf("missing = %+v", r.Missing)
	}
}

func TestAuditSharedChecksums(t *testing.T) {
	env := newTestEnv(t)
	photos, err := env.eng.Ingest(context.Background(), []Upload{
		{Name: "a.jpg", Data: []byte("same")},
		{Name: "b.jpg", Data: []byte("same")},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	r, _ := env.eng.Audit()
	if !r.OK() {
		t.Error("shared payloads are informational only")
	}
	if len(r.SharedChecksums) != 1 {
		t.Fatalf("shared = %v", r.SharedChecksums)
	}
	for _, ids := range r.SharedChecksums {
		if len(ids) != 2 || ids[0] != photos[0].ID {
			t.Errorf("ids = %v", ids)
		}
	}
}

func TestVerifyFindsCorruptedFile(t *testing.T) {
	env := newTestEnv(t)
	photos := env.ingest(t, "a.jpg", "b.jpg")
	if _, err := env.eng.Move(context.Background(), photos[1].ID, models.Done); err != nil {
		t.Fatal(err)
	}

	r, err := env.eng.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !r.OK() {
		t.Fatalf("untouched files reported: %+v", r)
	}

	if err := env.files.Put(models.Done, photos[1].Filename, []byte("tampered")); err != nil {
		t.Fatal(err)
	}
	if r, _ := env.eng.Audit(); !r.OK() {
		t.Errorf("Audit should not hash files: %+v", r)
	}
	r, err = env.eng.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if r.OK() || len(r.Corrupted) != 1 || r.Corrupted[0].ID != photos[1].ID || r.Corrupted[0].Category != models.Done {
		t.Errorf("corrupted = %+v", r.Corrupted)
	}
}
