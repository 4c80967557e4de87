package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T12:00:00Z", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"2024-05-01T14:00:00+02:00", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"2024-05-01T12:00:00.123456", time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)},
		{"2024-05-01T12:00:00", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"2024-05-01 12:00:00.5", time.Date(2024, 5, 1, 12, 0, 0, 500000000, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for non-timestamp")
	}
}

func TestPhotoUnmarshalZonelessTimestamps(t *testing.T) {
	raw := `{"id":"a","filename":"f.jpg","url":"/static/uploads/done/f.jpg","category":"done",
		"uploaded_at":"2024-05-01T12:00:00.123456","moved_at":"2024-05-02T08:30:00","archived_at":null}`

	var p Photo
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.ID != "a" || p.Category != Done || p.Filename != "f.jpg" {
		t.Errorf("fields = %+v", p)
	}
	if !p.UploadedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)) {
		t.Errorf("uploaded_at = %v", p.UploadedAt)
	}
	if p.MovedAt == nil || !p.MovedAt.Equal(time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("moved_at = %v", p.MovedAt)
	}
	if p.ArchivedAt != nil {
		t.Errorf("archived_at = %v, want nil", p.ArchivedAt)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), `"uploaded_at":"2024-05-01T12:00:00.123456Z"`) {
		t.Errorf("re-encoded = %s", out)
	}
}

func TestPhotoUnmarshalRejectsGarbageTimestamp(t *testing.T) {
	var p Photo
	err := json.Unmarshal([]byte(`{"id":"a","uploaded_at":"soon"}`), &p)
	if err == nil || !strings.Contains(err.Error(), `photo "a" uploaded_at`) {
		t.Errorf("err = %v", err)
	}
}
