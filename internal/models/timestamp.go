package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts are tried in order. Values without a zone offset are
// read as UTC, which is how older catalogs wrote them.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO 8601 timestamp with or without a zone offset.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func parseOptional(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UnmarshalJSON accepts timestamps with or without a zone offset. Output
// always uses RFC 3339.
func (p *Photo) UnmarshalJSON(data []byte) error {
	type plain Photo
	var aux struct {
		plain
		UploadedAt *string `json:"uploaded_at"`
		MovedAt    *string `json:"moved_at"`
		ArchivedAt *string `json:"archived_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	out := Photo(aux.plain)
	uploaded, err := parseOptional(aux.UploadedAt)
	if err != nil {
		return fmt.Errorf("photo %q uploaded_at: %w", out.ID, err)
	}
	if uploaded != nil {
		out.UploadedAt = *uploaded
	}
	if out.MovedAt, err = parseOptional(aux.MovedAt); err != nil {
		return fmt.Errorf("photo %q moved_at: %w", out.ID, err)
	}
	if out.ArchivedAt, err = parseOptional(aux.ArchivedAt); err != nil {
		return fmt.Errorf("photo %q archived_at: %w", out.ID, err)
	}

	*p = out
	return nil
}
