package index

import (
	"fmt"
	"time"

	"github.com/starford/photoboard/internal/models"
)

// Transition is one row of the journal.
type Transition struct {
	Seq       int64           `json:"seq"`
	PhotoID   string          `json:"photo_id"`
	Filename  string          `json:"filename"`
	From      models.Category `json:"from,omitempty"`
	To        models.Category `json:"to"`
	Relocated bool            `json:"relocated"`
	At        time.Time       `json:"at"`
}

// RecordTransition appends a row to the journal.
func (db *DB) RecordTransition(t Transition) error {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO transitions (photo_id, filename, from_category, to_category, relocated, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.PhotoID, t.Filename, string(t.From), string(t.To), t.Relocated, t.At.UTC())
	if err != nil {
		return fmt.Errorf("index: record transition: %w", err)
	}
	return nil
}

// History returns every transition of a photo, oldest first.
func (db *DB) History(photoID string) ([]Transition, error) {
	return db.query(`
		SELECT seq, photo_id, filename, from_category, to_category, relocated, at
		FROM transitions
		WHERE photo_id = ?
		ORDER BY seq
	`, photoID)
}

// Gaps returns the most recent transitions that moved metadata without a file.
func (db *DB) Gaps(limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 50
	}
	return db.query(`
		SELECT seq, photo_id, filename, from_category, to_category, relocated, at
		FROM transitions
		WHERE relocated = 0
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
}

func (db *DB) query(q string, args ...any) ([]Transition, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query transitions: %w", err)
	}
	defer rows.Close()

	out := []Transition{}
	for rows.Next() {
		var t Transition
		var from, to string
		if err := rows.Scan(&t.Seq, &t.PhotoID, &t.Filename, &from, &to, &t.Relocated, &t.At); err != nil {
			return nil, err
		}
		t.From = models.Category(from)
		t.To = models.Category(to)
		out = append(out, t)
	}
	return out, rows.Err()
}
