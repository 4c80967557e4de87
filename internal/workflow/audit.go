package workflow

import (
	"fmt"
	"sort"
	"time"

	"github.com/starford/photoboard/internal/checksum"
	"github.com/starford/photoboard/internal/models"
)

// Entry locates one photo or file in an audit report.
type Entry struct {
	ID       string          `json:"id,omitempty"`
	Filename string          `json:"filename"`
	Category models.Category `json:"category"`
}

// Report is the outcome of comparing the catalog with the category directories.
type Report struct {
	// Missing photos have no file in the directory their category names.
	Missing []Entry `json:"missing"`
	// Untracked files sit in a category directory without a photo filed there.
	Untracked []Entry `json:"untracked"`
	// Mismatched photos are filed under a category other than their own.
	Mismatched []Entry `json:"mismatched"`
	// Corrupted photos have a file whose digest differs from the recorded
	// checksum. Only filled by Verify.
	Corrupted []Entry `json:"corrupted,omitempty"`
	// Duplicates are ids listed more than once.
	Duplicates []string `json:"duplicates"`
	// SharedChecksums groups ids whose payloads are byte-identical.
	SharedChecksums map[string][]string `json:"shared_checksums,omitempty"`
	Photos          int                 `json:"photos"`
	CheckedAt       time.Time           `json:"checked_at"`
}

// OK reports whether the catalog and the file store agree.
func (r Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Untracked) == 0 && len(r.Mismatched) == 0 &&
		len(r.Corrupted) == 0 && len(r.Duplicates) == 0
}

// Audit checks every category for photos without files, files without
// photos, misfiled records and duplicate ids. It holds the engine lock so
// the snapshot never observes a half-applied transition.
func (e *Engine) Audit() (Report, error) {
	return e.audit(false)
}

// Verify runs Audit and also re-hashes every present file that has a
// recorded checksum.
func (e *Engine) Verify() (Report, error) {
	return e.audit(true)
}

func (e *Engine) audit(verify bool) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := Report{
		Missing:    []Entry{},
		Untracked:  []Entry{},
		Mismatched: []Entry{},
		Duplicates: []string{},
		Photos:     e.cat.Len(),
		CheckedAt:  e.clock.Now().UTC(),
	}

	seen := make(map[string]int)
	sums := make(map[string][]string)
	for _, cat := range models.AllCategories {
		tracked := make(map[string]struct{})
		for _, p := range e.cat[cat] {
			seen[p.ID]++
			if p.Checksum != "" {
				sums[p.Checksum] = append(sums[p.Checksum], p.ID)
			}
			if p.Category != cat {
				r.Mismatched = append(r.Mismatched, Entry{ID: p.ID, Filename: p.Filename, Category: cat})
			}
			tracked[p.Filename] = struct{}{}
			if !e.files.Exists(cat, p.Filename) {
				r.Missing = append(r.Missing, Entry{ID: p.ID, Filename: p.Filename, Category: cat})
				continue
			}
			if verify && p.Checksum != "" {
				ok, err := e.matches(cat, p)
				if err != nil {
					return Report{}, fmt.Errorf("workflow: verify %s: %w", p.Filename, err)
				}
				if !ok {
					r.Corrupted = append(r.Corrupted, Entry{ID: p.ID, Filename: p.Filename, Category: cat})
				}
			}
		}

		names, err := e.files.List(cat)
		if err != nil {
			return Report{}, fmt.Errorf("workflow: audit %s: %w", cat, err)
		}
		for _, name := range names {
			if _, ok := tracked[name]; !ok {
				r.Untracked = append(r.Untracked, Entry{Filename: name, Category: cat})
			}
		}
	}

	for id, n := range seen {
		if n > 1 {
			r.Duplicates = append(r.Duplicates, id)
		}
	}
	sort.Strings(r.Duplicates)

	for sum, ids := range sums {
		if len(ids) > 1 {
			if r.SharedChecksums == nil {
				r.SharedChecksums = make(map[string][]string)
			}
			r.SharedChecksums[sum] = ids
		}
	}
	return r, nil
}

func (e *Engine) matches(cat models.Category, p models.Photo) (bool, error) {
	rc, err := e.files.Open(cat, p.Filename)
	if err != nil {
		return false, err
	}
	defer rc.Close()
	sum, err := checksum.Reader(rc)
	if err != nil {
		return false, err
	}
	return sum == p.Checksum, nil
}
