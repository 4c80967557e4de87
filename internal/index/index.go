package index

// Journal defines the transition journal operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Journal interface {
	RecordTransition(t Transition) error
	History(photoID string) ([]Transition, error)
	Gaps(limit int) ([]Transition, error)
	Close() error
}

// Verify *DB satisfies Journal at compile time.
var _ Journal = (*DB)(nil)
