package testutil

import (
	"testing"

	"dirsnap/internal/database"
	"dirsnap/internal/snap"
)

// NewTestStore creates an in-memory SQLite store with the schema applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) *database.Store {
	t.Helper()

	store, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// FailingStore wraps a snap.Store and fails InsertEntries after a set
// number of successful batches, to exercise the fatal-flush path.
type FailingStore struct {
	snap.Store
	FailAfter int // number of batches that succeed before failures start
	batches   int
}

func (s *FailingStore) InsertEntries(entries []*snap.Entry) error {
	if s.batches >= s.FailAfter {
		return errFlush
	}
	s.batches++
	return s.Store.InsertEntries(entries)
}

var errFlush = &flushError{}

type flushError struct{}

func (*flushError) Error() string { return "simulated flush failure" }
