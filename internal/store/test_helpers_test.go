package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCycle creates a successful cycle record.
func createTestCycle(id, instance string, seq int64) Cycle {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Minute)
	return Cycle{
		ID:         id,
		Instance:   instance,
		Seq:        seq,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Rows:       seq * 10,
		Status:     StatusOK,
	}
}
