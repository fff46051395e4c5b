package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/discrete/internal/ir"
)

// createTestStore creates a new temp-dir store for testing.
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

// createTestRun inserts a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run, err := s.CreateRun(context.Background(), Run{
		ID:        id,
		ModelName: "coins",
		ModelHash: "test-hash",
		GraphType: "flat",
		Order:     "lifo",
		Seed:      1,
	})
	if err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	return run
}

// createTestPath builds a scalar-weight path over a single bernoulli site.
func createTestPath(runID, id string, seq int64, value int64, weight float64) Path {
	return Path{
		RunID:      runID,
		ID:         id,
		Seq:        seq,
		Weight:     &weight,
		Assignment: ir.IRObject{"a": ir.IRInt(value)},
		Sites: []Site{
			{Seq: 0, Name: "a", Type: "sample", DistKind: ir.KindBernoulli, Value: ir.IRInt(value)},
		},
	}
}
