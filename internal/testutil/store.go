package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nhle/remindme/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Clock is a manually advanced time source.
type Clock struct {
	Now time.Time
}

// NewClock returns a clock fixed at a deterministic instant.
func NewClock() *Clock {
	return &Clock{Now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

// Func returns the clock as a time source.
func (c *Clock) Func() func() time.Time {
	return func() time.Time { return c.Now }
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.Now = c.Now.Add(d)
}

// NewTestTaskStore opens a TaskStore over a fresh in-memory SQLite
// database, using clock for time and sequential IDs.
func NewTestTaskStore(t *testing.T, clock *Clock) (*store.TaskStore, *store.SQLiteStore) {
	t.Helper()

	kv := NewTestStore(t)
	ts, err := store.OpenTaskStore(context.Background(), kv, store.Options{
		Now:   clock.Func(),
		NewID: SequentialIDs("task"),
	})
	if err != nil {
		t.Fatalf("opening task store: %v", err)
	}
	return ts, kv
}

// SequentialIDs returns an ID generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
