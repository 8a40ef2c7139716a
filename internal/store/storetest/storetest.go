// Package storetest opens throwaway databases for tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ArCaneSec/apidock/internal/store"

	"gorm.io/gorm"
)

// Open returns a migrated in-memory sqlite database that is closed when the
// test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	return OpenWithClock(t, nil)
}

func OpenWithClock(t testing.TB, clock func() time.Time) *gorm.DB {
	t.Helper()

	db, err := store.Open(context.Background(), store.Config{
		Driver: store.DriverSQLite,
		DSN:    "file::memory:?_pragma=foreign_keys(1)",
		Clock:  clock,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { store.Close(db) })

	if err := store.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// StepClock returns a clock that advances by one second on every call, so
// rows get distinct, ordered timestamps.
func StepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
