// Package testutil provides shared test helpers for setting up storage
// backends and trackers.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/waypoint/internal/clock"
	"github.com/starford/waypoint/internal/storage"
	"github.com/starford/waypoint/internal/tracker"
)

// DefaultLimits mirrors the production default size limits.
var DefaultLimits = storage.Limits{MaxKeySize: 64, MaxValueSize: 64 << 10}

// Backend opens a backend of the given driver in a temporary location that
// is removed when the test ends.
func Backend(t *testing.T, driver string) storage.Backend {
	t.Helper()
	var path string
	switch driver {
	case storage.DriverSQLite:
		path = filepath.Join(t.TempDir(), "waypoint-test.db")
	case storage.DriverFS:
		path = t.TempDir()
	}
	b, err := storage.Open(driver, path)
	if err != nil {
		t.Fatalf("open %s backend: %v", driver, err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// Tracker creates a tracker over a temporary SQLite database with a manual
// clock. Extra options are applied after the defaults.
func Tracker(t *testing.T, opts ...tracker.Option) *tracker.Tracker {
	t.Helper()
	base := []tracker.Option{tracker.WithClock(clock.NewManual(1_000, 1))}
	tr, err := tracker.New(Backend(t, storage.DriverSQLite), DefaultLimits, append(base, opts...)...)
	if err != nil {
		t.Fatalf("tracker.New: %v", err)
	}
	return tr
}
