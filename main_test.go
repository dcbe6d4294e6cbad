package pathwatch

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that no test in this package leaks a goroutine, e.g. a
// Watcher whose raw.Handle was left open or a readSoon poll loop that never
// returned. Every test that opens a Watcher does so through newTestWatcher,
// which registers Close via t.Cleanup.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
