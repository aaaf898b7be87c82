// Package testutil provides shared test utilities and fixtures.
package testutil

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/banshee-data/sweep-logger/internal/monitoring"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// LogBuffer collects monitoring output. It is safe for concurrent writers.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// CaptureLogs redirects monitoring output at the given level to a buffer
// until the test ends.
func CaptureLogs(t *testing.T, level string) *LogBuffer {
	t.Helper()
	buf := &LogBuffer{}
	monitoring.SetOutput(buf)
	AssertNoError(t, monitoring.SetLevel(level))
	t.Cleanup(func() {
		monitoring.SetOutput(os.Stderr)
		_ = monitoring.SetLevel("INFO")
	})
	return buf
}
