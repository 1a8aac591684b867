// Package testutil provides helpers shared by lyricgraph tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Common test timeouts.
const (
	DefaultTestTimeout = 5 * time.Second
	ShortTestTimeout   = 1 * time.Second
)

// WaitForChannel waits for a signal on ch or fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// WaitForError waits for a value on ch or fails after timeout.
func WaitForError(t *testing.T, ch <-chan error, timeout time.Duration, msg string) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		require.Fail(t, msg)
		return nil
	}
}
