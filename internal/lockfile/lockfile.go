// Package lockfile provides advisory file locks for the session event logs.
// Appends from concurrent hook invocations serialize on these locks so log
// lines never interleave.
package lockfile

import (
	"errors"
	"os"
	"time"
)

// ErrLockBusy means another process currently holds a lock on the file.
var ErrLockBusy = errors.New("file lock held by another process")

const pollInterval = 10 * time.Millisecond

// LockExclusiveTimeout polls for an exclusive lock until the timeout elapses.
// Returns ErrLockBusy if the lock never frees within the window, so callers
// can fail open instead of hanging a hook.
func LockExclusiveTimeout(f *os.File, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := TryLockExclusive(f)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLockBusy) {
			return err
		}
		if time.Now().After(deadline) {
			return ErrLockBusy
		}
		time.Sleep(pollInterval)
	}
}
