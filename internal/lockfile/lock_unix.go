//go:build unix

package lockfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// TryLockExclusive acquires an exclusive non-blocking lock on the file.
// Returns ErrLockBusy if another process holds any lock on it.
func TryLockExclusive(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		return ErrLockBusy
	}
	return err
}

// LockExclusive acquires an exclusive blocking lock on the file.
// This will wait until the lock is available.
func LockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

// Unlock releases a lock held on the file.
func Unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
