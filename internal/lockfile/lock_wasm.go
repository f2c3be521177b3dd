//go:build js && wasm

package lockfile

import "os"

// WASM doesn't support file locking. In a WASM environment we're typically
// single-process anyway, so every operation is a no-op.

// TryLockExclusive attempts to acquire an exclusive non-blocking lock.
// In WASM, this is a no-op since we're single-process.
func TryLockExclusive(f *os.File) error {
	return nil
}

// LockExclusive acquires an exclusive blocking lock on the file.
// In WASM, this is a no-op since we're single-process.
func LockExclusive(f *os.File) error {
	return nil
}

// Unlock releases a lock on the file.
// In WASM, this is a no-op.
func Unlock(f *os.File) error {
	return nil
}
