//go:build unix

package lock

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// Acquire takes an exclusive, non-blocking advisory lock on the file at path,
// creating it if needed.
//
// On Unix systems this uses flock(2). The lock file is left on disk after
// Release; only the advisory lock matters.
//
// The returned file handle must remain open for the duration of the lock.
func Acquire(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open lock file")
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(ErrLocked, path)
	}

	return f, nil
}

// Release releases a lock acquired via Acquire.
func Release(f *os.File) {
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	f.Close()
}
