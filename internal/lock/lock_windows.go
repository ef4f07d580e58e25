//go:build windows

package lock

import (
	"os"

	"github.com/pkg/errors"
)

// Acquire takes an exclusive lock on path by atomically creating the file. If
// it already exists, another process holds the lock.
//
// The returned file handle must be kept open for the duration of the lock.
func Acquire(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Wrap(ErrLocked, path)
		}
		return nil, errors.Wrap(err, "unable to create lock file")
	}

	return f, nil
}

// Release removes the lock file. It should be called exactly once for each
// successful Acquire.
func Release(f *os.File) {
	name := f.Name()
	f.Close()
	os.Remove(name)
}
