// Package lock keeps two processes from backing up or restoring the same game
// at once.
package lock

import "github.com/pkg/errors"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("already in use by another aletheia process")
