package core

import "github.com/pkg/errors"

var (
	// ErrNoBackupsFound is returned when a game has no container locally or on
	// the remote.
	ErrNoBackupsFound = errors.New("no backups found")

	// ErrGameNotInstalled is returned when a standalone container belongs to a
	// game that is not in the games file.
	ErrGameNotInstalled = errors.New("game is not installed")
)
