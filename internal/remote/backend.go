// Package remote mirrors archives to object storage so a save dir can be
// restored on another machine.
package remote

import (
	"context"

	"github.com/0xRadioAc7iv/go-aletheia/internal"
)

// Backend stores archives under opaque keys.
type Backend interface {
	// Push uploads the file at path under key, replacing any existing object.
	Push(ctx context.Context, key, path string) error
	// Pull downloads key into dest. It reports false, and leaves dest
	// untouched, when the object does not exist.
	Pull(ctx context.Context, key, dest string) (bool, error)
}

// New returns the backend described by cfg, or nil when no remote is
// configured.
func New(ctx context.Context, cfg *internal.RemoteConfig) (Backend, error) {
	if cfg == nil {
		return nil, nil
	}

	b, err := newS3Backend(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	return b, nil
}
