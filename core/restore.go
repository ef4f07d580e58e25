package core

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xRadioAc7iv/go-aletheia/internal/archive"
	"github.com/0xRadioAc7iv/go-aletheia/internal/gamedb"
	"github.com/0xRadioAc7iv/go-aletheia/internal/lock"
	"github.com/0xRadioAc7iv/go-aletheia/internal/pathmap"
)

// RestoreGame writes every file in the game's container back to where it
// belongs on this machine and returns how many files were restored.
//
// When there is no local container and a remote is configured, the container
// is pulled first.
func (e *Engine) RestoreGame(ctx context.Context, game gamedb.Game) (int, error) {
	log := e.log().WithField("game", game.Name)

	n, err := e.restoreGame(ctx, game, log)
	e.recordRestore(err)
	e.export()

	return n, err
}

func (e *Engine) restoreGame(ctx context.Context, game gamedb.Game, log *logrus.Entry) (int, error) {
	lf, err := e.lockGame(game.Name)
	if err != nil {
		return 0, err
	}
	defer lock.Release(lf)

	archivePath := e.ArchivePath(game.Name)

	if _, err := os.Stat(archivePath); os.IsNotExist(err) {
		found := false
		if e.Remote != nil {
			found, err = e.Remote.Pull(ctx, e.RemoteKey(game.Name), archivePath)
			if err != nil {
				return 0, errors.Wrap(err, "pull archive")
			}
			if found {
				log.Info("pulled archive from remote")
			}
		}
		if !found {
			return 0, errors.Wrap(ErrNoBackupsFound, game.Name)
		}
	}

	return e.extractAll(archivePath, game, log)
}

// RestoreArchive restores a standalone container. The game is picked from
// games by the name recorded in the container.
func (e *Engine) RestoreArchive(path string, games []gamedb.Game) (gamedb.Game, int, error) {
	r, err := archive.Open(path)
	if err != nil {
		e.recordRestore(err)
		return gamedb.Game{}, 0, err
	}
	subject := r.Subject()
	r.Close()

	var game gamedb.Game
	found := false
	for _, g := range games {
		if g.Name == subject {
			game, found = g, true
			break
		}
	}
	if !found {
		err := errors.Wrap(ErrGameNotInstalled, subject)
		e.recordRestore(err)
		return gamedb.Game{}, 0, err
	}

	log := e.log().WithFields(logrus.Fields{"game": game.Name, "archive": path})

	n, err := func() (int, error) {
		lf, err := e.lockGame(game.Name)
		if err != nil {
			return 0, err
		}
		defer lock.Release(lf)

		return e.extractAll(path, game, log)
	}()
	e.recordRestore(err)
	e.export()

	return game, n, err
}

func (e *Engine) extractAll(archivePath string, game gamedb.Game, log *logrus.Entry) (int, error) {
	r, err := archive.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	ctx := e.pathContext(game)
	restored := 0

	for _, entry := range r.Entries() {
		dest, err := pathmap.Expand(entry.LogicalPath, ctx)
		if err != nil {
			return restored, errors.Wrapf(err, "map %s", entry.LogicalPath)
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return restored, errors.Wrap(err, "create parent dir")
		}
		if err := r.Extract(entry.LogicalPath, dest); err != nil {
			return restored, err
		}

		restored++
		log.Infof("restored: %s", dest)
	}

	return restored, nil
}

func (e *Engine) recordRestore(err error) {
	if e.Metrics == nil {
		return
	}
	if err != nil {
		e.Metrics.RestoreRun(OutcomeFailed)
		return
	}
	e.Metrics.RestoreRun(ResultRestored)
}
