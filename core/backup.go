package core

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/0xRadioAc7iv/go-aletheia/internal/gamedb"
	"github.com/0xRadioAc7iv/go-aletheia/internal/lock"
	"github.com/0xRadioAc7iv/go-aletheia/internal/snapshot"
)

// Report is the result of backing up one game as part of BackupAll.
type Report struct {
	Game   string
	Result *snapshot.Result // Nil when Err is set or the game was not started
	Err    error
}

// BackupGame snapshots the save files of game into its container.
//
// The backup dir is only created when at least one save file exists. When the
// container is rewritten and a remote is configured, it is pushed afterwards.
func (e *Engine) BackupGame(ctx context.Context, game gamedb.Game) (*snapshot.Result, error) {
	start := time.Now()
	log := e.log().WithFields(logrus.Fields{"game": game.Name})
	if _, ok := log.Data["run"]; !ok {
		log = log.WithField("run", uuid.NewString())
	}

	result, err := e.backupGame(ctx, game, log)

	outcome := OutcomeFailed
	if err == nil {
		outcome = result.Outcome.String()
	}
	e.recordBackup(game.Name, outcome, result, start)
	e.export()

	return result, err
}

func (e *Engine) backupGame(ctx context.Context, game gamedb.Game, log *logrus.Entry) (*snapshot.Result, error) {
	lf, err := e.lockGame(game.Name)
	if err != nil {
		return nil, err
	}
	defer lock.Release(lf)

	files, err := gamedb.Resolve(game, e.goos(), e.pathContext(game), log)
	if err != nil {
		return nil, errors.Wrap(err, "resolve save files")
	}

	if len(files) > 0 {
		if err := os.MkdirAll(e.BackupDir(game.Name), 0755); err != nil {
			return nil, errors.Wrap(err, "create backup dir")
		}
	}

	archivePath := e.ArchivePath(game.Name)
	result, err := snapshot.New(log).Run(game.Name, archivePath, files)
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case snapshot.OutcomeNothingToBackUp:
		log.Info("no save files found")
		return result, nil
	case snapshot.OutcomeUnchanged:
		log.Info("save files unchanged")
		return result, nil
	}

	log.WithFields(logrus.Fields{
		"files":   result.Entries,
		"changed": len(result.Changed),
		"size":    humanize.Bytes(uint64(result.ArchiveSize)),
	}).Info("backed up")

	if e.Remote != nil {
		if err := e.Remote.Push(ctx, e.RemoteKey(game.Name), archivePath); err != nil {
			return result, errors.Wrap(err, "push archive")
		}
		log.Debug("pushed archive to remote")
	}

	return result, nil
}

// BackupAll backs up every game with at most Parallelism games in flight.
//
// A failing game does not stop the others. Once ctx is done no further games
// are started; games already running finish. The returned error summarizes
// every failure.
func (e *Engine) BackupAll(ctx context.Context, games []gamedb.Game) ([]Report, error) {
	limit := e.Parallelism
	if limit < MinimumParallelism {
		limit = DefaultParallelism
	}
	if limit > MaximumParallelism {
		limit = MaximumParallelism
	}

	run := e.log().WithField("run", uuid.NewString())
	reports := make([]Report, len(games))

	var g errgroup.Group
	g.SetLimit(limit)

	var mu sync.Mutex
	var failed []string

	for i, game := range games {
		reports[i].Game = game.Name

		if ctx.Err() != nil {
			reports[i].Err = ctx.Err()
			continue
		}

		g.Go(func() error {
			engine := *e
			engine.Log = run

			result, err := engine.BackupGame(ctx, game)
			reports[i].Result = result
			reports[i].Err = err

			if err != nil {
				run.WithField("game", game.Name).WithError(err).Error("backup failed")
				mu.Lock()
				failed = append(failed, game.Name)
				mu.Unlock()
			}
			return nil
		})
	}

	g.Wait()

	if err := ctx.Err(); err != nil {
		return reports, errors.Wrap(err, "backup interrupted")
	}
	if len(failed) > 0 {
		return reports, errors.Errorf("backup failed for %d of %d games: %s", len(failed), len(games), strings.Join(failed, ", "))
	}
	return reports, nil
}

func (e *Engine) recordBackup(game, outcome string, result *snapshot.Result, start time.Time) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.BackupRun(outcome, start)
	if result != nil && result.Outcome == snapshot.OutcomeWritten {
		e.Metrics.ArchiveBytes(game, result.ArchiveSize)
	}
}
