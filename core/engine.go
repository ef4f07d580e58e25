package core

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xRadioAc7iv/go-aletheia/internal"
	"github.com/0xRadioAc7iv/go-aletheia/internal/gamedb"
	"github.com/0xRadioAc7iv/go-aletheia/internal/lock"
	"github.com/0xRadioAc7iv/go-aletheia/internal/metrics"
	"github.com/0xRadioAc7iv/go-aletheia/internal/pathmap"
	"github.com/0xRadioAc7iv/go-aletheia/internal/remote"
)

// Engine backs up and restores games into per-game containers under SaveDir.
//
// Each game gets its own directory named after the sanitized game name,
// holding a single container. Operations on one game are serialized across
// processes with a lock file next to that directory.
type Engine struct {
	SaveDir     string
	AccountID   string // Normalized Steam account id, empty when unknown
	Home        string
	GOOS        string
	Parallelism int

	Remote   remote.Backend   // Optional mirror
	Metrics  *metrics.Metrics // Optional
	Exporter metrics.Exporter // Optional, called after every operation
	Log      *logrus.Entry
}

// NewEngine builds an engine from cfg, wiring the remote mirror and the
// metrics exporter when they are configured.
func NewEngine(ctx context.Context, cfg *internal.Config, log *logrus.Entry) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	accountID, err := pathmap.NormalizeAccountID(cfg.SteamAccountID)
	if err != nil {
		return nil, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "find home dir")
	}

	backend, err := remote.New(ctx, cfg.Remote)
	if err != nil {
		return nil, errors.Wrap(err, "set up remote")
	}

	e := &Engine{
		SaveDir:     cfg.SaveDir,
		AccountID:   accountID,
		Home:        home,
		GOOS:        runtime.GOOS,
		Parallelism: cfg.Parallelism,
		Remote:      backend,
		Metrics:     metrics.New(),
		Log:         log,
	}

	if cfg.MetricsFile != "" {
		e.Exporter = metrics.NewFileExporter(cfg.MetricsFile, e.Metrics)
	}

	return e, nil
}

// SanitizeGameName strips characters that are not allowed in file names on
// every platform the save dir may be synced to.
func SanitizeGameName(name string) string {
	return strings.ReplaceAll(name, ":", "")
}

// BackupDir returns the directory holding the container for name.
func (e *Engine) BackupDir(name string) string {
	return filepath.Join(e.SaveDir, SanitizeGameName(name))
}

// ArchivePath returns the container path for name.
func (e *Engine) ArchivePath(name string) string {
	return filepath.Join(e.BackupDir(name), ArchiveFileName)
}

// RemoteKey returns the object key of the container for name.
func (e *Engine) RemoteKey(name string) string {
	return SanitizeGameName(name) + "/" + ArchiveFileName
}

func (e *Engine) log() *logrus.Entry {
	if e.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return e.Log
}

func (e *Engine) goos() string {
	if e.GOOS == "" {
		return runtime.GOOS
	}
	return e.GOOS
}

func (e *Engine) pathContext(game gamedb.Game) pathmap.Context {
	return pathmap.Context{
		InstallDir: game.InstallDir,
		Prefix:     game.Prefix,
		AccountID:  e.AccountID,
		Home:       e.Home,
		GOOS:       e.goos(),
	}
}

// lockGame takes the per-game lock. The save dir is created if needed so the
// lock file has somewhere to live.
func (e *Engine) lockGame(name string) (*os.File, error) {
	if err := os.MkdirAll(e.SaveDir, 0755); err != nil {
		return nil, errors.Wrap(err, "create save dir")
	}

	f, err := lock.Acquire(filepath.Join(e.SaveDir, SanitizeGameName(name)+LockFileExt))
	if err != nil {
		return nil, errors.Wrapf(err, "lock %s", name)
	}
	return f, nil
}

func (e *Engine) export() {
	if e.Exporter == nil {
		return
	}
	if err := e.Exporter.Export(); err != nil {
		e.log().WithError(err).Warn("failed to export metrics")
	}
}
