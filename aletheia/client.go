package aletheia

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xRadioAc7iv/go-aletheia/core"
	"github.com/0xRadioAc7iv/go-aletheia/internal"
	"github.com/0xRadioAc7iv/go-aletheia/internal/gamedb"
)

// ErrUnknownGame is returned for a game name missing from the games file.
var ErrUnknownGame = errors.New("unknown game")

type Client struct {
	engine   *core.Engine
	manifest *gamedb.Manifest
}

// Open applies opts over the defaults and loads the games file. A missing
// games file leaves the client with no games.
func Open(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := internal.DefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	log := logrus.NewEntry(logrus.StandardLogger())
	engine, err := core.NewEngine(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	manifest := &gamedb.Manifest{}
	if cfg.GamesFile != "" {
		manifest, err = gamedb.Load(cfg.GamesFile)
		if err != nil && !os.IsNotExist(errors.Cause(err)) {
			return nil, err
		}
		if err != nil {
			log.Debugf("games file %s does not exist", cfg.GamesFile)
			manifest = &gamedb.Manifest{}
		}
	}

	return &Client{engine: engine, manifest: manifest}, nil
}

// Engine exposes the underlying engine, for example to replace its logger.
func (c *Client) Engine() *core.Engine {
	return c.engine
}

// Games lists the names of the games in the games file.
func (c *Client) Games() []string {
	names := make([]string, 0, len(c.manifest.Games))
	for _, g := range c.manifest.Games {
		names = append(names, g.Name)
	}
	return names
}

// Backup backs up the named games, or every game when no name is given.
func (c *Client) Backup(ctx context.Context, names ...string) ([]core.Report, error) {
	games, err := c.lookup(names)
	if err != nil {
		return nil, err
	}
	return c.engine.BackupAll(ctx, games)
}

// BackupFiles backs up a game that is not in the games file, with save files
// given as absolute glob patterns.
func (c *Client) BackupFiles(ctx context.Context, name string, patterns []string) (core.Report, error) {
	game := gamedb.Game{
		Name:   name,
		Source: "custom",
		Files:  gamedb.Files{Windows: patterns, Linux: patterns, Mac: patterns},
	}

	result, err := c.engine.BackupGame(ctx, game)
	return core.Report{Game: name, Result: result, Err: err}, err
}

// Restore restores the named game and returns how many files were written.
func (c *Client) Restore(ctx context.Context, name string) (int, error) {
	games, err := c.lookup([]string{name})
	if err != nil {
		return 0, err
	}
	return c.engine.RestoreGame(ctx, games[0])
}

// RestoreFile restores a standalone container and returns the game it
// belonged to.
func (c *Client) RestoreFile(path string) (string, int, error) {
	game, n, err := c.engine.RestoreArchive(path, c.manifest.Games)
	return game.Name, n, err
}

// List scans the save dir for backups.
func (c *Client) List() (core.Catalog, error) {
	return c.engine.Catalog()
}

// Migrate converts backups made before the container format.
func (c *Client) Migrate() (int, error) {
	return c.engine.Migrate()
}

func (c *Client) lookup(names []string) ([]gamedb.Game, error) {
	if len(names) == 0 {
		return c.manifest.Games, nil
	}

	games := make([]gamedb.Game, 0, len(names))
	for _, name := range names {
		g, ok := c.manifest.Find(name)
		if !ok {
			return nil, errors.Wrap(ErrUnknownGame, name)
		}
		games = append(games, g)
	}
	return games, nil
}
