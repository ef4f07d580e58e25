// The aletheia CLI backs up game saves into one container per game and
// restores them, optionally mirroring containers to an S3 bucket.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/0xRadioAc7iv/go-aletheia/aletheia"
	"github.com/0xRadioAc7iv/go-aletheia/core"
	"github.com/0xRadioAc7iv/go-aletheia/internal"
	"github.com/0xRadioAc7iv/go-aletheia/internal/archive"
	"github.com/0xRadioAc7iv/go-aletheia/internal/utils"
)

var versionGitCommit string
var versionBuildTime string

// loadConfig reads the config file and applies flag overrides on top.
func loadConfig(c *cli.Context) (*internal.Config, error) {
	cfg, err := internal.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("save-dir") {
		cfg.SaveDir = c.String("save-dir")
	}
	if c.IsSet("games-file") {
		cfg.GamesFile = c.String("games-file")
	}
	if c.IsSet("metrics-file") {
		cfg.MetricsFile = c.String("metrics-file")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("parallelism") {
		cfg.Parallelism = c.Int("parallelism")
	}

	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(logLevel)

	return cfg, nil
}

func openClient(c *cli.Context) (*aletheia.Client, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return aletheia.Open(c.Context, aletheia.WithConfig(cfg))
}

func backupAction(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}

	if name := c.String("game"); name != "" {
		patterns, err := utils.SplitPatterns(c.String("files"))
		if err != nil {
			return err
		}
		if len(patterns) == 0 {
			return fmt.Errorf("--game requires --files")
		}

		report, err := client.BackupFiles(c.Context, name, patterns)
		if err != nil {
			return errors.Wrapf(err, "back up %s", name)
		}
		printReports([]core.Report{report})
		return nil
	}

	reports, err := client.Backup(c.Context, c.Args().Slice()...)
	printReports(reports)
	return err
}

func printReports(reports []core.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	for _, r := range reports {
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "%s\tfailed\t%v\n", r.Game, r.Err)
		case r.Result == nil:
			fmt.Fprintf(w, "%s\tskipped\t\n", r.Game)
		default:
			detail := ""
			if r.Result.ArchiveSize > 0 {
				detail = fmt.Sprintf("%d files, %s", r.Result.Entries, humanize.Bytes(uint64(r.Result.ArchiveSize)))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Game, r.Result.Outcome, detail)
		}
	}
}

func restoreAction(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}

	args := c.Args().Slice()
	if len(args) == 0 {
		args = client.Games()
	}

	var failed []string
	for _, arg := range args {
		if strings.HasSuffix(arg, core.ArchiveExt) && utils.IsRegularFile(arg) {
			game, n, err := client.RestoreFile(arg)
			if err != nil {
				logrus.WithError(err).Errorf("failed to restore %s", arg)
				failed = append(failed, arg)
				continue
			}
			logrus.Infof("restored %d files of %s from %s", n, game, arg)
			continue
		}

		n, err := client.Restore(c.Context, arg)
		if err != nil {
			logrus.WithError(err).Errorf("failed to restore %s", arg)
			failed = append(failed, arg)
			continue
		}
		logrus.Infof("restored %d files of %s", n, arg)
	}

	if len(failed) > 0 {
		return fmt.Errorf("restore failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func listAction(c *cli.Context) error {
	if c.Args().Len() > 0 {
		return listArchive(c.Args().First())
	}

	client, err := openClient(c)
	if err != nil {
		return err
	}

	catalog, err := client.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "GAME\tFILES\tSIZE\tCREATED")
	for _, name := range catalog.Names() {
		entry := catalog[name]
		if entry.Err != nil {
			fmt.Fprintf(w, "%s\t-\t%s\tunreadable: %s\n", name, humanize.Bytes(uint64(entry.Size)), archive.Classify(entry.Err))
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", entry.Subject, entry.Entries, humanize.Bytes(uint64(entry.Size)), humanize.Time(entry.CreatedAt))
	}
	return nil
}

func listArchive(path string) error {
	r, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Printf("%s (created %s)\n", r.Subject(), r.CreatedAt().Format("2006-01-02 15:04:05"))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	for _, e := range r.Entries() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.LogicalPath, humanize.Bytes(e.DataSize), e.Compression)
	}
	return nil
}

func verifyAction(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("verify requires at least one archive")
	}

	var failed int
	for _, path := range c.Args().Slice() {
		r, err := archive.Open(path)
		if err != nil {
			failed++
			fmt.Printf("%s: %s: %v\n", path, archive.Classify(err), err)
			continue
		}
		fmt.Printf("%s: ok (%d files)\n", path, len(r.Entries()))
		r.Close()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d archives failed verification", failed, c.Args().Len())
	}
	return nil
}

func migrateAction(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}

	n, err := client.Migrate()
	if err != nil {
		return err
	}
	logrus.Infof("migrated %d backups", n)
	return nil
}

func initAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	path := c.String("config")
	if err := internal.SaveConfig(path, cfg); err != nil {
		return err
	}
	logrus.Infof("wrote config to %s", path)
	return nil
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	version := fmt.Sprintf("%s.%s", versionGitCommit, versionBuildTime)

	app := &cli.App{
		Name:    "aletheia",
		Usage:   "Game save backup tool",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: internal.DefaultConfigPath(), TakesFile: true, Usage: "Config file path", EnvVars: []string{"ALETHEIA_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Set log level (panic, fatal, error, warn, info, debug, trace)", EnvVars: []string{"LOG_LEVEL"}},
			&cli.StringFlag{Name: "save-dir", Usage: "Directory holding one backup dir per game", EnvVars: []string{"ALETHEIA_SAVE_DIR"}},
			&cli.StringFlag{Name: "games-file", TakesFile: true, Usage: "Games file listing games and their save locations", EnvVars: []string{"ALETHEIA_GAMES_FILE"}},
			&cli.StringFlag{Name: "metrics-file", TakesFile: true, Usage: "Write Prometheus metrics to this file after every run", EnvVars: []string{"ALETHEIA_METRICS_FILE"}},
			&cli.IntFlag{Name: "parallelism", Usage: "Games backed up at once", EnvVars: []string{"ALETHEIA_PARALLELISM"}},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "backup",
			Usage:     "Back up games from the games file, or a single game given with --game and --files",
			ArgsUsage: "[game...]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "game", Usage: "Name of a game not in the games file"},
				&cli.StringFlag{Name: "files", Usage: "Shell-quoted list of absolute glob patterns for --game"},
			},
			Action: backupAction,
		},
		{
			Name:      "restore",
			Usage:     "Restore games, or standalone .aletheia files",
			ArgsUsage: "[game...|file.aletheia...]",
			Action:    restoreAction,
		},
		{
			Name:      "list",
			Usage:     "List backups in the save dir, or the files in one archive",
			ArgsUsage: "[archive]",
			Action:    listAction,
		},
		{
			Name:      "verify",
			Usage:     "Check archives for corruption",
			ArgsUsage: "archive...",
			Action:    verifyAction,
		},
		{
			Name:   "migrate",
			Usage:  "Convert backups made by older versions into archives",
			Action: migrateAction,
		},
		{
			Name:   "init",
			Usage:  "Write the effective config to the config file",
			Action: initAction,
		},
	}

	ctx, stop := utils.ContextWithInterrupt(context.Background())
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		logrus.Fatal(err)
	}
}
