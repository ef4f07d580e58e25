package core_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/go-aletheia/core"
	"github.com/0xRadioAc7iv/go-aletheia/internal/archive"
	"github.com/0xRadioAc7iv/go-aletheia/internal/gamedb"
	"github.com/0xRadioAc7iv/go-aletheia/internal/lock"
	"github.com/0xRadioAc7iv/go-aletheia/internal/metrics"
	"github.com/0xRadioAc7iv/go-aletheia/internal/snapshot"
)

// memoryBackend is a remote.Backend keeping objects in memory.
type memoryBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	pushes  int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: make(map[string][]byte)}
}

func (b *memoryBackend) Push(_ context.Context, key, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.pushes++
	return nil
}

func (b *memoryBackend) Pull(_ context.Context, key, dest string) (bool, error) {
	b.mu.Lock()
	data, ok := b.objects[key]
	b.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, err
	}
	return true, os.WriteFile(dest, data, 0644)
}

func newEngine(t *testing.T) *core.Engine {
	t.Helper()

	logger, _ := test.NewNullLogger()
	return &core.Engine{
		SaveDir:     filepath.Join(t.TempDir(), "saves"),
		Home:        t.TempDir(),
		GOOS:        "linux",
		Parallelism: 2,
		Metrics:     metrics.New(),
		Log:         logrus.NewEntry(logger),
	}
}

// newGame returns a game whose saves live under its install dir.
func newGame(t *testing.T, name string) gamedb.Game {
	t.Helper()

	return gamedb.Game{
		Name:       name,
		InstallDir: t.TempDir(),
		Files:      gamedb.Files{Linux: []string{"<base>/saves/*.sav"}},
	}
}

func writeSave(t *testing.T, game gamedb.Game, name, content string) string {
	t.Helper()

	path := filepath.Join(game.InstallDir, "saves", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBackupThenRestore(t *testing.T) {
	e := newEngine(t)
	game := newGame(t, "Hollow Knight: Silksong")
	slot1 := writeSave(t, game, "slot1.sav", "progress")
	slot2 := writeSave(t, game, "slot2.sav", strings.Repeat("x", 4096))

	result, err := e.BackupGame(context.Background(), game)
	require.NoError(t, err)
	require.Equal(t, snapshot.OutcomeWritten, result.Outcome)
	require.Equal(t, filepath.Join(e.SaveDir, "Hollow Knight Silksong", core.ArchiveFileName), e.ArchivePath(game.Name))
	require.FileExists(t, e.ArchivePath(game.Name))

	require.NoError(t, os.Remove(slot1))
	require.NoError(t, os.WriteFile(slot2, []byte("overwritten"), 0644))

	n, err := e.RestoreGame(context.Background(), game)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	data, err := os.ReadFile(slot1)
	require.NoError(t, err)
	require.Equal(t, "progress", string(data))

	data, err = os.ReadFile(slot2)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("x", 4096), string(data))
}

func TestBackupWithoutSaveFiles(t *testing.T) {
	e := newEngine(t)
	game := newGame(t, "Celeste")

	result, err := e.BackupGame(context.Background(), game)
	require.NoError(t, err)
	require.Equal(t, snapshot.OutcomeNothingToBackUp, result.Outcome)
	require.NoDirExists(t, e.BackupDir(game.Name))
}

func TestBackupUnchangedIsANoOp(t *testing.T) {
	e := newEngine(t)
	backend := newMemoryBackend()
	e.Remote = backend
	game := newGame(t, "Celeste")
	writeSave(t, game, "0.sav", "chapter 1")

	_, err := e.BackupGame(context.Background(), game)
	require.NoError(t, err)
	require.Equal(t, 1, backend.pushes)

	result, err := e.BackupGame(context.Background(), game)
	require.NoError(t, err)
	require.Equal(t, snapshot.OutcomeUnchanged, result.Outcome)
	require.Equal(t, 1, backend.pushes, "unchanged archives are not pushed again")

	expected := `
# HELP aletheia_backup_runs_total The total backup runs. Broken down by outcome.
# TYPE aletheia_backup_runs_total counter
aletheia_backup_runs_total{outcome="unchanged"} 1
aletheia_backup_runs_total{outcome="written"} 1
`
	require.NoError(t, testutil.GatherAndCompare(e.Metrics.Registry, strings.NewReader(expected), "aletheia_backup_runs_total"))
}

func TestBackupFailsWhileGameIsLocked(t *testing.T) {
	e := newEngine(t)
	game := newGame(t, "Celeste")
	writeSave(t, game, "0.sav", "chapter 1")

	require.NoError(t, os.MkdirAll(e.SaveDir, 0755))
	lf, err := lock.Acquire(filepath.Join(e.SaveDir, "Celeste"+core.LockFileExt))
	require.NoError(t, err)
	defer lock.Release(lf)

	_, err = e.BackupGame(context.Background(), game)
	require.ErrorIs(t, err, lock.ErrLocked)
}

func TestRestoreWithoutBackup(t *testing.T) {
	e := newEngine(t)

	_, err := e.RestoreGame(context.Background(), newGame(t, "Celeste"))
	require.ErrorIs(t, err, core.ErrNoBackupsFound)
}

func TestRestorePullsFromRemote(t *testing.T) {
	backend := newMemoryBackend()
	game := newGame(t, "Celeste")
	save := writeSave(t, game, "0.sav", "chapter 7")

	first := newEngine(t)
	first.Remote = backend
	_, err := first.BackupGame(context.Background(), game)
	require.NoError(t, err)
	require.NoError(t, os.Remove(save))

	// A second machine with an empty save dir.
	second := newEngine(t)
	second.Remote = backend

	n, err := second.RestoreGame(context.Background(), game)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.FileExists(t, second.ArchivePath(game.Name))

	data, err := os.ReadFile(save)
	require.NoError(t, err)
	require.Equal(t, "chapter 7", string(data))
}

func TestRestoreArchive(t *testing.T) {
	e := newEngine(t)
	game := newGame(t, "Celeste")
	save := writeSave(t, game, "0.sav", "farewell")

	_, err := e.BackupGame(context.Background(), game)
	require.NoError(t, err)

	standalone := filepath.Join(t.TempDir(), "celeste"+core.ArchiveExt)
	data, err := os.ReadFile(e.ArchivePath(game.Name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(standalone, data, 0644))
	require.NoError(t, os.Remove(save))

	t.Run("restores into the installed game", func(t *testing.T) {
		other := newGame(t, "Hades")
		restored, n, err := e.RestoreArchive(standalone, []gamedb.Game{other, game})
		require.NoError(t, err)
		require.Equal(t, "Celeste", restored.Name)
		require.Equal(t, 1, n)
		require.FileExists(t, save)
	})

	t.Run("refuses an archive of a game that is not installed", func(t *testing.T) {
		_, _, err := e.RestoreArchive(standalone, []gamedb.Game{newGame(t, "Hades")})
		require.ErrorIs(t, err, core.ErrGameNotInstalled)
	})

	t.Run("reports an unreadable archive", func(t *testing.T) {
		bogus := filepath.Join(t.TempDir(), "bogus"+core.ArchiveExt)
		require.NoError(t, os.WriteFile(bogus, []byte("nope"), 0644))

		_, _, err := e.RestoreArchive(bogus, []gamedb.Game{game})
		require.ErrorIs(t, err, archive.ErrInvalidArchive)
	})
}

func TestBackupAll(t *testing.T) {
	t.Run("a failing game does not stop the others", func(t *testing.T) {
		e := newEngine(t)
		games := []gamedb.Game{newGame(t, "A"), newGame(t, strings.Repeat("n", 300)), newGame(t, "C")}
		for _, g := range games {
			writeSave(t, g, "0.sav", g.Name)
		}

		reports, err := e.BackupAll(context.Background(), games)
		require.Error(t, err)
		require.Len(t, reports, 3)

		require.NoError(t, reports[0].Err)
		require.Equal(t, snapshot.OutcomeWritten, reports[0].Result.Outcome)
		require.Error(t, reports[1].Err)
		require.NoError(t, reports[2].Err)
		require.FileExists(t, e.ArchivePath("C"))
	})

	t.Run("a cancelled context starts nothing", func(t *testing.T) {
		e := newEngine(t)
		game := newGame(t, "A")
		writeSave(t, game, "0.sav", "a")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		reports, err := e.BackupAll(ctx, []gamedb.Game{game})
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, reports[0].Err, context.Canceled)
		require.NoFileExists(t, e.ArchivePath("A"))
	})
}

func TestCatalog(t *testing.T) {
	e := newEngine(t)

	catalog, err := e.Catalog()
	require.NoError(t, err)
	require.Empty(t, catalog, "a missing save dir is an empty catalog")

	game := newGame(t, "Celeste")
	writeSave(t, game, "0.sav", "a")
	writeSave(t, game, "1.sav", "b")
	_, err = e.BackupGame(context.Background(), game)
	require.NoError(t, err)

	broken := filepath.Join(e.SaveDir, "Broken", core.ArchiveFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(broken), 0755))
	require.NoError(t, os.WriteFile(broken, []byte("garbage"), 0644))

	catalog, err = e.Catalog()
	require.NoError(t, err)
	require.Equal(t, []string{"Broken", "Celeste"}, catalog.Names())

	require.Equal(t, "Celeste", catalog["Celeste"].Subject)
	require.Equal(t, 2, catalog["Celeste"].Entries)
	require.NoError(t, catalog["Celeste"].Err)
	require.Error(t, catalog["Broken"].Err)
}

func TestSanitizeGameName(t *testing.T) {
	require.Equal(t, "Hollow Knight Silksong", core.SanitizeGameName("Hollow Knight: Silksong"))
	require.Equal(t, "Celeste", core.SanitizeGameName("Celeste"))
}
