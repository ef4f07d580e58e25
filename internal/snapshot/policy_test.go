package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/go-aletheia/internal/archive"
)

type fixture struct {
	dir         string
	archivePath string
	policy      *Policy
	hook        *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	dir := t.TempDir()
	return &fixture{
		dir:         dir,
		archivePath: filepath.Join(dir, "backup.aletheia"),
		policy:      New(logrus.NewEntry(logger)),
		hook:        hook,
	}
}

func (f *fixture) write(t *testing.T, name, content string) File {
	t.Helper()

	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return File{LogicalPath: "<base>/" + name, SourcePath: path}
}

func (f *fixture) run(t *testing.T, files ...File) *Result {
	t.Helper()

	result, err := f.policy.Run("Game", f.archivePath, files)
	require.NoError(t, err)
	return result
}

func (f *fixture) read(t *testing.T, logical string) string {
	t.Helper()

	r, err := archive.Open(f.archivePath)
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadEntry(logical)
	require.NoError(t, err)
	return string(data)
}

func TestFirstBackupWritesEverything(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.sav", "alpha")
	b := f.write(t, "b.sav", "beta")

	result := f.run(t, a, b)

	require.Equal(t, OutcomeWritten, result.Outcome)
	require.False(t, result.PriorUsable)
	require.ElementsMatch(t, []string{a.LogicalPath, b.LogicalPath}, result.Changed)
	require.Equal(t, 2, result.Entries)
	require.Positive(t, result.ArchiveSize)
	require.Equal(t, "alpha", f.read(t, a.LogicalPath))
}

func TestUnchangedFilesAreANoOp(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.sav", "alpha")
	b := f.write(t, "b.sav", "beta")
	f.run(t, a, b)

	before, err := os.ReadFile(f.archivePath)
	require.NoError(t, err)
	beforeInfo, err := os.Stat(f.archivePath)
	require.NoError(t, err)

	result := f.run(t, a, b)

	require.Equal(t, OutcomeUnchanged, result.Outcome)
	require.True(t, result.PriorUsable)
	require.Empty(t, result.Changed)

	after, err := os.ReadFile(f.archivePath)
	require.NoError(t, err)
	require.Equal(t, before, after, "prior archive must be byte-for-byte unchanged")

	afterInfo, err := os.Stat(f.archivePath)
	require.NoError(t, err)
	require.Equal(t, beforeInfo.ModTime(), afterInfo.ModTime())
}

func TestAnyChangeRebuildsEverything(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.sav", "alpha")
	b := f.write(t, "b.sav", "beta")
	f.run(t, a, b)

	b = f.write(t, "b.sav", "beta, but further along")
	result := f.run(t, a, b)

	require.Equal(t, OutcomeWritten, result.Outcome)
	require.Equal(t, []string{b.LogicalPath}, result.Changed)
	require.Equal(t, 2, result.Entries)

	require.Equal(t, "alpha", f.read(t, a.LogicalPath), "unchanged files are carried into the new archive")
	require.Equal(t, "beta, but further along", f.read(t, b.LogicalPath))
}

func TestNewFileCountsAsChange(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.sav", "alpha")
	f.run(t, a)

	c := f.write(t, "c.sav", "gamma")
	result := f.run(t, a, c)

	require.Equal(t, OutcomeWritten, result.Outcome)
	require.Equal(t, []string{c.LogicalPath}, result.Changed)
}

func TestRemovedFileAloneIsNotAChange(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.sav", "alpha")
	b := f.write(t, "b.sav", "beta")
	f.run(t, a, b)

	result := f.run(t, a)

	require.Equal(t, OutcomeUnchanged, result.Outcome)
	require.Equal(t, "beta", f.read(t, b.LogicalPath))
}

func TestSharedLogicalPathIsReportedOnce(t *testing.T) {
	f := newFixture(t)
	first := f.write(t, "a.sav", "old")
	second := f.write(t, "copy.sav", "new")
	second.LogicalPath = first.LogicalPath

	result := f.run(t, first, second)

	require.Equal(t, OutcomeWritten, result.Outcome)
	require.Equal(t, []string{first.LogicalPath}, result.Changed)
	require.Equal(t, 1, result.Entries)
	require.Equal(t, "new", f.read(t, first.LogicalPath))
}

func TestEmptyFileSetDoesNothing(t *testing.T) {
	t.Run("without a prior archive", func(t *testing.T) {
		f := newFixture(t)

		result := f.run(t)

		require.Equal(t, OutcomeNothingToBackUp, result.Outcome)
		_, err := os.Stat(f.archivePath)
		require.True(t, os.IsNotExist(err))
	})

	t.Run("with a prior archive", func(t *testing.T) {
		f := newFixture(t)
		f.run(t, f.write(t, "a.sav", "alpha"))
		before, err := os.ReadFile(f.archivePath)
		require.NoError(t, err)

		result := f.run(t)

		require.Equal(t, OutcomeNothingToBackUp, result.Outcome)
		after, err := os.ReadFile(f.archivePath)
		require.NoError(t, err)
		require.Equal(t, before, after)
	})
}

func TestCorruptPriorArchiveIsReplaced(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.archivePath, []byte("definitely not an archive"), 0644))
	a := f.write(t, "a.sav", "alpha")

	result := f.run(t, a)

	require.Equal(t, OutcomeWritten, result.Outcome)
	require.False(t, result.PriorUsable)
	require.Equal(t, "alpha", f.read(t, a.LogicalPath))

	var warned bool
	for _, entry := range f.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	require.True(t, warned, "an unusable prior archive is logged")
}

func TestHashFailureIsReported(t *testing.T) {
	f := newFixture(t)
	missing := File{LogicalPath: "<base>/gone.sav", SourcePath: filepath.Join(f.dir, "gone.sav")}

	_, err := f.policy.Run("Game", f.archivePath, []File{missing})
	require.Error(t, err)

	_, statErr := os.Stat(f.archivePath)
	require.True(t, os.IsNotExist(statErr))
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "nothing_to_back_up", OutcomeNothingToBackUp.String())
	require.Equal(t, "unchanged", OutcomeUnchanged.String())
	require.Equal(t, "written", OutcomeWritten.String())
}
