package gamedb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/go-aletheia/internal/pathmap"
)

const manifest = `
games:
  - name: "Hollow Knight: Silksong"
    install_dir: /games/silksong
    source: steam
    files:
      windows:
        - <winAppData>/../LocalLow/Team Cherry/Silksong/*.dat
      linux:
        - <xdgConfig>/unity3d/Team Cherry/Silksong/*.dat
  - name: Celeste
    source: custom
    files:
      linux:
        - <xdgData>/Celeste/Saves/**
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(manifest))
	require.NoError(t, err)
	require.Len(t, m.Games, 2)

	g, ok := m.Find("Celeste")
	require.True(t, ok)
	require.Equal(t, []string{"<xdgData>/Celeste/Saves/**"}, g.Files.Linux)

	_, ok = m.Find("celeste")
	require.False(t, ok, "names match exactly")
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	t.Run("missing name", func(t *testing.T) {
		_, err := Parse([]byte("games:\n  - source: steam\n"))
		require.ErrorContains(t, err, "Name")
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := Parse([]byte("games:\n  - name: A\n    source: gog-galaxy\n"))
		require.ErrorContains(t, err, "one of")
	})

	t.Run("empty pattern", func(t *testing.T) {
		_, err := Parse([]byte("games:\n  - name: A\n    files:\n      linux: ['']\n"))
		require.Error(t, err)
	})

	t.Run("duplicate names", func(t *testing.T) {
		_, err := Parse([]byte("games:\n  - name: A\n  - name: A\n"))
		require.ErrorContains(t, err, "duplicate")
	})

	t.Run("name longer than 255 bytes", func(t *testing.T) {
		name := strings.Repeat("é", 200)
		_, err := Parse([]byte("games:\n  - name: " + name + "\n"))
		require.ErrorContains(t, err, "255 bytes")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("games: [\n"))
		require.Error(t, err)
	})
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "games.yaml"))
	require.Error(t, err)
}

func TestPatterns(t *testing.T) {
	g := Game{Files: Files{
		Windows: []string{"w"},
		Linux:   []string{"l"},
		Mac:     []string{"m"},
	}}

	require.Equal(t, []string{"w"}, g.Patterns("windows"))
	require.Equal(t, []string{"l"}, g.Patterns("linux"))
	require.Equal(t, []string{"m"}, g.Patterns("darwin"))

	g.Prefix = "/pfx"
	require.Equal(t, []string{"w", "l"}, g.Patterns("linux"))
	require.Equal(t, []string{"w", "m"}, g.Patterns("darwin"))
	require.Equal(t, []string{"w"}, g.Patterns("windows"))
}

func TestResolve(t *testing.T) {
	install := t.TempDir()
	mustWrite(t, filepath.Join(install, "saves", "slot1.sav"))
	mustWrite(t, filepath.Join(install, "saves", "deep", "slot2.sav"))
	mustWrite(t, filepath.Join(install, "saves", "steam_autocloud.vdf"))
	require.NoError(t, os.MkdirAll(filepath.Join(install, "saves", "empty.sav"), 0755))

	logger, hook := test.NewNullLogger()
	ctx := pathmap.Context{InstallDir: install, Home: t.TempDir(), GOOS: "linux", Getenv: func(string) string { return "" }}
	g := Game{Name: "Game", Files: Files{Linux: []string{
		"<base>/saves/**/*.sav",
		"<base>/saves/slot1.sav",
		"<base>/saves/*.vdf",
	}}}

	files, err := Resolve(g, "linux", ctx, logrus.NewEntry(logger))
	require.NoError(t, err)

	var logical []string
	for _, f := range files {
		logical = append(logical, f.LogicalPath)
	}
	require.ElementsMatch(t, []string{"<base>/saves/slot1.sav", "<base>/saves/deep/slot2.sav"}, logical)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	require.True(t, warned, "directories matched by a pattern are reported")
}

func TestResolveSkipsUnresolvablePatterns(t *testing.T) {
	ctx := pathmap.Context{Home: t.TempDir(), GOOS: "linux", Getenv: func(string) string { return "" }}
	g := Game{Name: "Game", Files: Files{Linux: []string{"<base>/saves/*"}}}

	files, err := Resolve(g, "linux", ctx, nil)
	require.NoError(t, err)
	require.Empty(t, files)
}

func mustWrite(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(path), 0644))
}
