package gamedb

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xRadioAc7iv/go-aletheia/internal/pathmap"
	"github.com/0xRadioAc7iv/go-aletheia/internal/snapshot"
)

// Steam writes this next to cloud saves; it is not part of the save.
const steamAutocloudFile = "steam_autocloud.vdf"

// Resolve expands the game's patterns for goos and returns every matched
// regular file with its logical path. A file matched by several patterns is
// returned once.
func Resolve(g Game, goos string, ctx pathmap.Context, log *logrus.Entry) ([]snapshot.File, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	var files []snapshot.File
	seen := make(map[string]struct{})

	for _, pattern := range g.Patterns(goos) {
		expanded, err := pathmap.ExpandPattern(pattern, ctx)
		if err != nil {
			if errors.Is(err, pathmap.ErrUnresolvable) {
				log.WithError(err).Debugf("skipping pattern %s", pattern)
				continue
			}
			return nil, errors.Wrapf(err, "expand %s", pattern)
		}

		matches, err := doublestar.FilepathGlob(expanded)
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", pattern)
		}

		for _, match := range matches {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}

			info, err := os.Stat(match)
			if err != nil {
				return nil, errors.Wrapf(err, "stat %s", match)
			}
			if info.IsDir() {
				log.Warnf("found directory %s while backing up %s, patterns should match files only", match, g.Name)
				continue
			}
			if filepath.Base(match) == steamAutocloudFile {
				continue
			}

			files = append(files, snapshot.File{
				LogicalPath: pathmap.Shrink(match, ctx),
				SourcePath:  match,
			})
		}
	}

	return files, nil
}
