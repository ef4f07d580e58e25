package core

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/0xRadioAc7iv/go-aletheia/internal/archive"
	"github.com/0xRadioAc7iv/go-aletheia/internal/checksum"
)

// legacyManifest is the per-game manifest written next to loose save file
// copies before the container format existed.
type legacyManifest struct {
	Name  string `yaml:"name"`
	Files []struct {
		Path string `yaml:"path"`
		Hash string `yaml:"hash"`
	} `yaml:"files"`
}

// Migrate converts legacy backup dirs into containers and returns how many
// were converted.
//
// A dir is skipped when it already holds a container or when any file listed
// in its manifest is missing. The legacy files are only deleted once the
// container has been written.
func (e *Engine) Migrate() (int, error) {
	dirs, err := os.ReadDir(e.SaveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "read save dir")
	}

	migrated := 0
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}

		ok, err := e.migrateDir(filepath.Join(e.SaveDir, dir.Name()))
		if err != nil {
			e.log().WithError(err).Errorf("failed to migrate %s", dir.Name())
			continue
		}
		if ok {
			migrated++
		}
	}

	return migrated, nil
}

func (e *Engine) migrateDir(dir string) (bool, error) {
	manifestPath := filepath.Join(dir, LegacyManifestName)
	archivePath := filepath.Join(dir, ArchiveFileName)

	if _, err := os.Stat(archivePath); err == nil {
		return false, nil
	}
	data, err := os.ReadFile(manifestPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "read legacy manifest")
	}

	var manifest legacyManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return false, errors.Wrap(err, "decode legacy manifest")
	}

	log := e.log().WithField("game", manifest.Name)
	if len(manifest.Files) == 0 {
		log.Warn("legacy manifest lists no files, skipping")
		return false, nil
	}
	log.Info("migrating to archive format")

	writer := archive.NewWriter(manifest.Name, archivePath)
	var loose []string

	for _, file := range manifest.Files {
		local := filepath.Join(dir, path.Base(strings.ReplaceAll(file.Path, `\`, "/")))

		sum, err := checksum.File(local)
		if err != nil {
			log.Warnf("failed to migrate, file %s missing", file.Path)
			return false, nil
		}
		if file.Hash != "" && file.Hash != sum {
			log.Warnf("recorded hash of %s does not match its contents, keeping the contents", file.Path)
		}

		writer.AddEntry(file.Path, local, sum)
		loose = append(loose, local)
	}

	if err := writer.Finalize(); err != nil {
		os.Remove(archivePath)
		return false, errors.Wrap(err, "create archive")
	}

	if err := os.Remove(manifestPath); err != nil {
		return true, errors.Wrap(err, "remove legacy manifest")
	}
	for _, f := range loose {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return true, errors.Wrap(err, "remove legacy file")
		}
	}

	log.Info("successfully migrated")
	return true, nil
}
