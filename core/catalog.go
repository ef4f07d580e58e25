package core

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-aletheia/internal/archive"
)

// CatalogEntry describes one backup found in the save dir.
//
// The catalog is rebuilt by scanning the save dir each time; nothing about it
// is persisted.
type CatalogEntry struct {
	Dir       string    // Backup dir name, the sanitized game name
	Path      string    // Path of the container
	Subject   string    // Game name recorded in the container
	CreatedAt time.Time // When the container was written
	Entries   int       // Number of files in the container
	Size      int64     // Size of the container on disk
	Err       error     // Set when the container could not be opened
}

// Catalog maps backup dir names to what was found in them.
type Catalog map[string]CatalogEntry

// Names returns the backup dir names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog scans the save dir for containers. A missing save dir yields an
// empty catalog.
func (e *Engine) Catalog() (Catalog, error) {
	catalog := make(Catalog)

	dirs, err := os.ReadDir(e.SaveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return catalog, nil
		}
		return nil, errors.Wrap(err, "read save dir")
	}

	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}

		path := filepath.Join(e.SaveDir, dir.Name(), ArchiveFileName)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		entry := CatalogEntry{Dir: dir.Name(), Path: path, Size: info.Size()}

		r, err := archive.Open(path)
		if err != nil {
			entry.Err = err
			catalog[dir.Name()] = entry
			continue
		}

		entry.Subject = r.Subject()
		entry.CreatedAt = r.CreatedAt()
		entry.Entries = len(r.Entries())
		r.Close()

		catalog[dir.Name()] = entry
	}

	return catalog, nil
}
