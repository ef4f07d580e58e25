// Package pathmap converts between absolute save file paths and the portable
// logical paths stored in archives.
//
// A logical path starts with a placeholder naming a well-known root (the
// install directory, the user's roaming AppData, ...) and uses forward slashes,
// so the same save file maps to the same key on every machine.
package pathmap

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	Base            = "<base>"
	Home            = "<home>"
	StoreUserID     = "<storeUserId>"
	WinAppData      = "<winAppData>"
	WinLocalAppData = "<winLocalAppData>"
	WinDocuments    = "<winDocuments>"
	WinPublic       = "<winPublic>"
	XDGData         = "<xdgData>"
	XDGConfig       = "<xdgConfig>"
)

// ErrUnresolvable is returned by Expand when a placeholder has no value in the
// given context.
var ErrUnresolvable = errors.New("placeholder cannot be resolved")

// Context carries what is needed to resolve placeholders for one game.
type Context struct {
	InstallDir string // Game installation directory
	Prefix     string // Wine/Proton prefix, unix only
	AccountID  string // Steam account id (id3)
	Home       string // User home directory

	// GOOS and Getenv default to the running platform.
	GOOS   string
	Getenv func(string) string
}

func (c Context) goos() string {
	if c.GOOS != "" {
		return c.GOOS
	}
	return runtime.GOOS
}

func (c Context) getenv(key string) string {
	if c.Getenv != nil {
		return c.Getenv(key)
	}
	return os.Getenv(key)
}

// slash converts p to forward slashes, treating backslashes as separators for
// Windows contexts even when running elsewhere.
func (c Context) slash(p string) string {
	if c.goos() == "windows" {
		return strings.ReplaceAll(p, `\`, "/")
	}
	return filepath.ToSlash(p)
}

type root struct {
	placeholder string
	dir         string // slash-separated, cleaned
}

// roots lists every placeholder that resolves in c.
func (c Context) roots() []root {
	var roots []root
	add := func(placeholder, dir string) {
		if dir == "" {
			return
		}
		roots = append(roots, root{placeholder: placeholder, dir: path.Clean(c.slash(dir))})
	}

	home := c.Home
	add(Base, c.InstallDir)
	add(Home, home)

	switch c.goos() {
	case "windows":
		add(WinAppData, firstNonEmpty(c.getenv("APPDATA"), join(home, "AppData/Roaming")))
		add(WinLocalAppData, firstNonEmpty(c.getenv("LOCALAPPDATA"), join(home, "AppData/Local")))
		add(WinDocuments, join(home, "Documents"))
		add(WinPublic, firstNonEmpty(c.getenv("PUBLIC"), "C:/Users/Public"))
	case "darwin":
		add(XDGData, join(home, "Library/Application Support"))
		add(XDGConfig, join(home, "Library/Preferences"))
	default:
		add(XDGData, firstNonEmpty(c.getenv("XDG_DATA_HOME"), join(home, ".local/share")))
		add(XDGConfig, firstNonEmpty(c.getenv("XDG_CONFIG_HOME"), join(home, ".config")))
	}

	if c.Prefix != "" && c.goos() != "windows" {
		user := join(c.Prefix, "drive_c/users/steamuser")
		add(WinAppData, join(user, "AppData/Roaming"))
		add(WinLocalAppData, join(user, "AppData/Local"))
		add(WinDocuments, join(user, "Documents"))
		add(WinPublic, join(c.Prefix, "drive_c/users/Public"))
	}

	return roots
}

func (c Context) lookup(placeholder string) (string, bool) {
	var found string
	for _, r := range c.roots() {
		if r.placeholder == placeholder {
			// Later roots (the prefix) override host defaults.
			found = r.dir
		}
	}
	return found, found != ""
}

// Shrink maps an absolute path to its logical form. The longest matching root
// wins; a path under no known root is returned in slash form.
func Shrink(abs string, c Context) string {
	p := path.Clean(c.slash(abs))
	caseFold := c.goos() == "windows"

	roots := c.roots()
	sort.SliceStable(roots, func(i, j int) bool { return len(roots[i].dir) > len(roots[j].dir) })

	for _, r := range roots {
		if rest, ok := trimDir(p, r.dir, caseFold); ok {
			p = r.placeholder + rest
			break
		}
	}

	if c.AccountID != "" {
		segments := strings.Split(p, "/")
		for i, s := range segments {
			if s == c.AccountID {
				segments[i] = StoreUserID
			}
		}
		p = strings.Join(segments, "/")
	}

	return p
}

// Expand maps a logical path back to an absolute path on this machine.
func Expand(logical string, c Context) (string, error) {
	return expand(logical, c, false)
}

// ExpandPattern is like Expand but substitutes a glob wildcard for an unknown
// account id, so a manifest pattern can match every account.
func ExpandPattern(pattern string, c Context) (string, error) {
	return expand(pattern, c, true)
}

func expand(logical string, c Context, wildcard bool) (string, error) {
	p := logical

	if strings.HasPrefix(p, "<") {
		end := strings.IndexByte(p, '>')
		if end < 0 {
			return "", errors.Errorf("malformed placeholder in %q", logical)
		}

		placeholder := p[:end+1]
		if placeholder != StoreUserID {
			dir, ok := c.lookup(placeholder)
			if !ok {
				return "", errors.Wrapf(ErrUnresolvable, "%s in %q", placeholder, logical)
			}
			p = dir + p[end+1:]
		}
	}

	if strings.Contains(p, StoreUserID) {
		switch {
		case c.AccountID != "":
			p = strings.ReplaceAll(p, StoreUserID, c.AccountID)
		case wildcard:
			p = strings.ReplaceAll(p, StoreUserID, "*")
		default:
			return "", errors.Wrapf(ErrUnresolvable, "%s in %q", StoreUserID, logical)
		}
	}

	return filepath.FromSlash(p), nil
}

// trimDir reports whether p is dir or lies below it, returning the remainder
// with its leading slash.
func trimDir(p, dir string, caseFold bool) (string, bool) {
	cp, cd := p, dir
	if caseFold {
		cp, cd = strings.ToLower(p), strings.ToLower(dir)
	}

	if cp == cd {
		return "", true
	}
	prefix := cd
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if strings.HasPrefix(cp, prefix) {
		return p[len(prefix)-1:], true
	}
	return "", false
}

func join(dir, rel string) string {
	if dir == "" {
		return ""
	}
	return path.Join(strings.ReplaceAll(dir, `\`, "/"), rel)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
