package pyenv

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// IsPythonExe reports whether a file name looks like a python
// interpreter: "python" followed by nothing but digits and dots.
// pip, python-config, and friends don't qualify.
func IsPythonExe(name string) bool {
	if !strings.HasPrefix(name, "python") {
		return false
	}

	for _, c := range name[len("python"):] {
		switch {
		case c >= '0' && c <= '9':
		case c == '.':
		default:
			return false
		}
	}

	return true
}

var systemBins = []string{
	"/bin", "/sbin",
	"/usr/bin", "/usr/sbin",
	"/usr/local/bin", "/usr/local/sbin",
}

// prune names home directories nobody wants walked.
var prune = map[string]struct{}{
	".cache":             {},
	".npm":               {},
	".local/share/Trash": {},
}

var pruneDarwin = map[string]struct{}{
	"Library":   {},
	"Photos":    {},
	"Downloads": {},
	".Trash":    {},
}

// Discovery finds python executables across the machine: every PATH
// entry, the home tree, and the usual system bins.
type Discovery struct {
	// OS overrides runtime.GOOS, for tests.
	OS string

	// Home overrides the user's home directory, for tests.
	Home string
}

func (d *Discovery) goos() string {
	if d.OS != "" {
		return d.OS
	}

	return runtime.GOOS
}

// Discover returns the deduplicated, sorted set of interpreter
// paths. Unreadable origins are simply skipped; an empty result is
// not an error here, the caller decides what that means.
func (d *Discovery) Discover() []string {
	seen := make(map[string]struct{})

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		d.scanDir(dir, seen)
	}

	bins := systemBins
	if d.goos() == "darwin" {
		bins = append(append([]string{}, bins...), "/opt/homebrew/bin")
	}

	for _, dir := range bins {
		d.scanDir(dir, seen)
	}

	home := d.Home
	if home == "" {
		if h, err := homedir.Dir(); err == nil {
			home = h
		}
	}

	if home != "" {
		d.walkHome(home, seen)
	}

	out := make([]string, 0, len(seen))
	for exe := range seen {
		out = append(out, exe)
	}

	sort.Strings(out)

	return out
}

// scanDir checks the immediate entries of one directory, no descent.
func (d *Discovery) scanDir(dir string, seen map[string]struct{}) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, ent := range ents {
		if ent.IsDir() {
			continue
		}

		if !IsPythonExe(ent.Name()) {
			continue
		}

		full := filepath.Join(dir, ent.Name())

		if executable(full) {
			seen[full] = struct{}{}
		}
	}
}

// walkHome descends the home tree looking for interpreters and for
// virtualenvs, which advertise themselves with a pyvenv.cfg.
func (d *Discovery) walkHome(home string, seen map[string]struct{}) {
	darwin := d.goos() == "darwin"

	filepath.WalkDir(home, func(path string, ent fs.DirEntry, err error) error {
		if err != nil {
			if ent != nil && ent.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if ent.IsDir() {
			rel, err := filepath.Rel(home, path)
			if err == nil && rel != "." {
				if _, skip := prune[rel]; skip {
					return filepath.SkipDir
				}

				if darwin {
					if _, skip := pruneDarwin[rel]; skip {
						return filepath.SkipDir
					}
				}
			}

			venv := filepath.Join(path, "bin", "python3")
			if _, err := os.Stat(filepath.Join(path, "pyvenv.cfg")); err == nil && executable(venv) {
				seen[venv] = struct{}{}
			}

			return nil
		}

		if IsPythonExe(ent.Name()) && executable(path) {
			seen[path] = struct{}{}
		}

		return nil
	})
}

func executable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}

	return fi.Mode()&0111 != 0
}
