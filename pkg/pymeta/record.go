package pymeta

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
)

type Artifact struct {
	Path   string
	Size   int64
	Exists bool
}

// ArtifactSet is the on-disk footprint recorded for one package:
// every file its installer wrote, checked against what is actually
// present now.
type ArtifactSet struct {
	Files []Artifact
	Dirs  []string

	Present int
	Missing int
	Size    int64
}

// Artifacts reads the package's install RECORD and checks each entry.
// RECORD paths are relative to the site directory and may climb out
// of it for scripts.
func (p *Package) Artifacts() (*ArtifactSet, error) {
	f, err := os.Open(p.Location.Join("RECORD"))
	if err != nil {
		return nil, err
	}

	defer f.Close()

	return readRecord(f, p.Site.String())
}

func readRecord(r io.Reader, site string) (*ArtifactSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var set ArtifactSet

	dirs := make(map[string]struct{})

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, err
		}

		if len(rec) == 0 || rec[0] == "" {
			continue
		}

		full := filepath.Clean(filepath.Join(site, rec[0]))

		a := Artifact{Path: full}

		if fi, err := os.Stat(full); err == nil && !fi.IsDir() {
			a.Exists = true
			a.Size = fi.Size()
			set.Present++
			set.Size += fi.Size()
		} else {
			set.Missing++
		}

		dirs[filepath.Dir(full)] = struct{}{}

		set.Files = append(set.Files, a)
	}

	for d := range dirs {
		set.Dirs = append(set.Dirs, d)
	}

	sort.Strings(set.Dirs)

	sort.Slice(set.Files, func(i, j int) bool {
		return set.Files[i].Path < set.Files[j].Path
	})

	return &set, nil
}
