package pymeta

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"lab47.dev/sitevet/pkg/data"
	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/pyver"
)

var ErrMalformed = errors.New("malformed package metadata")

// Reader builds Package records from metadata directories. All paths
// it hands out are interned through the shared table.
type Reader struct {
	Paths *pathintern.Table
}

func NewReader(tbl *pathintern.Table) *Reader {
	return &Reader{Paths: tbl}
}

// ReadDir reads one *.dist-info or *.egg-info entry under site. An
// egg-info entry may be a bare file rather than a directory. Missing
// version or provenance is fine; a record whose name cannot be
// determined at all fails with ErrMalformed.
func (r *Reader) ReadDir(site, dir string) (*Package, error) {
	base := filepath.Base(dir)

	var (
		format  Format
		trimmed string
	)

	switch {
	case strings.HasSuffix(base, ".dist-info"):
		format = FormatDistInfo
		trimmed = strings.TrimSuffix(base, ".dist-info")
	case strings.HasSuffix(base, ".egg-info"):
		format = FormatEggInfo
		trimmed = strings.TrimSuffix(base, ".egg-info")
	default:
		return nil, errors.Wrapf(ErrMalformed, "not a metadata directory: %s", base)
	}

	name, version := splitNameVersion(trimmed)

	hdrName, hdrVersion := r.headers(dir, format)

	if hdrName != "" && (name == "" || Key(hdrName) == Key(name)) {
		name = hdrName
	}

	if version == "" {
		version = hdrVersion
	}

	if name == "" {
		return nil, errors.Wrapf(ErrMalformed, "no package name derivable from %s", dir)
	}

	pkg := &Package{
		Name:     name,
		Version:  pyver.Parse(version),
		Location: r.Paths.Intern(dir),
		Site:     r.Paths.Intern(site),
		Format:   format,
	}

	if format == FormatDistInfo {
		if durl, err := r.readDirectURL(dir); err == nil {
			pkg.DirectURL = durl
		}
	}

	return pkg, nil
}

// splitNameVersion takes the "name-version" encoding of a metadata
// directory apart. A trailing segment with no digit belongs to the
// name, not the version, so "foo-bar.egg-info" stays package foo-bar.
func splitNameVersion(s string) (string, string) {
	idx := strings.LastIndex(s, "-")
	if idx == -1 {
		return s, ""
	}

	version := s[idx+1:]
	if !strings.ContainsAny(version, "0123456789") {
		return s, ""
	}

	return s[:idx], version
}

// headers pulls Name and Version from the record's METADATA or
// PKG-INFO. Best effort only, absence is fine.
func (r *Reader) headers(dir string, format Format) (string, string) {
	var candidates []string

	fi, err := os.Stat(dir)
	if err != nil {
		return "", ""
	}

	if fi.IsDir() {
		switch format {
		case FormatDistInfo:
			candidates = []string{filepath.Join(dir, "METADATA")}
		case FormatEggInfo:
			candidates = []string{filepath.Join(dir, "PKG-INFO")}
		}
	} else {
		// old setuptools writes a bare .egg-info file of headers
		candidates = []string{dir}
	}

	for _, path := range candidates {
		f, err := os.Open(path)
		if err != nil {
			continue
		}

		name, version := parseHeaders(f)
		f.Close()

		if name != "" || version != "" {
			return name, version
		}
	}

	return "", ""
}

func parseHeaders(r io.Reader) (string, string) {
	var name, version string

	s := bufio.NewScanner(r)

	for s.Scan() {
		line := s.Text()
		if line == "" {
			break
		}

		if v, ok := headerValue(line, "Name:"); ok {
			name = v
			continue
		}

		if v, ok := headerValue(line, "Version:"); ok {
			version = v
		}

		if name != "" && version != "" {
			break
		}
	}

	return name, version
}

func headerValue(line, prefix string) (string, bool) {
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}

	return strings.TrimSpace(line[len(prefix):]), true
}

// readDirectURL loads direct_url.json. Credentials in the recorded
// URL are removed here, before the value escapes.
func (r *Reader) readDirectURL(dir string) (*DirectURL, error) {
	f, err := os.Open(filepath.Join(dir, "direct_url.json"))
	if err != nil {
		return nil, err
	}

	defer f.Close()

	var wire data.DirectURL

	err = json.NewDecoder(f).Decode(&wire)
	if err != nil {
		return nil, err
	}

	if wire.URL == "" {
		return nil, errors.Wrapf(ErrMalformed, "direct_url.json without url in %s", dir)
	}

	durl := &DirectURL{
		URL: StripUserInfo(wire.URL),
	}

	if wire.VCSInfo != nil {
		durl.VCS = wire.VCSInfo.VCS
		durl.CommitID = wire.VCSInfo.CommitID
		durl.RequestedRevision = wire.VCSInfo.RequestedRevision
	}

	return durl, nil
}
