package pymeta

import (
	"strings"

	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/pyver"
)

// Format identifies which on-disk metadata layout a package record was
// read from. When one install is described by more than one layout,
// the scanner keeps the more specific format.
type Format int

const (
	FormatUnknown Format = iota
	FormatEggInfo
	FormatDistInfo
)

func (f Format) String() string {
	switch f {
	case FormatDistInfo:
		return "dist-info"
	case FormatEggInfo:
		return "egg-info"
	default:
		return "unknown"
	}
}

// Package is one discovered installation unit. Values are immutable
// once the reader returns them; sets hold shared references.
type Package struct {
	// Name keeps the casing found on disk for display. Use Key for
	// any comparison.
	Name    string
	Version pyver.Version

	// Location is the metadata directory the record was read from,
	// Site the environment root containing it.
	Location *pathintern.Path
	Site     *pathintern.Path

	Format    Format
	DirectURL *DirectURL
}

func (p *Package) Key() string {
	return Key(p.Name)
}

func (p *Package) String() string {
	if p.Version.Empty() {
		return p.Name
	}

	return p.Name + "-" + p.Version.String()
}

// DirectURL is normalized provenance for a package installed from a
// VCS or direct reference. URL never carries user-info; it is removed
// before the value is built.
type DirectURL struct {
	URL               string
	VCS               string
	CommitID          string
	RequestedRevision string
}

// Origin renders the reference form a requirement file would use to
// name this install: vcs+url@revision, preferring the requested
// revision over the resolved commit.
func (d *DirectURL) Origin() string {
	if d.VCS == "" {
		return d.URL
	}

	target := d.RequestedRevision
	if target == "" {
		target = d.CommitID
	}

	if target == "" {
		return d.VCS + "+" + d.URL
	}

	return d.VCS + "+" + d.URL + "@" + target
}

// Key normalizes a package name for comparison: lower case, with "-"
// and "_" treated as the same separator.
func Key(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

// StripUserInfo removes credentials embedded in a URL authority, along
// with the "@" that carried them. Anything else passes through
// untouched. Stripped values never come back.
func StripUserInfo(url string) string {
	pos := strings.Index(url, "://")
	if pos == -1 {
		return url
	}

	start := pos + 3

	span := strings.IndexByte(url[start:], '@')
	if span == -1 {
		return url
	}

	end := start + span

	if strings.IndexByte(url[start:end], '/') != -1 {
		return url
	}

	return url[:start] + url[end+1:]
}
