package scan

import (
	"path"
	"strings"

	"lab47.dev/sitevet/pkg/pymeta"
)

// Query is a wildcard search over a PackageSet. Patterns use * and ?
// glob semantics. By default matching runs over normalized names, so
// case and the -/_ distinction disappear; CaseSensitive matches the
// display name instead. MatchPath additionally accepts packages whose
// metadata path matches the pattern.
type Query struct {
	Pattern       string
	CaseSensitive bool
	MatchPath     bool
}

// Select returns matching packages in normalized key order, ties by
// site. The same query over the same set always yields the same
// sequence.
func (q Query) Select(set *PackageSet) []*pymeta.Package {
	pat := q.Pattern
	if pat == "" {
		pat = "*"
	}

	if !q.CaseSensitive {
		pat = pymeta.Key(pat)
	}

	var out []*pymeta.Package

	for _, p := range set.Sorted() {
		name := p.Key()
		if q.CaseSensitive {
			name = p.Name
		}

		if ok, err := path.Match(pat, name); err == nil && ok {
			out = append(out, p)
			continue
		}

		if q.MatchPath && pathMatches(pat, p.Location.String()) {
			out = append(out, p)
		}
	}

	return out
}

// pathMatches applies the pattern to the full path and to each
// segment, so "num*" finds a package by its directory name too.
func pathMatches(pat, loc string) bool {
	if ok, err := path.Match(pat, loc); err == nil && ok {
		return true
	}

	for _, seg := range strings.Split(loc, "/") {
		if ok, err := path.Match(pat, seg); err == nil && ok {
			return true
		}
	}

	return false
}
