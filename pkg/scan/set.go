package scan

import (
	"sort"

	"lab47.dev/sitevet/pkg/pymeta"
)

type siteKey struct {
	key  string
	site string
}

// PackageSet holds discovered packages, deduplicated so one
// (normalized name, site) pair maps to exactly one record. Insertion
// order is kept for display; comparison and digesting go through
// Sorted.
type PackageSet struct {
	order []*pymeta.Package
	dedup map[siteKey]int
}

func NewPackageSet() *PackageSet {
	return &PackageSet{
		dedup: make(map[siteKey]int),
	}
}

// Add merges one record in. When the same install is described twice,
// the more specific metadata format wins: dist-info over egg-info,
// then the lexically later metadata directory name. The rule only
// looks at the two records, so merge order can't change the outcome.
func (s *PackageSet) Add(p *pymeta.Package) {
	sk := siteKey{key: p.Key(), site: p.Site.String()}

	idx, ok := s.dedup[sk]
	if !ok {
		s.dedup[sk] = len(s.order)
		s.order = append(s.order, p)

		return
	}

	if wins(p, s.order[idx]) {
		s.order[idx] = p
	}
}

func wins(n, prev *pymeta.Package) bool {
	if n.Format != prev.Format {
		return n.Format > prev.Format
	}

	return n.Location.Base() > prev.Location.Base()
}

func (s *PackageSet) Len() int {
	return len(s.order)
}

// Items returns packages in insertion order.
func (s *PackageSet) Items() []*pymeta.Package {
	out := make([]*pymeta.Package, len(s.order))
	copy(out, s.order)

	return out
}

// Sorted returns packages ordered by normalized key, ties by site
// path. Every comparison path uses this order.
func (s *PackageSet) Sorted() []*pymeta.Package {
	out := s.Items()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Key() != out[j].Key() {
			return out[i].Key() < out[j].Key()
		}

		return out[i].Site.String() < out[j].Site.String()
	})

	return out
}

// Get returns every record for a normalized key, across sites, in
// site order.
func (s *PackageSet) Get(key string) []*pymeta.Package {
	var out []*pymeta.Package

	for _, p := range s.Sorted() {
		if p.Key() == key {
			out = append(out, p)
		}
	}

	return out
}

func (s *PackageSet) Keys() []string {
	seen := make(map[string]struct{})

	var keys []string

	for _, p := range s.order {
		if _, ok := seen[p.Key()]; ok {
			continue
		}

		seen[p.Key()] = struct{}{}
		keys = append(keys, p.Key())
	}

	sort.Strings(keys)

	return keys
}

// SiteCount is one row of the per-site tally.
type SiteCount struct {
	Site     string
	Packages int
}

// Counts tallies records per site, ordered by site path.
func (s *PackageSet) Counts() []SiteCount {
	tally := make(map[string]int)

	for _, p := range s.order {
		tally[p.Site.String()]++
	}

	sites := make([]string, 0, len(tally))
	for site := range tally {
		sites = append(sites, site)
	}

	sort.Strings(sites)

	out := make([]SiteCount, 0, len(sites))

	for _, site := range sites {
		out = append(out, SiteCount{Site: site, Packages: tally[site]})
	}

	return out
}
