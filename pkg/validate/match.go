package validate

import (
	"sort"
	"strings"

	"lab47.dev/sitevet/pkg/depspec"
	"lab47.dev/sitevet/pkg/pymeta"
	"lab47.dev/sitevet/pkg/scan"
)

// Pair is one candidate identity match: a normalized key and
// whichever sides carry it. Either side may be nil, never both.
type Pair struct {
	Key     string
	Package *pymeta.Package
	Spec    *depspec.DepSpec
}

// Match lines the two sets up by normalized key. When a key is
// installed in more than one site, the record that satisfies the spec
// is preferred, then the highest version, then the lexically first
// site, so the choice never depends on scan order.
func Match(pkgs *scan.PackageSet, specs *depspec.Set) []Pair {
	keys := make(map[string]struct{})

	for _, k := range pkgs.Keys() {
		keys[k] = struct{}{}
	}

	for _, k := range specs.Keys() {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}

	sort.Strings(sorted)

	out := make([]Pair, 0, len(sorted))

	for _, key := range sorted {
		spec := specs.Get(key)

		out = append(out, Pair{
			Key:     key,
			Package: pick(pkgs.Get(key), spec),
			Spec:    spec,
		})
	}

	return out
}

func pick(cands []*pymeta.Package, spec *depspec.DepSpec) *pymeta.Package {
	if len(cands) == 0 {
		return nil
	}

	if spec != nil {
		for _, p := range cands {
			if ok, err := spec.SatisfiedBy(p.Version); err == nil && ok {
				return p
			}
		}
	}

	best := cands[0]

	for _, p := range cands[1:] {
		if p.Version.Compare(best.Version) > 0 {
			best = p
		}
	}

	return best
}

// urlEqual compares provenance references. Credentials were removed
// when each side was read, so a difference can't come from them; the
// vcs+ prefix and a trailing .git are presentation, not identity.
func urlEqual(a, b string) bool {
	return canonURL(a) == canonURL(b)
}

func canonURL(u string) string {
	u = pymeta.StripUserInfo(u)

	if i := strings.Index(u, "+"); i != -1 && i < strings.Index(u, "://") {
		u = u[i+1:]
	}

	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, ".git")

	return strings.ToLower(u)
}

// revisionEqual applies the compatibility rule for pinned references:
// the requested revisions match, or the resolved commits match. A
// spec pinned to a branch matches an install resolved to that
// branch's commit.
func revisionEqual(p *pymeta.DirectURL, s *depspec.DepSpec) bool {
	if s.RequestedRevision == "" && s.CommitID == "" {
		return true
	}

	if p.RequestedRevision != "" && p.RequestedRevision == s.RequestedRevision {
		return true
	}

	if p.CommitID != "" && p.CommitID == s.CommitID {
		return true
	}

	// a branch pin resolves to a commit on install; accept the
	// literal revision naming that commit
	if p.CommitID != "" && p.CommitID == s.RequestedRevision {
		return true
	}

	if p.RequestedRevision != "" && p.RequestedRevision == s.CommitID {
		return true
	}

	return false
}
