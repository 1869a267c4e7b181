package depspec

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"lab47.dev/sitevet/pkg/pymeta"
)

// Anchor selects the operator used when deriving requirements from
// discovered packages.
type Anchor int

const (
	AnchorExact Anchor = iota
	AnchorLower
	AnchorUpper
)

func (a Anchor) String() string {
	switch a {
	case AnchorLower:
		return "lower"
	case AnchorUpper:
		return "upper"
	default:
		return "exact"
	}
}

func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToLower(s) {
	case "exact", "":
		return AnchorExact, nil
	case "lower":
		return AnchorLower, nil
	case "upper":
		return AnchorUpper, nil
	}

	return AnchorExact, errors.Errorf("unknown anchor %q", s)
}

// FromPackages derives one spec per normalized name. With multiple
// installed versions of a name, Lower anchors the minimum and Upper
// the maximum; Exact refuses the ambiguity. A package installed from
// a direct reference derives as its reference instead of a version
// pin.
func FromPackages(pkgs []*pymeta.Package, anchor Anchor) (*Set, error) {
	byKey := make(map[string][]*pymeta.Package)

	for _, p := range pkgs {
		byKey[p.Key()] = append(byKey[p.Key()], p)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	set := NewSet()

	for _, key := range keys {
		group := byKey[key]

		sort.Slice(group, func(i, j int) bool {
			return group[i].Version.Compare(group[j].Version) < 0
		})

		var pick *pymeta.Package

		switch anchor {
		case AnchorLower:
			pick = group[0]
		case AnchorUpper:
			pick = group[len(group)-1]
		default:
			pick = group[0]

			last := group[len(group)-1]
			if pick.Version.Compare(last.Version) != 0 {
				return nil, errors.Errorf(
					"package %s has multiple versions (%s, %s); exact derivation needs one",
					pick.Name, pick.Version, last.Version,
				)
			}
		}

		spec := &DepSpec{Name: pick.Name}

		if durl := pick.DirectURL; durl != nil {
			spec.URL = durl.URL
			if durl.VCS != "" {
				spec.URL = durl.VCS + "+" + durl.URL
			}

			spec.RequestedRevision = durl.RequestedRevision
			spec.CommitID = durl.CommitID
		} else if !pick.Version.Empty() {
			op := OpEqual

			switch anchor {
			case AnchorLower:
				op = OpGreaterOrEqual
			case AnchorUpper:
				op = OpLessOrEqual
			}

			spec.Constraints = []Constraint{{Op: op, Version: pick.Version}}
		}

		set.Add(spec)
	}

	return set, nil
}
