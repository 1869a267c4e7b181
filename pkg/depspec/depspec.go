package depspec

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/pymeta"
	"lab47.dev/sitevet/pkg/pyver"
)

type Op int

const (
	OpNone Op = iota
	OpEqual
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpCompatible
	OpExact
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	case OpCompatible:
		return "~="
	case OpExact:
		return "==="
	default:
		return ""
	}
}

type Constraint struct {
	Op      Op
	Version pyver.Version
}

func (c Constraint) String() string {
	return c.Op.String() + c.Version.String()
}

var ErrUnevaluable = errors.New("constraint cannot be evaluated")

// eval applies one constraint to an installed version. Ordering
// operators cannot be applied to wildcard or empty pins; those surface
// as ErrUnevaluable so validation can report them without guessing.
func (c Constraint) eval(v pyver.Version) (bool, error) {
	if c.Version.Empty() {
		return false, errors.Wrapf(ErrUnevaluable, "empty version in %q", c.String())
	}

	switch c.Op {
	case OpEqual:
		return c.Version.Equal(v), nil
	case OpNotEqual:
		return !c.Version.Equal(v), nil
	case OpExact:
		return c.Version.String() == v.String(), nil
	}

	if strings.Contains(c.Version.String(), "*") {
		return false, errors.Wrapf(ErrUnevaluable, "wildcard with ordering operator in %q", c.String())
	}

	switch c.Op {
	case OpLess:
		return v.Compare(c.Version) < 0, nil
	case OpLessOrEqual:
		return v.Compare(c.Version) <= 0, nil
	case OpGreater:
		return v.Compare(c.Version) > 0, nil
	case OpGreaterOrEqual:
		return v.Compare(c.Version) >= 0, nil
	case OpCompatible:
		return pyver.CompatibleRelease(v, c.Version), nil
	}

	return false, errors.Wrapf(ErrUnevaluable, "unknown operator in %q", c.String())
}

// DepSpec is one declared requirement. URL and revision fields are
// stored with credentials already removed; the raw input line is not
// retained.
type DepSpec struct {
	Name   string
	Extras []string

	Constraints []Constraint

	// URL is the full reference without its revision suffix,
	// including any vcs+ prefix.
	URL               string
	RequestedRevision string
	CommitID          string

	// Markers holds the environment marker text verbatim. It is
	// never evaluated here.
	Markers string

	SourceFile *pathintern.Path
}

func (d *DepSpec) Key() string {
	return pymeta.Key(d.Name)
}

func (d *DepSpec) String() string {
	var sb strings.Builder

	sb.WriteString(d.Name)

	if len(d.Extras) > 0 {
		sb.WriteString("[")
		sb.WriteString(strings.Join(d.Extras, ","))
		sb.WriteString("]")
	}

	if d.URL != "" {
		sb.WriteString(" @ ")
		sb.WriteString(d.URL)

		switch {
		case d.RequestedRevision != "":
			sb.WriteString("@")
			sb.WriteString(d.RequestedRevision)
		case d.CommitID != "":
			sb.WriteString("@")
			sb.WriteString(d.CommitID)
		}

		return sb.String()
	}

	for i, c := range d.Constraints {
		if i > 0 {
			sb.WriteString(",")
		}

		sb.WriteString(c.String())
	}

	return sb.String()
}

// SatisfiedBy reports whether an installed version meets every
// constraint. No constraints means unconstrained.
func (d *DepSpec) SatisfiedBy(v pyver.Version) (bool, error) {
	for _, c := range d.Constraints {
		ok, err := c.eval(v)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// Set is an ordered, deduplicated collection of specs keyed by
// normalized name. A later Add for the same key wins and takes the
// later position, matching requirement file override convention.
type Set struct {
	order []*DepSpec
	byKey map[string]*DepSpec
}

func NewSet() *Set {
	return &Set{
		byKey: make(map[string]*DepSpec),
	}
}

func (s *Set) Add(d *DepSpec) {
	key := d.Key()

	if _, ok := s.byKey[key]; ok {
		for i, prev := range s.order {
			if prev.Key() == key {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}

	s.byKey[key] = d
	s.order = append(s.order, d)
}

func (s *Set) Get(key string) *DepSpec {
	return s.byKey[key]
}

func (s *Set) Len() int {
	return len(s.order)
}

// Items returns specs in insertion order.
func (s *Set) Items() []*DepSpec {
	out := make([]*DepSpec, len(s.order))
	copy(out, s.order)

	return out
}

// Sorted returns specs in normalized key order, the order every
// comparison and digest uses.
func (s *Set) Sorted() []*DepSpec {
	out := s.Items()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})

	return out
}

func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.byKey))

	for k := range s.byKey {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
