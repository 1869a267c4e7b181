package validate

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode selects which side of the comparison must be covered by the
// other.
type Mode int

const (
	// Subset: every declared spec needs an installed package; extra
	// installed packages are fine.
	Subset Mode = iota

	// Superset: every installed package needs a permitting spec;
	// extras are errors.
	Superset
)

func (m Mode) String() string {
	if m == Superset {
		return "superset"
	}

	return "subset"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "subset", "":
		return Subset, nil
	case "superset":
		return Superset, nil
	}

	return Subset, errors.Errorf("unknown validation mode %q", s)
}

// Strictness controls whether provenance URLs participate in the
// comparison or only versions do.
type Strictness int

const (
	VersionOnly Strictness = iota
	VersionAndURL
)

// Explain classifies one validation record.
type Explain int

const (
	Satisfied Explain = iota
	VersionMismatch
	URLMismatch
	Missing
	Unexpected
	Unevaluable
)

func (e Explain) String() string {
	switch e {
	case VersionMismatch:
		return "version-mismatch"
	case URLMismatch:
		return "url-mismatch"
	case Missing:
		return "missing"
	case Unexpected:
		return "unexpected"
	case Unevaluable:
		return "unevaluable"
	default:
		return "satisfied"
	}
}

// IsError reports whether the code counts against the run. Satisfied
// is the only clean code.
func (e Explain) IsError() bool {
	return e != Satisfied
}

// severity orders error codes ahead of satisfied for tie-breaks.
func (e Explain) severity() int {
	if e.IsError() {
		return 0
	}

	return 1
}
