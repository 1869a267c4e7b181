package pyver

import (
	"strconv"
	"strings"
)

// Version is a loosely parsed package version: dot separated parts,
// each either numeric or text. A "*" part compares equal to anything.
// Numeric parts order above text parts, which keeps final releases
// above pre-release suffixes without a full grammar for them.
type Version struct {
	raw   string
	parts []part
}

type part struct {
	num    uint64
	text   string
	number bool
}

var zeroPart = part{number: true}

// Parse never fails. Unparseable segments are retained as text and
// compared lexically.
func Parse(s string) Version {
	s = strings.TrimSpace(s)

	var parts []part

	for _, seg := range strings.Split(s, ".") {
		if n, err := strconv.ParseUint(seg, 10, 32); err == nil {
			parts = append(parts, part{num: n, number: true})
		} else {
			parts = append(parts, part{text: seg})
		}
	}

	return Version{raw: s, parts: parts}
}

func (v Version) String() string {
	return v.raw
}

func (v Version) Empty() bool {
	return v.raw == ""
}

func (v Version) Segments() int {
	return len(v.parts)
}

// Compare orders by the shared prefix of parts, then by part count.
// Note that Compare and Equal disagree about trailing zeros: "1.0"
// equals "1.0.0" but sorts below it, matching how pins are checked
// versus how discovered versions are ordered.
func (v Version) Compare(o Version) int {
	n := len(v.parts)
	if len(o.parts) < n {
		n = len(o.parts)
	}

	for i := 0; i < n; i++ {
		if c := comparePart(v.parts[i], o.parts[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(v.parts) < len(o.parts):
		return -1
	case len(v.parts) > len(o.parts):
		return 1
	}

	return 0
}

// Equal zero pads the shorter version, so "2.2" equals "2.2.0".
func (v Version) Equal(o Version) bool {
	n := len(v.parts)
	if len(o.parts) > n {
		n = len(o.parts)
	}

	for i := 0; i < n; i++ {
		a, b := zeroPart, zeroPart

		if i < len(v.parts) {
			a = v.parts[i]
		}

		if i < len(o.parts) {
			b = o.parts[i]
		}

		if !a.number && a.text == "*" {
			continue
		}

		if !b.number && b.text == "*" {
			continue
		}

		if a.number != b.number {
			return false
		}

		if a.number {
			if a.num != b.num {
				return false
			}
		} else if a.text != b.text {
			return false
		}
	}

	return true
}

func (v Version) MajorCompatible(o Version) bool {
	if len(v.parts) == 0 || len(o.parts) == 0 {
		return false
	}

	a, b := v.parts[0], o.parts[0]

	return a.number && b.number && a.num == b.num
}

// CompatibleRelease reports whether have satisfies a compatible
// release pin on want: at least want, and equal to want with its last
// part treated as a wildcard.
func CompatibleRelease(have, want Version) bool {
	if have.Compare(want) < 0 {
		return false
	}

	if len(want.parts) < 2 {
		return have.MajorCompatible(want)
	}

	trunc := Version{
		parts: append(
			append([]part{}, want.parts[:len(want.parts)-1]...),
			part{text: "*"},
		),
	}

	return have.Equal(trunc)
}

func comparePart(a, b part) int {
	switch {
	case a.number && b.number:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}

		return 0
	case !a.number && !b.number:
		if a.text == "*" || b.text == "*" {
			return 0
		}

		return strings.Compare(a.text, b.text)
	case a.number:
		// numbers order above text
		if b.text == "*" {
			return 0
		}

		return 1
	default:
		if a.text == "*" {
			return 0
		}

		return -1
	}
}
