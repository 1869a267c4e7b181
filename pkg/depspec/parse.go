package depspec

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"lab47.dev/sitevet/pkg/pymeta"
	"lab47.dev/sitevet/pkg/pyver"
)

// Include is a reference to another requirement file found inside a
// file, by relative path, absolute path, or URL.
type Include struct {
	Ref  string
	Line int
}

// Item is one parsed entry of a requirement file: exactly one of Spec
// or Include is set.
type Item struct {
	Spec    *DepSpec
	Include *Include
}

type LineError struct {
	Line   int
	Raw    string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("invalid requirement at line %d: %s (%q)", e.Line, e.Reason, e.Raw)
}

// ParseText parses one requirement file's text. It handles comment
// stripping, continuation lines, extras, version operators, URL
// specifiers, and environment markers. Malformed lines come back as
// LineErrors alongside everything that did parse; the caller picks
// skip or abort.
func ParseText(src string) ([]Item, []*LineError) {
	var (
		items []Item
		errs  []*LineError
	)

	lines := strings.Split(src, "\n")

	for i := 0; i < len(lines); i++ {
		start := i + 1

		line := strings.TrimRight(lines[i], "\r")

		for strings.HasSuffix(line, "\\") && i+1 < len(lines) {
			i++
			line = line[:len(line)-1] + strings.TrimRight(lines[i], "\r")
		}

		line = strings.TrimSpace(stripComment(line))
		if line == "" {
			continue
		}

		item, err := ParseLine(line, start)
		if err != nil {
			if le, ok := err.(*LineError); ok {
				errs = append(errs, le)
			} else {
				errs = append(errs, &LineError{Line: start, Raw: line, Reason: err.Error()})
			}

			continue
		}

		if item != nil {
			items = append(items, *item)
		}
	}

	return items, errs
}

// ParseLine parses one logical line. A nil item with nil error means
// the line held an installer option with no validation meaning.
func ParseLine(line string, num int) (*Item, error) {
	line = strings.TrimSpace(line)

	if strings.HasPrefix(line, "-") {
		return parseOption(line, num)
	}

	spec, err := parseRequirement(line)
	if err != nil {
		return nil, &LineError{Line: num, Raw: line, Reason: err.Error()}
	}

	return &Item{Spec: spec}, nil
}

// comments start the line or follow whitespace; a "#egg=" fragment
// glued to a URL is not a comment
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != '#' {
			continue
		}

		if i == 0 || line[i-1] == ' ' || line[i-1] == '\t' {
			return line[:i]
		}
	}

	return line
}

func parseOption(line string, num int) (*Item, error) {
	name, val := splitOption(line)

	switch name {
	case "-r", "--requirement":
		if val == "" {
			return nil, &LineError{Line: num, Raw: line, Reason: "requirement reference without a target"}
		}

		return &Item{Include: &Include{Ref: val, Line: num}}, nil

	case "-e", "--editable":
		if val == "" {
			return nil, &LineError{Line: num, Raw: line, Reason: "editable without a target"}
		}

		spec, err := parseRequirement(val)
		if err != nil {
			return nil, &LineError{Line: num, Raw: line, Reason: err.Error()}
		}

		return &Item{Spec: spec}, nil

	case "-c", "--constraint",
		"-i", "--index-url", "--extra-index-url",
		"-f", "--find-links", "--trusted-host",
		"--no-index", "--pre", "--no-binary", "--only-binary",
		"--prefer-binary", "--require-hashes", "--use-feature":
		// installer behavior, nothing declared to validate
		return nil, nil
	}

	return nil, &LineError{Line: num, Raw: line, Reason: "unknown option"}
}

func splitOption(line string) (string, string) {
	if i := strings.IndexAny(line, " \t="); i != -1 {
		return line[:i], strings.TrimSpace(line[i+1:])
	}

	return line, ""
}

func parseRequirement(body string) (*DepSpec, error) {
	spec := &DepSpec{}

	if i := markerSplit(body); i != -1 {
		spec.Markers = strings.TrimSpace(body[i+1:])
		body = strings.TrimSpace(body[:i])
	}

	if i := strings.Index(body, " --hash"); i != -1 {
		body = strings.TrimSpace(body[:i])
	}

	if body == "" {
		return nil, errors.New("empty requirement")
	}

	if scheme := strings.Index(body, "://"); scheme != -1 {
		if at := strings.IndexByte(body, '@'); at != -1 && at < scheme {
			namePart := strings.TrimSpace(body[:at])

			name, extras, rest, err := parseNamePart(namePart)
			if err != nil {
				return nil, err
			}

			if rest != "" {
				return nil, errors.Errorf("unexpected %q between name and url", rest)
			}

			spec.Name = name
			spec.Extras = extras

			if err := applyURL(spec, strings.TrimSpace(body[at+1:])); err != nil {
				return nil, err
			}

			return spec, nil
		}

		if err := applyURL(spec, body); err != nil {
			return nil, err
		}

		if spec.Name == "" {
			return nil, errors.New("url requirement without a determinable name")
		}

		return spec, nil
	}

	name, extras, rest, err := parseNamePart(body)
	if err != nil {
		return nil, err
	}

	spec.Name = name
	spec.Extras = extras

	if rest != "" {
		cons, err := parseConstraints(rest)
		if err != nil {
			return nil, err
		}

		spec.Constraints = cons
	}

	return spec, nil
}

// markerSplit finds the ";" that separates a requirement from its
// environment marker. When a URL is present the separator must follow
// whitespace so URL semicolons survive.
func markerSplit(s string) int {
	hasURL := strings.Contains(s, "://")

	for i := 0; i < len(s); i++ {
		if s[i] != ';' {
			continue
		}

		if !hasURL {
			return i
		}

		if i > 0 && (s[i-1] == ' ' || s[i-1] == '\t') {
			return i
		}
	}

	return -1
}

func isNameChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '-' || c == '_':
		return true
	}

	return false
}

func parseNamePart(s string) (string, []string, string, error) {
	i := 0
	for i < len(s) && isNameChar(s[i]) {
		i++
	}

	if i == 0 {
		return "", nil, "", errors.Errorf("no package name in %q", s)
	}

	name := s[:i]
	rest := strings.TrimLeft(s[i:], " \t")

	var extras []string

	if strings.HasPrefix(rest, "[") {
		j := strings.IndexByte(rest, ']')
		if j == -1 {
			return "", nil, "", errors.New("unterminated extras")
		}

		for _, e := range strings.Split(rest[1:j], ",") {
			e = strings.TrimSpace(e)
			if e != "" {
				extras = append(extras, e)
			}
		}

		rest = rest[j+1:]
	}

	return name, extras, strings.TrimSpace(rest), nil
}

func parseConstraints(s string) ([]Constraint, error) {
	s = strings.NewReplacer("(", "", ")", "").Replace(s)

	var out []Constraint

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, errors.New("empty constraint")
		}

		op, rest := parseOp(part)
		if op == OpNone {
			return nil, errors.Errorf("missing comparison operator in %q", part)
		}

		rest = strings.TrimSpace(rest)
		if rest == "" {
			return nil, errors.Errorf("missing version in %q", part)
		}

		if strings.ContainsAny(rest, " \t") {
			return nil, errors.Errorf("malformed version in %q", part)
		}

		out = append(out, Constraint{Op: op, Version: pyver.Parse(rest)})
	}

	return out, nil
}

var opTokens = []struct {
	tok string
	op  Op
}{
	{"===", OpExact},
	{"==", OpEqual},
	{">=", OpGreaterOrEqual},
	{"<=", OpLessOrEqual},
	{"~=", OpCompatible},
	{"!=", OpNotEqual},
	{">", OpGreater},
	{"<", OpLess},
}

func parseOp(s string) (Op, string) {
	for _, cand := range opTokens {
		if strings.HasPrefix(s, cand.tok) {
			return cand.op, s[len(cand.tok):]
		}
	}

	return OpNone, s
}

// applyURL fills the url, revision, and commit fields from a raw
// reference, removing any credentials on the way in.
func applyURL(spec *DepSpec, raw string) error {
	if i := strings.IndexByte(raw, '#'); i != -1 {
		for _, kv := range strings.Split(raw[i+1:], "&") {
			if strings.HasPrefix(kv, "egg=") && spec.Name == "" {
				spec.Name = kv[len("egg="):]
			}
		}

		raw = raw[:i]
	}

	scheme := strings.Index(raw, "://")
	if scheme == -1 {
		return errors.Errorf("not a url: %q", raw)
	}

	rest := raw[scheme+3:]

	if at := strings.LastIndexByte(rest, '@'); at != -1 {
		tail := rest[at+1:]

		if tail != "" && !strings.ContainsRune(tail, '/') && strings.ContainsRune(rest[:at], '/') {
			spec.RequestedRevision = tail

			if isCommitHash(tail) {
				spec.CommitID = tail
			}

			raw = raw[:scheme+3+at]
		}
	}

	spec.URL = pymeta.StripUserInfo(raw)

	return nil
}

func isCommitHash(s string) bool {
	if len(s) != 40 {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}

	return true
}
