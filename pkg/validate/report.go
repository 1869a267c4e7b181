package validate

import (
	"sort"

	"lab47.dev/sitevet/pkg/depspec"
	"lab47.dev/sitevet/pkg/pymeta"
)

// Record is one row of a report. Package or Spec may be nil according
// to the explain code; Detail carries the human fragment of the
// reason.
type Record struct {
	Key     string
	Package *pymeta.Package
	Spec    *depspec.DepSpec
	Explain Explain
	Detail  string
}

// Report is the ordered outcome of one validation. Records are sorted
// by key, ties broken with error codes first, so two runs over the
// same inputs render identically.
type Report struct {
	Mode    Mode
	Records []Record
}

// Config is the policy a Validator applies.
type Config struct {
	Mode       Mode
	Strictness Strictness
}

// Validate applies the policy over matched pairs. It always completes
// and always returns a report; anomalies are explain codes, never
// errors.
func (c Config) Validate(pairs []Pair) *Report {
	rep := &Report{Mode: c.Mode}

	for _, pair := range pairs {
		rec, ok := c.classify(pair)
		if ok {
			rep.Records = append(rep.Records, rec)
		}
	}

	sort.SliceStable(rep.Records, func(i, j int) bool {
		a, b := rep.Records[i], rep.Records[j]

		if a.Key != b.Key {
			return a.Key < b.Key
		}

		return a.Explain.severity() < b.Explain.severity()
	})

	return rep
}

func (c Config) classify(pair Pair) (Record, bool) {
	rec := Record{
		Key:     pair.Key,
		Package: pair.Package,
		Spec:    pair.Spec,
	}

	switch {
	case pair.Spec == nil:
		if c.Mode == Subset {
			// installed but undeclared, subset permits it
			return Record{}, false
		}

		rec.Explain = Unexpected
		rec.Detail = "no spec permits this package"

		return rec, true

	case pair.Package == nil:
		if c.Mode == Superset {
			// declared but not installed, nothing to permit
			return Record{}, false
		}

		rec.Explain = Missing
		rec.Detail = "required but not installed"

		return rec, true
	}

	// both sides present. url identity is the more specific check,
	// so it goes first: a wrong origin is a wrong origin even when
	// the version numbers line up.
	if c.Strictness == VersionAndURL && pair.Spec.URL != "" {
		if pair.Package.DirectURL == nil {
			rec.Explain = URLMismatch
			rec.Detail = "spec requires " + pair.Spec.URL + ", package has no recorded origin"

			return rec, true
		}

		durl := pair.Package.DirectURL

		if !urlEqual(durl.Origin(), pair.Spec.URL) && !urlEqual(durl.URL, pair.Spec.URL) {
			rec.Explain = URLMismatch
			rec.Detail = "installed from " + durl.Origin()

			return rec, true
		}

		if !revisionEqual(durl, pair.Spec) {
			rec.Explain = URLMismatch
			rec.Detail = "revision differs: installed " + revisionOf(durl)

			return rec, true
		}
	}

	ok, err := pair.Spec.SatisfiedBy(pair.Package.Version)

	switch {
	case err != nil:
		// a constraint that cannot be evaluated is reported, never
		// guessed at and never a hard failure
		rec.Explain = Unevaluable
		rec.Detail = err.Error()
	case !ok:
		rec.Explain = VersionMismatch
		rec.Detail = "installed " + pair.Package.Version.String() + ", requires " + constraintText(pair.Spec)
	default:
		rec.Explain = Satisfied
	}

	return rec, true
}

func revisionOf(d *pymeta.DirectURL) string {
	if d.RequestedRevision != "" {
		return d.RequestedRevision
	}

	if d.CommitID != "" {
		return d.CommitID
	}

	return "(none)"
}

func constraintText(d *depspec.DepSpec) string {
	if len(d.Constraints) == 0 {
		return "(any)"
	}

	var out string

	for i, con := range d.Constraints {
		if i > 0 {
			out += ","
		}

		out += con.String()
	}

	return out
}

// Errors counts the error-class records.
func (r *Report) Errors() int {
	var n int

	for _, rec := range r.Records {
		if rec.Explain.IsError() {
			n++
		}
	}

	return n
}

func (r *Report) Clean() bool {
	return r.Errors() == 0
}
