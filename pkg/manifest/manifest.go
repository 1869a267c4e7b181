package manifest

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"lab47.dev/sitevet/pkg/depspec"
	"lab47.dev/sitevet/pkg/pathintern"
)

// CycleError reports a requirement file that eventually includes
// itself. Chain is the include path in order, ending at the repeat.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "cyclic include: " + strings.Join(e.Chain, " -> ")
}

// Warning is a non-fatal problem while loading, a skipped bad line
// for the most part.
type Warning struct {
	File string
	Err  error
}

func (w Warning) String() string {
	return w.File + ": " + w.Err.Error()
}

// Loader flattens one root requirement manifest, following nested
// includes, into a single spec set. Cycle detection runs over an
// explicit chain of canonical file identities, so a loop is a
// reported error rather than a blown stack.
type Loader struct {
	Paths   *pathintern.Table
	Fetcher Fetcher

	// SkipBadLines turns malformed lines into warnings instead of
	// failing the file that holds them.
	SkipBadLines bool
}

func NewLoader(tbl *pathintern.Table) *Loader {
	if tbl == nil {
		tbl = pathintern.NewTable()
	}

	return &Loader{
		Paths:   tbl,
		Fetcher: &GetterFetcher{},
	}
}

// Load resolves root and everything it includes into one flattened
// set. A later spec for the same normalized name overrides an
// earlier one, including across files, matching requirement file
// convention. Loading the same tree twice yields identical content.
func (l *Loader) Load(ctx context.Context, root string) (*depspec.Set, []Warning, error) {
	set := depspec.NewSet()

	var warnings []Warning

	err := l.load(ctx, root, "", nil, set, &warnings)
	if err != nil {
		return nil, warnings, err
	}

	return set, warnings, nil
}

func (l *Loader) load(
	ctx context.Context, ref, from string, chain []string,
	set *depspec.Set, warnings *[]Warning,
) error {
	ident, err := l.resolve(ref, from)
	if err != nil {
		return err
	}

	for _, seen := range chain {
		if seen == ident {
			return &CycleError{Chain: append(chain, ident)}
		}
	}

	chain = append(chain, ident)

	text, err := l.read(ctx, ident)
	if err != nil {
		return errors.Wrapf(err, "loading %s", ident)
	}

	src := l.Paths.Intern(ident)

	items, errs := l.parse(ident, text)

	for _, le := range errs {
		if !l.SkipBadLines {
			return errors.Wrapf(le, "in %s", ident)
		}

		*warnings = append(*warnings, Warning{File: ident, Err: le})
	}

	for _, item := range items {
		if item.Include != nil {
			err = l.load(ctx, item.Include.Ref, ident, chain, set, warnings)
			if err != nil {
				return err
			}

			continue
		}

		item.Spec.SourceFile = src
		set.Add(item.Spec)
	}

	return nil
}

func (l *Loader) parse(ident, text string) ([]depspec.Item, []*depspec.LineError) {
	if filepath.Base(ident) == "pyproject.toml" {
		return parsePyproject(text)
	}

	return depspec.ParseText(text)
}

func remote(ref string) bool {
	return strings.Contains(ref, "://")
}

// resolve turns an include reference into a canonical identity:
// the URL itself for remote refs, an absolute cleaned path for local
// ones, relative references anchored at the including file.
func (l *Loader) resolve(ref, from string) (string, error) {
	if remote(ref) {
		return ref, nil
	}

	if remote(from) {
		return "", errors.Errorf("remote manifest %s may not include local file %s", from, ref)
	}

	if !filepath.IsAbs(ref) && from != "" {
		ref = filepath.Join(filepath.Dir(from), ref)
	}

	abs, err := filepath.Abs(ref)
	if err != nil {
		return "", err
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	return abs, nil
}

func (l *Loader) read(ctx context.Context, ident string) (string, error) {
	if remote(ident) {
		fetcher := l.Fetcher
		if fetcher == nil {
			return "", errors.Errorf("no fetcher configured for remote manifest %s", ident)
		}

		data, err := fetcher.Fetch(ctx, ident)
		if err != nil {
			return "", err
		}

		return string(data), nil
	}

	f, err := os.Open(ident)
	if err != nil {
		return "", err
	}

	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
