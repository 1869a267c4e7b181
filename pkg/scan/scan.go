package scan

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/pymeta"
)

var ErrNoRoots = errors.New("no readable site directories")

// Warning is a non-fatal problem encountered during a scan. The scan
// keeps going; the caller decides what to show.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return w.Path + ": " + w.Err.Error()
}

// Scanner walks site directories and reads their metadata entries in
// parallel. Only the merge after the workers finish touches shared
// state, so the resulting set is identical regardless of scheduling.
type Scanner struct {
	Paths   *pathintern.Table
	Workers int

	// Tick, when set, is called once per metadata directory read.
	// Workers call it concurrently.
	Tick func()

	reader *pymeta.Reader
}

func NewScanner(tbl *pathintern.Table, workers int) *Scanner {
	if tbl == nil {
		tbl = pathintern.NewTable()
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Scanner{
		Paths:   tbl,
		Workers: workers,
		reader:  pymeta.NewReader(tbl),
	}
}

type candidate struct {
	site string
	dir  string
}

// Scan discovers every package under the given site roots. Unreadable
// roots and malformed records come back as warnings; only zero
// readable roots is fatal. Cancellation discards everything, a caller
// never sees a partially merged set.
func (s *Scanner) Scan(ctx context.Context, roots []string) (*PackageSet, []Warning, error) {
	var (
		cands    []candidate
		warnings []Warning
		readable int
	)

	for _, root := range roots {
		found, err := listMetaDirs(root)
		if err != nil {
			warnings = append(warnings, Warning{Path: root, Err: err})
			continue
		}

		readable++

		for _, dir := range found {
			cands = append(cands, candidate{site: root, dir: dir})
		}
	}

	if readable == 0 {
		return nil, warnings, errors.Wrapf(ErrNoRoots, "%d roots given", len(roots))
	}

	type result struct {
		pkg *pymeta.Package
		c   candidate
		err error
	}

	jobs := make(chan candidate)
	res := make(chan result, len(cands))

	var wg sync.WaitGroup

	workers := s.Workers
	if workers > len(cands) {
		workers = len(cands)
	}

	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			for c := range jobs {
				pkg, err := s.reader.ReadDir(c.site, c.dir)

				if s.Tick != nil {
					s.Tick()
				}

				res <- result{pkg: pkg, c: c, err: err}
			}
		}()
	}

	var cancelled bool

feed:
	for _, c := range cands {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		select {
		case jobs <- c:
			// handed off
		case <-ctx.Done():
			cancelled = true
			break feed
		}
	}

	close(jobs)

	wg.Wait()

	close(res)

	if cancelled {
		return nil, nil, ctx.Err()
	}

	var results []result

	for r := range res {
		results = append(results, r)
	}

	// workers finish in whatever order; sort before merging so the
	// warnings and the set come out the same every run
	sort.Slice(results, func(i, j int) bool {
		return results[i].c.dir < results[j].c.dir
	})

	set := NewPackageSet()

	for _, r := range results {
		if r.err != nil {
			warnings = append(warnings, Warning{Path: r.c.dir, Err: r.err})
			continue
		}

		set.Add(r.pkg)
	}

	return set, warnings, nil
}

// listMetaDirs returns the immediate children of root that look like
// package metadata entries.
func listMetaDirs(root string) ([]string, error) {
	f, err := os.Open(root)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	var out []string

	for {
		names, err := f.Readdirnames(50)
		if err != nil {
			if err == io.EOF {
				break
			}

			return nil, err
		}

		for _, n := range names {
			if strings.HasSuffix(n, ".dist-info") || strings.HasSuffix(n, ".egg-info") {
				out = append(out, filepath.Join(root, n))
			}
		}
	}

	return out, nil
}
