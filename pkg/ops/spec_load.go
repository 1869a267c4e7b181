package ops

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"lab47.dev/sitevet/pkg/depspec"
	"lab47.dev/sitevet/pkg/manifest"
	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/project"
)

// SpecLoad flattens requirement manifests into one spec set.
type SpecLoad struct {
	common

	Paths        *pathintern.Table
	SkipBadLines bool
	FetchTimeout time.Duration
}

func (s *SpecLoad) table() *pathintern.Table {
	if s.Paths == nil {
		s.Paths = pathintern.NewTable()
	}

	return s.Paths
}

// Load reads the given manifests in order into a single set, later
// files overriding earlier ones. With no files given, the enclosing
// project's manifests are used.
func (s *SpecLoad) Load(ctx context.Context, files []string) (*depspec.Set, error) {
	if len(files) == 0 {
		info, err := project.Detect(".")
		if err != nil {
			return nil, track(err)
		}

		if len(info.Manifests) == 0 {
			return nil, errors.Errorf("no requirement manifests found under %s", info.Root)
		}

		s.L().Debug("using project manifests", "origin", info.Origin, "count", len(info.Manifests))

		files = info.Manifests
	}

	loader := manifest.NewLoader(s.table())
	loader.SkipBadLines = s.SkipBadLines
	loader.Fetcher = &manifest.GetterFetcher{Timeout: s.FetchTimeout}

	merged := depspec.NewSet()

	for _, file := range files {
		set, warnings, err := loader.Load(ctx, file)
		if err != nil {
			return nil, track(err)
		}

		for _, w := range warnings {
			s.L().Warn("skipped manifest line", "file", w.File, "error", w.Err)
		}

		for _, d := range set.Items() {
			merged.Add(d)
		}
	}

	return merged, nil
}
