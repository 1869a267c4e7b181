package ops

import (
	"context"

	"lab47.dev/sitevet/pkg/config"
	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/progress"
	"lab47.dev/sitevet/pkg/scan"
)

// SiteScan discovers the installed package set. Sites may be given
// explicitly; otherwise they come from interpreter discovery.
type SiteScan struct {
	common

	Paths *pathintern.Table
}

func (s *SiteScan) table() *pathintern.Table {
	if s.Paths == nil {
		s.Paths = pathintern.NewTable()
	}

	return s.Paths
}

// Scan walks the given sites, or the machine's resolved ones when
// none are passed. Warnings are logged here once; the set comes back
// for whatever read path needs it.
func (s *SiteScan) Scan(
	ctx context.Context, cfg *config.Config, sites []string,
) (*scan.PackageSet, []scan.Warning, error) {
	if len(sites) == 0 {
		var ed ExeDiscover
		ed.SetLogger(s.L())

		var err error

		sites, err = ed.Sites(ctx, cfg)
		if err != nil {
			return nil, nil, track(err)
		}
	}

	sc := scan.NewScanner(s.table(), cfg.Workers)

	bar := progress.Count(ctx, -1, "scan")
	defer bar.Close()

	sc.Tick = bar.Tick

	set, warnings, err := sc.Scan(ctx, sites)
	if err != nil {
		return nil, warnings, track(err)
	}

	for _, w := range warnings {
		s.L().Warn("skipped during scan", "path", w.Path, "error", w.Err)
	}

	s.L().Debug("scan complete", "sites", len(sites), "packages", set.Len(), "paths-interned", s.table().Len())

	return set, warnings, nil
}
