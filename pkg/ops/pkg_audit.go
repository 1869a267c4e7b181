package ops

import (
	"context"

	"lab47.dev/sitevet/pkg/audit"
	"lab47.dev/sitevet/pkg/config"
	"lab47.dev/sitevet/pkg/progress"
	"lab47.dev/sitevet/pkg/scan"
)

// PkgAudit checks the discovered set against the OSV database.
type PkgAudit struct {
	common
}

// Audit queries advisories for every package in the set.
func (a *PkgAudit) Audit(
	ctx context.Context, cfg *config.Config, set *scan.PackageSet,
) ([]audit.Finding, error) {
	checker := audit.NewChecker(nil)

	if cfg.OSVEndpoint != "" {
		checker.Endpoint = cfg.OSVEndpoint
	}

	if cfg.Workers > 0 {
		checker.Workers = cfg.Workers
	}

	pkgs := set.Sorted()

	bar := progress.Count(ctx, int64(len(pkgs)), "audit")
	defer bar.Close()

	findings, err := checker.Check(ctx, pkgs)
	if err != nil {
		return nil, track(err)
	}

	bar.Add(int64(len(pkgs)))

	a.L().Debug("audit complete", "packages", len(pkgs), "findings", len(findings))

	return findings, nil
}
