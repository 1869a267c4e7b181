package ops

import (
	"context"
	"os"

	"lab47.dev/sitevet/pkg/config"
	"lab47.dev/sitevet/pkg/digestfile"
	"lab47.dev/sitevet/pkg/lockfile"
	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/validate"
)

// ReportValidate runs the whole pipeline: scan, load, match,
// validate.
type ReportValidate struct {
	common

	Mode         validate.Mode
	Strictness   validate.Strictness
	SkipBadLines bool
}

// Validate compares the installed set under sites against the given
// manifests and returns the report. Validation itself never fails;
// errors here are scan or load failures.
func (r *ReportValidate) Validate(
	ctx context.Context, cfg *config.Config, sites, bounds []string,
) (*validate.Report, error) {
	paths := pathintern.NewTable()

	var ss SiteScan
	ss.SetLogger(r.L())
	ss.Paths = paths

	pkgs, _, err := ss.Scan(ctx, cfg, sites)
	if err != nil {
		return nil, err
	}

	var sl SpecLoad
	sl.SetLogger(r.L())
	sl.Paths = paths
	sl.SkipBadLines = r.SkipBadLines

	specs, err := sl.Load(ctx, bounds)
	if err != nil {
		return nil, err
	}

	vc := validate.Config{Mode: r.Mode, Strictness: r.Strictness}

	rep := vc.Validate(validate.Match(pkgs, specs))

	r.L().Debug("validation complete",
		"mode", r.Mode, "records", len(rep.Records), "errors", rep.Errors())

	return rep, nil
}

// RecordDigest stores the report's fingerprint under a label in the
// shared digest file. The data dir lock serializes writers.
func (r *ReportValidate) RecordDigest(
	ctx context.Context, cfg *config.Config, label string, rep *validate.Report,
) error {
	cleanup, err := lockfile.Take(ctx, cfg.LockPath(), nil)
	if err != nil {
		return track(err)
	}

	defer cleanup()

	var df digestfile.File

	f, err := os.Open(cfg.DigestFilePath())
	if err == nil {
		err = df.Load(f)

		f.Close()

		if err != nil {
			return track(err)
		}
	}

	err = df.Record(label, rep.Digest())
	if err != nil {
		return track(err)
	}

	out, err := os.Create(cfg.DigestFilePath())
	if err != nil {
		return track(err)
	}

	defer out.Close()

	return track(df.Save(out))
}

// VerifyDigest reports whether the label was recorded with exactly
// this report's fingerprint.
func (r *ReportValidate) VerifyDigest(
	cfg *config.Config, label string, rep *validate.Report,
) (bool, error) {
	f, err := os.Open(cfg.DigestFilePath())
	if err != nil {
		return false, track(err)
	}

	defer f.Close()

	var df digestfile.File

	err = df.Load(f)
	if err != nil {
		return false, track(err)
	}

	return df.Verify(label, rep.Digest()), nil
}
