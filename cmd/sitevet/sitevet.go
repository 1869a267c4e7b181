package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/pkg/errors"
	"lab47.dev/sitevet/pkg/cmd"
	"lab47.dev/sitevet/pkg/config"
	"lab47.dev/sitevet/pkg/depspec"
	"lab47.dev/sitevet/pkg/humanize"
	"lab47.dev/sitevet/pkg/ops"
	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/pymeta"
	"lab47.dev/sitevet/pkg/render"
	"lab47.dev/sitevet/pkg/scan"
	"lab47.dev/sitevet/pkg/status"
	"lab47.dev/sitevet/pkg/validate"
)

func main() {
	setupLogger()

	c := cli.NewCLI("sitevet", "0.1.0")
	c.Args = os.Args[1:]
	c.Commands = map[string]cli.CommandFactory{
		"scan": func() (cli.Command, error) {
			return cmd.New(
				"scan",
				"discover installed packages across environments",
				scanF,
			), nil
		},
		"search": func() (cli.Command, error) {
			return cmd.New(
				"search",
				"wildcard search over the discovered packages",
				searchF,
			), nil
		},
		"count": func() (cli.Command, error) {
			return cmd.New(
				"count",
				"tally discovered packages per site",
				countF,
			), nil
		},
		"derive": func() (cli.Command, error) {
			return cmd.New(
				"derive",
				"emit a requirements manifest from the discovered packages",
				deriveF,
			), nil
		},
		"validate": func() (cli.Command, error) {
			return cmd.New(
				"validate",
				"validate discovered packages against requirement manifests",
				validateF,
			), nil
		},
		"audit": func() (cli.Command, error) {
			return cmd.New(
				"audit",
				"check discovered packages for known vulnerabilities",
				auditF,
			), nil
		},
		"artifacts": func() (cli.Command, error) {
			return cmd.New(
				"artifacts",
				"list the files recorded for discovered packages",
				artifactsF,
			), nil
		},
		"interpreters": func() (cli.Command, error) {
			return cmd.New(
				"interpreters",
				"list discovered python interpreters",
				interpretersF,
			), nil
		},
		"inspect-meta": func() (cli.Command, error) {
			return cmd.New(
				"inspect-meta",
				"dump the parsed record of one metadata directory",
				inspectMetaF,
			), nil
		},
		"env": func() (cli.Command, error) {
			return cmd.New(
				"env",
				"output the resolved configuration",
				envF,
			), nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}

func setupLogger() {
	level := hclog.Warn

	if lv := os.Getenv("SITEVET_LOG"); lv != "" {
		level = hclog.LevelFromString(lv)
	}

	hclog.SetDefault(hclog.New(&hclog.LoggerOptions{
		Name:   "sitevet",
		Level:  level,
		Output: os.Stderr,
	}))
}

func statusWriter() *status.Writer {
	return &status.Writer{
		Out: os.Stderr,
		TTY: cmd.IsTerminal(os.Stderr.Fd()),
	}
}

// outputOpts is the shared rendering surface of the report-bearing
// commands.
type outputOpts struct {
	JSON      bool   `long:"json" description:"emit one json object per row"`
	Delimited string `long:"delimited" description:"emit rows joined by the given delimiter"`
	Output    string `short:"o" long:"output" description:"write output to the given file instead of stdout"`
}

func (o outputOpts) write(t *render.Table) error {
	out := os.Stdout

	if o.Output != "" {
		f, err := os.Create(o.Output)
		if err != nil {
			return err
		}

		defer f.Close()

		out = f
	}

	switch {
	case o.JSON:
		return t.WriteJSON(out)
	case o.Delimited != "":
		return t.WriteDelimited(out, o.Delimited)
	default:
		return t.WriteTab(out)
	}
}

// scanOpts selects what to scan.
type scanOpts struct {
	Exe   string   `long:"exe" description:"resolve sites from this python executable"`
	Sites []string `short:"s" long:"site" description:"scan this site directory (repeatable)"`
}

func runScan(ctx context.Context, so scanOpts) (*config.Config, *scan.PackageSet, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	if so.Exe != "" {
		cfg.Interpreter = so.Exe
	}

	var ss ops.SiteScan

	set, warnings, err := ss.Scan(ctx, cfg, so.Sites)
	if err != nil {
		return nil, nil, err
	}

	st := statusWriter()

	for _, w := range warnings {
		st.Warn("%s", w)
	}

	return cfg, set, nil
}

func packageTable(pkgs []*pymeta.Package) *render.Table {
	t := &render.Table{Header: []string{"Package", "Version", "Site", "Origin"}}

	for _, p := range pkgs {
		origin := ""
		if p.DirectURL != nil {
			origin = p.DirectURL.Origin()
		}

		t.Add(p.Name, p.Version.String(), p.Site.String(), origin)
	}

	return t
}

func scanF(ctx context.Context, opts struct {
	scanOpts
	outputOpts
}) error {
	_, set, err := runScan(ctx, opts.scanOpts)
	if err != nil {
		return err
	}

	return opts.write(packageTable(set.Sorted()))
}

func searchF(ctx context.Context, opts struct {
	scanOpts
	outputOpts

	Pattern string `short:"p" long:"pattern" description:"wildcard pattern (* and ?)" required:"yes"`
	Case    bool   `long:"case" description:"match the display name case sensitively"`
	Path    bool   `long:"path" description:"match against metadata paths too"`
}) error {
	_, set, err := runScan(ctx, opts.scanOpts)
	if err != nil {
		return err
	}

	q := scan.Query{
		Pattern:       opts.Pattern,
		CaseSensitive: opts.Case,
		MatchPath:     opts.Path,
	}

	return opts.write(packageTable(q.Select(set)))
}

func countF(ctx context.Context, opts struct {
	scanOpts
	outputOpts
}) error {
	_, set, err := runScan(ctx, opts.scanOpts)
	if err != nil {
		return err
	}

	t := &render.Table{Header: []string{"Site", "Packages"}}

	total := 0

	for _, row := range set.Counts() {
		t.Add(row.Site, strconv.Itoa(row.Packages))
		total += row.Packages
	}

	t.Add("total", strconv.Itoa(total))

	return opts.write(t)
}

func deriveF(ctx context.Context, opts struct {
	scanOpts

	Anchor string `short:"a" long:"anchor" description:"pin operator: exact, lower, or upper" default:"exact"`
	Output string `short:"o" long:"output" description:"write the manifest to the given file"`
}) error {
	anchor, err := depspec.ParseAnchor(opts.Anchor)
	if err != nil {
		return err
	}

	_, set, err := runScan(ctx, opts.scanOpts)
	if err != nil {
		return err
	}

	derived, err := depspec.FromPackages(set.Sorted(), anchor)
	if err != nil {
		return err
	}

	out := os.Stdout

	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return err
		}

		defer f.Close()

		out = f
	}

	for _, d := range derived.Sorted() {
		fmt.Fprintln(out, d.String())
	}

	return nil
}

func validateF(ctx context.Context, opts struct {
	scanOpts
	outputOpts

	Bound        []string `short:"b" long:"bound" description:"requirement manifest to validate against (repeatable)"`
	Superset     bool     `long:"superset" description:"every installed package must be permitted by the manifests"`
	Subset       bool     `long:"subset" description:"every declared requirement must be installed (default)"`
	URLStrict    bool     `long:"url-strict" description:"compare provenance urls, not just versions"`
	SkipBadLines bool     `long:"skip-bad-lines" description:"warn on malformed manifest lines instead of failing"`
	ExitCode     int      `long:"exit-code" description:"exit status when the report has errors" default:"3"`
	Digest       bool     `long:"digest" description:"print only the report fingerprint"`
	Record       string   `long:"record" description:"record the fingerprint under this label"`
	Verify       string   `long:"verify" description:"verify the fingerprint against this recorded label"`
}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	if opts.Exe != "" {
		cfg.Interpreter = opts.Exe
	}

	mode := validate.Subset
	if opts.Superset {
		if opts.Subset {
			return errors.New("pick one of --subset and --superset")
		}

		mode = validate.Superset
	}

	strictness := validate.VersionOnly
	if opts.URLStrict {
		strictness = validate.VersionAndURL
	}

	rv := ops.ReportValidate{
		Mode:         mode,
		Strictness:   strictness,
		SkipBadLines: opts.SkipBadLines,
	}

	rep, err := rv.Validate(ctx, cfg, opts.Sites, opts.Bound)
	if err != nil {
		return err
	}

	if opts.Record != "" {
		err = rv.RecordDigest(ctx, cfg, opts.Record, rep)
		if err != nil {
			return err
		}
	}

	if opts.Verify != "" {
		ok, err := rv.VerifyDigest(cfg, opts.Verify, rep)
		if err != nil {
			return err
		}

		if !ok {
			return cmd.Exit(opts.ExitCode,
				errors.Errorf("report digest does not match recorded label %q", opts.Verify))
		}

		statusWriter().OK("digest matches %q", opts.Verify)

		return nil
	}

	if opts.Digest {
		fmt.Println(rep.Digest())

		if !rep.Clean() {
			return cmd.Exit(opts.ExitCode, nil)
		}

		return nil
	}

	t := &render.Table{Header: []string{"Package", "Installed", "Required", "Source", "Explain"}}

	for _, rec := range rep.Records {
		installed, required, source := "-", "-", "-"

		if rec.Package != nil {
			installed = rec.Package.Version.String()
			if installed == "" {
				installed = "(none)"
			}
		}

		if rec.Spec != nil {
			required = rec.Spec.String()

			if rec.Spec.SourceFile != nil {
				source = rec.Spec.SourceFile.Base()
			}
		}

		t.Add(rec.Key, installed, required, source, rec.Explain.String())
	}

	err = opts.write(t)
	if err != nil {
		return err
	}

	if !rep.Clean() {
		return cmd.Exit(opts.ExitCode,
			errors.Errorf("%d of %d records failed %s validation",
				rep.Errors(), len(rep.Records), rep.Mode))
	}

	return nil
}

func auditF(ctx context.Context, opts struct {
	scanOpts
	outputOpts

	ExitCode int `long:"exit-code" description:"exit status when advisories are found" default:"3"`
}) error {
	cfg, set, err := runScan(ctx, opts.scanOpts)
	if err != nil {
		return err
	}

	var pa ops.PkgAudit

	findings, err := pa.Audit(ctx, cfg, set)
	if err != nil {
		return err
	}

	t := &render.Table{Header: []string{"Package", "Version", "Vuln", "Severity", "Reference", "Summary"}}

	for _, f := range findings {
		t.Add(f.Package.Name, f.Package.Version.String(), f.VulnID, f.Severity, f.Reference, f.Summary)
	}

	err = opts.write(t)
	if err != nil {
		return err
	}

	if len(findings) > 0 {
		return cmd.Exit(opts.ExitCode,
			errors.Errorf("%d advisories across %d packages", len(findings), set.Len()))
	}

	statusWriter().OK("no known vulnerabilities in %d packages", set.Len())

	return nil
}

func artifactsF(ctx context.Context, opts struct {
	scanOpts
	outputOpts

	Pattern string `short:"p" long:"pattern" description:"limit to packages matching this wildcard" default:"*"`
	Case    bool   `long:"case" description:"match the display name case sensitively"`
	Count   bool   `long:"count" description:"print tallies instead of files"`
}) error {
	_, set, err := runScan(ctx, opts.scanOpts)
	if err != nil {
		return err
	}

	var al ops.ArtifactList

	listed := al.List(set, scan.Query{
		Pattern:       opts.Pattern,
		CaseSensitive: opts.Case,
	})

	if opts.Count {
		t := &render.Table{Header: []string{"Package", "Files", "Missing", "Dirs", "Size"}}

		for _, pa := range listed {
			if pa.Artifacts == nil {
				t.Add(pa.Package.Name, "-", "-", "-", "-")
				continue
			}

			t.Add(pa.Package.Name,
				strconv.Itoa(pa.Artifacts.Present),
				strconv.Itoa(pa.Artifacts.Missing),
				strconv.Itoa(len(pa.Artifacts.Dirs)),
				humanize.SizeString(pa.Artifacts.Size),
			)
		}

		return opts.write(t)
	}

	t := &render.Table{Header: []string{"Package", "File", "Exists", "Size"}}

	for _, pa := range listed {
		if pa.Artifacts == nil {
			continue
		}

		for _, a := range pa.Artifacts.Files {
			exists := "yes"
			if !a.Exists {
				exists = "no"
			}

			t.Add(pa.Package.Name, a.Path, exists, humanize.SizeString(a.Size))
		}
	}

	return opts.write(t)
}

func interpretersF(ctx context.Context, opts struct {
	outputOpts
}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	var ed ops.ExeDiscover

	t := &render.Table{Header: []string{"Interpreter"}}

	for _, exe := range ed.Interpreters(cfg) {
		t.Add(exe)
	}

	return opts.write(t)
}

func inspectMetaF(ctx context.Context, opts struct {
	Pos struct {
		Dir string `positional-arg-name:"dir" required:"yes"`
	} `positional-args:"yes"`
}) error {
	dir := strings.TrimSuffix(opts.Pos.Dir, "/")

	tbl := pathintern.NewTable()

	pkg, err := pymeta.NewReader(tbl).ReadDir(dirSite(dir), dir)
	if err != nil {
		return err
	}

	spew.Dump(pkg)

	return nil
}

func dirSite(dir string) string {
	if i := strings.LastIndexByte(dir, '/'); i > 0 {
		return dir[:i]
	}

	return "."
}

func envF(ctx context.Context, opts struct{}) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(cfg)
}
