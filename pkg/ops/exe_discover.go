package ops

import (
	"context"
	"sort"

	"lab47.dev/sitevet/pkg/config"
	"lab47.dev/sitevet/pkg/pyenv"
)

// ExeDiscover finds python interpreters and resolves their site
// directories.
type ExeDiscover struct {
	common
}

// Interpreters returns every python executable visible on the
// machine.
func (e *ExeDiscover) Interpreters(cfg *config.Config) []string {
	osName, _, _ := config.Platform()

	d := &pyenv.Discovery{OS: osName}

	return d.Discover()
}

// Sites resolves the site directories to scan. An explicit
// interpreter wins; otherwise every discovered interpreter is probed
// and the union taken. Probe failures are logged and skipped, not
// fatal.
func (e *ExeDiscover) Sites(ctx context.Context, cfg *config.Config) ([]string, error) {
	if cfg.Interpreter != "" {
		return pyenv.Sites(ctx, cfg.Interpreter, cfg.UserSite)
	}

	exes := e.Interpreters(cfg)

	if len(exes) == 0 {
		if exe, err := pyenv.Default(); err == nil {
			exes = []string{exe}
		}
	}

	seen := make(map[string]struct{})

	for _, exe := range exes {
		sites, err := pyenv.Sites(ctx, exe, cfg.UserSite)
		if err != nil {
			e.L().Debug("interpreter probe failed", "exe", exe, "error", err)
			continue
		}

		for _, s := range sites {
			seen[s] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}

	sort.Strings(out)

	return out, nil
}
