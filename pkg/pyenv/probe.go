package pyenv

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

const probeScript = `import site;print(site.ENABLE_USER_SITE);print("\n".join(site.getsitepackages()));print(site.getusersitepackages())`

// Sites asks one interpreter for its site directories. The user site
// comes back only when the interpreter enables it, or when forceUser
// says to take it anyway.
func Sites(ctx context.Context, exe string, forceUser bool) ([]string, error) {
	out, err := exec.CommandContext(ctx, exe, "-c", probeScript).Output()
	if err != nil {
		return nil, errors.Wrapf(err, "probing %s", exe)
	}

	sites := parseProbe(string(out), forceUser)
	if len(sites) == 0 {
		return nil, errors.Errorf("no site directories reported by %s", exe)
	}

	return sites, nil
}

// parseProbe reads the probe output: the user-site flag, then the
// site-packages list, then the user site on the last line.
func parseProbe(out string, forceUser bool) []string {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 2 {
		return nil
	}

	userEnabled := strings.TrimSpace(lines[0]) == "True"

	var sites []string

	for _, line := range lines[1 : len(lines)-1] {
		line = strings.TrimSpace(line)
		if line != "" {
			sites = append(sites, line)
		}
	}

	user := strings.TrimSpace(lines[len(lines)-1])
	if user != "" && (userEnabled || forceUser) {
		sites = append(sites, user)
	}

	return sites
}

// Default resolves the interpreter a plain "python3" reaches.
func Default() (string, error) {
	exe, err := exec.LookPath("python3")
	if err != nil {
		return "", errors.Wrap(err, "no python3 on PATH")
	}

	return exe, nil
}
