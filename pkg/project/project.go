package project

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// Info describes the project enclosing a directory: where its
// worktree starts, what origin it tracks, and which requirement
// manifests it carries at the root.
type Info struct {
	Root      string
	Origin    string
	Manifests []string
}

// Detect finds the enclosing git worktree and its requirement
// manifests. Outside any repository the directory itself is the
// project and its base name stands in for the origin.
func Detect(dir string) (*Info, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	info := &Info{Root: abs}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err == nil {
		if wt, err := repo.Worktree(); err == nil {
			info.Root = wt.Filesystem.Root()
		}

		remote, err := repo.Remote("origin")
		if err == nil {
			urls := remote.Config().URLs
			if len(urls) != 0 {
				id, err := remoteRepoId(urls[0])
				if err == nil {
					info.Origin = id
				}
			}
		} else if err != git.ErrRemoteNotFound {
			return nil, err
		}
	}

	if info.Origin == "" {
		// welp. the directory base name will have to do
		info.Origin = filepath.Base(info.Root)
	}

	info.Manifests = findManifests(info.Root)

	return info, nil
}

var manifestNames = []string{
	"requirements.txt",
	"requirements-dev.txt",
	"requirements_dev.txt",
	"pyproject.toml",
}

func findManifests(root string) []string {
	var out []string

	for _, name := range manifestNames {
		path := filepath.Join(root, name)

		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			out = append(out, path)
		}
	}

	matches, err := filepath.Glob(filepath.Join(root, "requirements", "*.txt"))
	if err == nil {
		sort.Strings(matches)
		out = append(out, matches...)
	}

	return out
}

var scpSyntaxRe = regexp.MustCompile(`^([a-zA-Z0-9_]+)@([a-zA-Z0-9._-]+):(.*)$`)

func remoteRepoId(configUrl string) (string, error) {
	var id string
	if m := scpSyntaxRe.FindStringSubmatch(configUrl); m != nil {
		id = fmt.Sprintf("%s/%s", m[2], m[3])
	} else {
		repoURL, err := url.Parse(configUrl)
		if err != nil {
			return "", err
		}

		id = fmt.Sprintf("%s/%s", repoURL.Host, repoURL.Path)
	}

	return strings.TrimSuffix(id, ".git"), nil
}
