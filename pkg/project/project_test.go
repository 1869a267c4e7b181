package project

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteRepoId(t *testing.T) {
	id, err := remoteRepoId("git@github.com:lab47/sitevet.git")
	require.NoError(t, err)
	assert.Equal(t, "github.com/lab47/sitevet", id)

	id, err = remoteRepoId("https://github.com/lab47/sitevet.git")
	require.NoError(t, err)
	assert.Equal(t, "github.com//lab47/sitevet", id)
}

func TestDetect(t *testing.T) {
	dir, err := ioutil.TempDir("", "project")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	dir, err = filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	t.Run("bare directory falls back to base name", func(t *testing.T) {
		info, err := Detect(dir)
		require.NoError(t, err)

		assert.Equal(t, dir, info.Root)
		assert.Equal(t, filepath.Base(dir), info.Origin)
		assert.Empty(t, info.Manifests)
	})

	t.Run("worktree with origin and manifests", func(t *testing.T) {
		repo, err := git.PlainInit(dir, false)
		require.NoError(t, err)

		_, err = repo.CreateRemote(&config.RemoteConfig{
			Name: "origin",
			URLs: []string{"git@github.com:lab47/sitevet.git"},
		})
		require.NoError(t, err)

		require.NoError(t, ioutil.WriteFile(
			filepath.Join(dir, "requirements.txt"), []byte("numpy>=1.22\n"), 0644))
		require.NoError(t, ioutil.WriteFile(
			filepath.Join(dir, "pyproject.toml"), []byte("[project]\nname = \"x\"\n"), 0644))

		sub := filepath.Join(dir, "src", "deep")
		require.NoError(t, os.MkdirAll(sub, 0755))

		info, err := Detect(sub)
		require.NoError(t, err)

		assert.Equal(t, dir, info.Root)
		assert.Equal(t, "github.com/lab47/sitevet", info.Origin)
		assert.Equal(t, []string{
			filepath.Join(dir, "requirements.txt"),
			filepath.Join(dir, "pyproject.toml"),
		}, info.Manifests)
	})
}
