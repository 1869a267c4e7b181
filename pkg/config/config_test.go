package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.json")

	require.NoError(t, ioutil.WriteFile(path,
		[]byte(`{"data-dir": "`+filepath.Join(dir, "data")+`", "workers": 3}`), 0644))

	t.Setenv("SITEVET_CONFIG", path)
	t.Setenv("SITEVET_DATA_DIR", "")
	t.Setenv("SITEVET_WORKERS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)

	// ensureDirs made the data dir
	fi, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	assert.Equal(t, filepath.Join(cfg.DataDir, "digests"), cfg.DigestFilePath())

	t.Run("env wins over file", func(t *testing.T) {
		t.Setenv("SITEVET_WORKERS", "8")
		t.Setenv("SITEVET_DATA_DIR", filepath.Join(dir, "other"))

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, filepath.Join(dir, "other"), cfg.DataDir)
	})
}
