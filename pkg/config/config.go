package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/shirou/gopsutil/v3/host"
)

type Config struct {
	path      string
	configDir string

	// Actual Config
	DataDir     string `json:"data-dir"`
	Workers     int    `json:"workers"`
	OSVEndpoint string `json:"osv-endpoint"`
	UserSite    bool   `json:"user-site"`
	Interpreter string `json:"interpreter"`
}

const (
	DefaultConfigPath = "~/.config/sitevet/config.json"
	DefaultDataDir    = "~/.local/share/sitevet"
)

func LoadConfig() (*Config, error) {
	if loc := os.Getenv("SITEVET_CONFIG"); loc != "" {
		return loadFile(loc)
	}

	path, err := homedir.Expand(DefaultConfigPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		return loadFile(path)
	}

	dir := filepath.Dir(path)

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}

	ddir, err := homedir.Expand(DefaultDataDir)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		path:      path,
		configDir: dir,

		DataDir: ddir,
	}

	return updateFromEnv(cfg)
}

func loadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	var cfg Config

	err = json.NewDecoder(f).Decode(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.path = path
	cfg.configDir = filepath.Dir(path)

	if cfg.DataDir == "" {
		ddir, err := homedir.Expand(DefaultDataDir)
		if err != nil {
			return nil, err
		}

		cfg.DataDir = ddir
	} else if expanded, err := homedir.Expand(cfg.DataDir); err == nil {
		cfg.DataDir = expanded
	}

	return updateFromEnv(&cfg)
}

func updateFromEnv(cfg *Config) (*Config, error) {
	if path := os.Getenv("SITEVET_DATA_DIR"); path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, err
		}

		cfg.DataDir = expanded
	}

	if val := os.Getenv("SITEVET_WORKERS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("SITEVET_WORKERS: %w", err)
		}

		cfg.Workers = n
	}

	if url := os.Getenv("SITEVET_OSV_ENDPOINT"); url != "" {
		cfg.OSVEndpoint = url
	}

	if exe := os.Getenv("SITEVET_INTERPRETER"); exe != "" {
		cfg.Interpreter = exe
	}

	if val := os.Getenv("SITEVET_USER_SITE"); val != "" {
		cfg.UserSite = val == "1" || strings.EqualFold(val, "true")
	}

	return ensureDirs(cfg)
}

func ensureDirs(cfg *Config) (*Config, error) {
	dirs := []string{
		cfg.DataDir,
	}

	if cfg.configDir != "" {
		dirs = append(dirs, cfg.configDir)
	}

	for _, dir := range dirs {
		fi, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				err = os.MkdirAll(dir, 0755)
				if err != nil {
					return nil, err
				}
			}
		} else if !fi.IsDir() {
			return nil, fmt.Errorf("path is not a directory: %s", dir)
		}
	}

	return cfg, nil
}

func (c *Config) ConfigDir() string {
	return c.configDir
}

// DigestFilePath is where recorded report fingerprints live.
func (c *Config) DigestFilePath() string {
	return filepath.Join(c.DataDir, "digests")
}

// LockPath guards writes to the data dir.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, ".lock")
}

func Platform() (string, string, string) {
	osName, _, osVersion, err := host.PlatformInformation()
	if err != nil {
		panic(err)
	}

	arch, err := host.KernelArch()
	if err != nil {
		panic(err)
	}

	return osName, osVersion, arch
}
