package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/xraph/rights"
	"github.com/xraph/rights/extension"
)

// cliConfig is the operator configuration file.
type cliConfig struct {
	Database           string   `toml:"database"`
	Admin              string   `toml:"admin"`
	Treasury           string   `toml:"treasury"`
	Vault              string   `toml:"vault"`
	EnrollmentFee      uint64   `toml:"enrollment_fee"`
	EnrollmentCurrency string   `toml:"enrollment_currency"`
	Policies           []string `toml:"policies"`
}

func defaultCLIConfig() cliConfig {
	defaults := extension.DefaultConfig()
	return cliConfig{
		Database:           "rights.db",
		Admin:              defaults.Admin,
		Treasury:           defaults.Treasury,
		Vault:              defaults.Vault,
		EnrollmentCurrency: defaults.EnrollmentCurrency,
		Policies:           defaults.Policies,
	}
}

func defaultConfigPath() (string, error) {
	return expandPath("~/.config/rights/config.toml")
}

// loadConfig reads path over the defaults. A missing file yields the
// defaults unless the path was given explicitly.
func loadConfig(path string) (*cliConfig, error) {
	cfg := defaultCLIConfig()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return &cfg, nil
	case err != nil:
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.normalize(filepath.Dir(resolved)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize resolves the database path relative to the config file.
func (c *cliConfig) normalize(baseDir string) error {
	c.Database = strings.TrimSpace(c.Database)
	if c.Database == "" {
		return errors.New("config: database must not be empty")
	}
	expanded, err := expandPath(c.Database)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(baseDir, expanded)
	}
	c.Database = expanded
	return nil
}

func (c *cliConfig) extensionConfig() extension.Config {
	return extension.MergeWithDefaults(extension.Config{
		Admin:              c.Admin,
		Treasury:           c.Treasury,
		Vault:              c.Vault,
		EnrollmentFee:      c.EnrollmentFee,
		EnrollmentCurrency: c.EnrollmentCurrency,
		Policies:           c.Policies,
	})
}

func engineOptionsFor(c *cliConfig) ([]rights.Option, error) {
	return extension.EngineOptions(c.extensionConfig())
}

func writeSampleConfig(path string) error {
	data, err := toml.Marshal(defaultCLIConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
