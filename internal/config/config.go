// Package config provides unified configuration loading for geotree.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/logging"
	"github.com/nvandessel/geotree/internal/store"
	"github.com/nvandessel/geotree/internal/tree"
)

// GeotreeConfig contains all geotree configuration settings.
type GeotreeConfig struct {
	// Resolve selects the conflict-resolution policy.
	Resolve ResolveConfig `json:"resolve" yaml:"resolve"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store configures where resolved runs are persisted.
	Store StoreConfig `json:"store" yaml:"store"`
}

// ResolveConfig configures the resolution pipeline.
type ResolveConfig struct {
	// Mode is "strict" (keep the best sibling) or "loose" (merge siblings
	// onto a common anchor).
	Mode constants.SiblingMode `json:"mode" yaml:"mode"`

	// ReconcileSiblingParents enables the optional pass that reconciles a
	// node's parent with its sibling's different parent.
	ReconcileSiblingParents bool `json:"reconcile_sibling_parents" yaml:"reconcile_sibling_parents"`

	// ZeroFloor never selects parents or strict-mode siblings scoring <= 0.
	ZeroFloor bool `json:"zero_floor" yaml:"zero_floor"`
}

// LoggingConfig configures geotree's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to ~/.geotree/decisions.jsonl.
	// "trace" additionally logs every applied edit.
	Level string `json:"level" yaml:"level"`
}

// StoreConfig configures the run database.
type StoreConfig struct {
	// Path is the SQLite file holding resolved runs. Supports ${VAR} syntax.
	// Empty means ~/.geotree/geotree.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Default returns a GeotreeConfig with sensible defaults.
func Default() *GeotreeConfig {
	return &GeotreeConfig{
		Resolve: ResolveConfig{
			Mode: constants.ModeStrict,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.geotree/config.yaml -> environment variables
func Load() (*GeotreeConfig, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, constants.DataDirName, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*GeotreeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Path = expandEnvVars(config.Store.Path)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *GeotreeConfig) Validate() error {
	if !c.Resolve.Mode.Valid() {
		return fmt.Errorf("invalid resolve mode: %s (valid: strict, loose)", c.Resolve.Mode)
	}

	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// ResolveOptions converts the resolve section into Manager options.
// Logger and Auditor are left for the caller to set.
func (c *GeotreeConfig) ResolveOptions() tree.Options {
	return tree.Options{
		Loose:                   c.Resolve.Mode.Loose(),
		ReconcileSiblingParents: c.Resolve.ReconcileSiblingParents,
		ZeroFloor:               c.Resolve.ZeroFloor,
	}
}

// StorePath returns the configured database path, falling back to the
// default file in the user's geotree directory.
func (c *GeotreeConfig) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	return store.DefaultDatabasePath()
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *GeotreeConfig) {
	if v := os.Getenv("GEOTREE_MODE"); v != "" {
		config.Resolve.Mode = constants.SiblingMode(strings.ToLower(v))
	}

	if v := os.Getenv("GEOTREE_RECONCILE_SIBLING_PARENTS"); v != "" {
		config.Resolve.ReconcileSiblingParents = v == "true" || v == "1"
	}

	if v := os.Getenv("GEOTREE_ZERO_FLOOR"); v != "" {
		config.Resolve.ZeroFloor = v == "true" || v == "1"
	}

	if v := os.Getenv("GEOTREE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("GEOTREE_STORE_PATH"); v != "" {
		config.Store.Path = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
