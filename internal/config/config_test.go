package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/tree"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.Resolve.Mode != constants.ModeStrict {
		t.Errorf("expected Mode 'strict', got '%s'", config.Resolve.Mode)
	}
	if config.Resolve.ReconcileSiblingParents {
		t.Error("expected ReconcileSiblingParents to be false by default")
	}
	if config.Resolve.ZeroFloor {
		t.Error("expected ZeroFloor to be false by default")
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if config.Store.Path != "" {
		t.Errorf("expected empty Store.Path, got '%s'", config.Store.Path)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
resolve:
  mode: loose
  reconcile_sibling_parents: true
  zero_floor: true

logging:
  level: debug

store:
  path: /tmp/runs.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Resolve.Mode != constants.ModeLoose {
		t.Errorf("expected Mode 'loose', got '%s'", config.Resolve.Mode)
	}
	if !config.Resolve.ReconcileSiblingParents {
		t.Error("expected ReconcileSiblingParents to be true")
	}
	if !config.Resolve.ZeroFloor {
		t.Error("expected ZeroFloor to be true")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
	if config.Store.Path != "/tmp/runs.db" {
		t.Errorf("expected Store.Path '/tmp/runs.db', got '%s'", config.Store.Path)
	}
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("resolve:\n  zero_floor: true\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.Resolve.Mode != constants.ModeStrict {
		t.Errorf("expected default Mode 'strict', got '%s'", config.Resolve.Mode)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected default Logging.Level 'info', got '%s'", config.Logging.Level)
	}
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
store:
  path: ${TEST_GEOTREE_DIR}/runs.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("TEST_GEOTREE_DIR", "/data/geotree")

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Store.Path != "/data/geotree/runs.db" {
		t.Errorf("expected Store.Path '/data/geotree/runs.db', got '%s'", config.Store.Path)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEOTREE_MODE", "LOOSE")
	t.Setenv("GEOTREE_RECONCILE_SIBLING_PARENTS", "1")
	t.Setenv("GEOTREE_ZERO_FLOOR", "true")
	t.Setenv("GEOTREE_LOG_LEVEL", "trace")
	t.Setenv("GEOTREE_STORE_PATH", "/var/lib/geotree.db")

	config := Default()
	applyEnvOverrides(config)

	if config.Resolve.Mode != constants.ModeLoose {
		t.Errorf("expected Mode 'loose', got '%s'", config.Resolve.Mode)
	}
	if !config.Resolve.ReconcileSiblingParents {
		t.Error("expected ReconcileSiblingParents to be true")
	}
	if !config.Resolve.ZeroFloor {
		t.Error("expected ZeroFloor to be true")
	}
	if config.Logging.Level != "trace" {
		t.Errorf("expected Logging.Level 'trace', got '%s'", config.Logging.Level)
	}
	if config.Store.Path != "/var/lib/geotree.db" {
		t.Errorf("expected Store.Path override, got '%s'", config.Store.Path)
	}
}

func TestLoad_ReadsHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("GEOTREE_MODE", "")

	dir := filepath.Join(home, constants.DataDirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("resolve:\n  mode: loose\n"), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Resolve.Mode != constants.ModeLoose {
		t.Errorf("expected Mode 'loose' from home config, got '%s'", config.Resolve.Mode)
	}
}

func TestValidate_Valid(t *testing.T) {
	config := Default()
	if err := config.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidMode(t *testing.T) {
	config := Default()
	config.Resolve.Mode = "greedy"
	err := config.Validate()
	if err == nil {
		t.Fatal("expected validation error for invalid mode")
	}
	if !strings.Contains(err.Error(), "greedy") {
		t.Errorf("error should name the bad mode, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	config := Default()
	config.Logging.Level = "verbose"
	if err := config.Validate(); err == nil {
		t.Error("expected validation error for invalid log level")
	}
}

func TestValidate_ValidLogLevels(t *testing.T) {
	validLevels := []string{"", "info", "debug", "trace"}

	for _, level := range validLevels {
		t.Run(level, func(t *testing.T) {
			config := Default()
			config.Logging.Level = level
			if err := config.Validate(); err != nil {
				t.Errorf("expected log level '%s' to be valid, got error: %v", level, err)
			}
		})
	}
}

func TestResolveOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*GeotreeConfig)
		want   tree.Options
	}{
		{"defaults", func(*GeotreeConfig) {}, tree.Options{}},
		{"loose", func(c *GeotreeConfig) { c.Resolve.Mode = constants.ModeLoose }, tree.Options{Loose: true}},
		{
			"all flags",
			func(c *GeotreeConfig) {
				c.Resolve.Mode = constants.ModeLoose
				c.Resolve.ReconcileSiblingParents = true
				c.Resolve.ZeroFloor = true
			},
			tree.Options{Loose: true, ReconcileSiblingParents: true, ZeroFloor: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.modify(config)
			got := config.ResolveOptions()
			if got.Loose != tt.want.Loose || got.ReconcileSiblingParents != tt.want.ReconcileSiblingParents || got.ZeroFloor != tt.want.ZeroFloor {
				t.Errorf("ResolveOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStorePath(t *testing.T) {
	config := Default()
	config.Store.Path = "/explicit.db"
	if got, err := config.StorePath(); err != nil || got != "/explicit.db" {
		t.Errorf("StorePath() = %q, %v; want /explicit.db", got, err)
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	config.Store.Path = ""
	got, err := config.StorePath()
	if err != nil {
		t.Fatalf("StorePath() error = %v", err)
	}
	want := filepath.Join(home, ".geotree", "geotree.db")
	if got != want {
		t.Errorf("StorePath() = %q, want %q", got, want)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
resolve:
  mode: [invalid yaml
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
