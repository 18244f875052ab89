package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/geotree/internal/config"
	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/logging"
	"github.com/nvandessel/geotree/internal/store"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage geotree configuration",
		Long: `View and modify geotree configuration settings.

Configuration is stored in ~/.geotree/config.yaml.

Examples:
  geotree config list                      # Show all settings
  geotree config get resolve.mode          # Get a specific setting
  geotree config set resolve.mode loose    # Set a setting`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}
			fmt.Fprintln(out, "Configuration (~/.geotree/config.yaml):")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Resolve Settings:")
			fmt.Fprintf(out, "  resolve.mode:                       %s\n", cfg.Resolve.Mode)
			fmt.Fprintf(out, "  resolve.reconcile_sibling_parents:  %v\n", cfg.Resolve.ReconcileSiblingParents)
			fmt.Fprintf(out, "  resolve.zero_floor:                 %v\n", cfg.Resolve.ZeroFloor)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging Settings:")
			fmt.Fprintf(out, "  logging.level:                      %s\n", valueOrDefault(cfg.Logging.Level, "info"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Store Settings:")
			fmt.Fprintf(out, "  store.path:                         %s\n", valueOrDefault(cfg.Store.Path, "(default)"))
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := saveConfig(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.GeotreeConfig, key string) (interface{}, bool) {
	switch key {
	case "resolve.mode":
		return string(cfg.Resolve.Mode), true
	case "resolve.reconcile_sibling_parents":
		return cfg.Resolve.ReconcileSiblingParents, true
	case "resolve.zero_floor":
		return cfg.Resolve.ZeroFloor, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "store.path":
		return cfg.Store.Path, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.GeotreeConfig, key, value string) error {
	switch key {
	case "resolve.mode":
		mode := constants.SiblingMode(strings.ToLower(value))
		if !mode.Valid() {
			return fmt.Errorf("invalid mode: %s (valid: strict, loose)", value)
		}
		cfg.Resolve.Mode = mode
	case "resolve.reconcile_sibling_parents":
		cfg.Resolve.ReconcileSiblingParents = value == "true" || value == "1"
	case "resolve.zero_floor":
		cfg.Resolve.ZeroFloor = value == "true" || value == "1"
	case "logging.level":
		if !logging.ValidLevel(value) {
			return fmt.Errorf("invalid log level: %s (valid: info, debug, trace)", value)
		}
		cfg.Logging.Level = value
	case "store.path":
		cfg.Store.Path = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// saveConfig writes the configuration to ~/.geotree/config.yaml.
func saveConfig(cfg *config.GeotreeConfig) error {
	if err := store.EnsureGlobalGeotreeDir(); err != nil {
		return err
	}
	dir, err := store.GlobalGeotreePath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
