package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geotree/internal/config"
	"github.com/nvandessel/geotree/internal/logging"
	"github.com/nvandessel/geotree/internal/store"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "geotree",
		Short: "Geotree - resolve correlation hints into a forest",
		Long: `geotree turns scored, anchored correlation hints between nodes
(parent, child, sibling) into a consistent forest of trees.

Conflicting hints are resolved by a fixed sequence of passes, the
survivors are assembled into trees, and runs can be stored, listed,
rendered and served to MCP clients.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("log-level", "", "Log verbosity: info, debug, or trace (default from config)")
	rootCmd.PersistentFlags().String("db", "", "Run database path (default ~/.geotree/geotree.db)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newBuildCmd(),
		newDemoCmd(),
		newShowCmd(),
		newListCmd(),
		newDeleteCmd(),
		newImportCmd(),
		newConfigCmd(),
		newServeCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "geotree version %s\n", version)
			}
		},
	}
}

// loadConfig loads the user configuration and applies the global flags on top.
func loadConfig(cmd *cobra.Command) (*config.GeotreeConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns the operational logger. Logs go to stderr so stdout
// stays clean for rendered output and the MCP stdio transport.
func newLogger(cfg *config.GeotreeConfig, w io.Writer) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, w)
}

// newDecisionLogger opens ~/.geotree/decisions.jsonl at debug level and above.
func newDecisionLogger(cfg *config.GeotreeConfig) *logging.DecisionLogger {
	dir, err := store.GlobalGeotreePath()
	if err != nil {
		return nil
	}
	return logging.NewDecisionLogger(dir, cfg.Logging.Level)
}

func openStore(cfg *config.GeotreeConfig) (*store.SQLiteSnapshotStore, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store path: %w", err)
	}
	ss, err := store.NewSQLiteSnapshotStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return ss, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
