package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geotree/internal/mcp"
	"github.com/nvandessel/geotree/internal/store"
	"github.com/nvandessel/geotree/internal/visualization"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse stored runs over HTTP",
		Long: `Start a local HTTP server listing stored runs. Each run can be fetched
as text, DOT or JSON at /runs/<id>?format=<format>.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			open, _ := cmd.Flags().GetBool("open")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ss, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer ss.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRunServer(ctx, cmd, ss, addr, open)
		},
	}
	cmd.Flags().String("addr", "localhost:0", "Listen address")
	cmd.Flags().Bool("open", false, "Open the index in a browser")
	return cmd
}

func runRunServer(ctx context.Context, cmd *cobra.Command, ss store.SnapshotStore, addr string, open bool) error {
	srv := visualization.NewServer(ss)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, addr) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && srv.Addr() == "" {
		select {
		case err := <-errCh:
			return err
		case <-time.After(10 * time.Millisecond):
		}
	}
	if srv.Addr() == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + srv.Addr()
	fmt.Fprintf(cmd.OutOrStdout(), "Run browser running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")
	if open {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "could not open browser: %v\n", err)
		}
	}
	return <-errCh
}

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the geotree MCP server over stdio",
		Long: `Expose geotree_build, geotree_snapshot, geotree_list and geotree_delete
to MCP clients over stdin/stdout. Stored runs are also readable as
geotree://runs/<id> resources.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ss, err := openStore(cfg)
			if err != nil {
				return err
			}
			dataDir, err := store.GlobalGeotreePath()
			if err != nil {
				ss.Close()
				return err
			}

			decisions := newDecisionLogger(cfg)
			defer decisions.Close()

			opts := cfg.ResolveOptions()
			opts.Logger = newLogger(cfg, os.Stderr)
			server, err := mcp.NewServer(&mcp.Config{
				Name:      "geotree",
				Version:   version,
				Store:     ss,
				Defaults:  opts,
				Decisions: decisions,
				AuditDir:  dataDir,
			})
			if err != nil {
				ss.Close()
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			return server.Run(cmd.Context())
		},
	}
}
