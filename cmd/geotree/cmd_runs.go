package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geotree/internal/store"
	"github.com/nvandessel/geotree/internal/visualization"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Render a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			formatFlag, _ := cmd.Flags().GetString("format")
			exportPath, _ := cmd.Flags().GetString("export")

			format, err := visualization.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			if jsonOut {
				format = visualization.FormatJSON
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ss, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer ss.Close()

			run, err := ss.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			if exportPath != "" {
				return exportRun(exportPath, run)
			}
			return visualization.Render(cmd.OutOrStdout(), run.Snapshot, format)
		},
	}
	cmd.Flags().String("format", "text", "Output format: text, dot, or json")
	cmd.Flags().String("export", "", "Write the run as JSONL to this file instead of rendering it")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ss, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer ss.Close()

			runs, err := ss.List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if runs == nil {
					runs = []store.RunSummary{}
				}
				return writeJSON(out, map[string]interface{}{"runs": runs, "count": len(runs)})
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs stored.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMODE\tNODES\tROOTS\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Mode, r.Nodes, r.Roots, r.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ss, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer ss.Close()

			if err := ss.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"run_id": args[0], "deleted": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Store a run exported with --export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer f.Close()
			run, err := store.ImportJSONL(f)
			if err != nil {
				return fmt.Errorf("failed to import run: %w", err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ss, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer ss.Close()

			id, err := ss.Save(context.Background(), run)
			if err != nil {
				return fmt.Errorf("failed to save run: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"run_id": id, "nodes": len(run.Snapshot.Nodes)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported run %s (%d nodes)\n", id, len(run.Snapshot.Nodes))
			return nil
		},
	}
}
