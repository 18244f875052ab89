package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/hints"
	"github.com/nvandessel/geotree/internal/seed"
	"github.com/nvandessel/geotree/internal/store"
	"github.com/nvandessel/geotree/internal/tree"
	"github.com/nvandessel/geotree/internal/visualization"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <hints-file>",
		Short: "Resolve a hint document and print the assembled forest",
		Long: `Read a YAML or JSON hint document, resolve its conflicts and assemble
the forest. Use "-" to read the document from stdin.

Examples:
  geotree build hints.yaml
  geotree build hints.yaml --mode loose --format dot | dot -Tsvg > forest.svg
  geotree build hints.yaml --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			watch, _ := cmd.Flags().GetBool("watch")
			build := func() error {
				doc, err := readHints(cmd, args[0])
				if err != nil {
					return err
				}
				return runBuild(cmd, doc)
			}
			if !watch {
				return build()
			}
			return watchAndBuild(cmd, args[0], build)
		},
	}
	addBuildFlags(cmd)
	cmd.Flags().Bool("watch", false, "Rebuild whenever the hints file changes (Ctrl-C to stop)")
	return cmd
}

func watchAndBuild(cmd *cobra.Command, path string, build func() error) error {
	if path == "-" {
		return fmt.Errorf("--watch needs a hints file, not stdin")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fw, err := newFileWatcher(path, newLogger(cfg, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := build(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "build failed: %v\n", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes. Press Ctrl-C to stop.\n", path)
	return fw.Run(ctx, build)
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Generate random hints and resolve them",
		Long: `Generate a reproducible random hint document and run it through the
same pipeline as "geotree build". Use --print-hints to see the document
instead of resolving it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, _ := cmd.Flags().GetInt("objects")
			density, _ := cmd.Flags().GetFloat64("density")
			spread, _ := cmd.Flags().GetFloat64("spread")
			levels, _ := cmd.Flags().GetInt("levels")
			seedValue, _ := cmd.Flags().GetInt64("seed")
			printHints, _ := cmd.Flags().GetBool("print-hints")

			doc := seed.Generate(seed.Options{
				Objects: objects,
				Density: density,
				Spread:  spread,
				Levels:  levels,
				Seed:    seedValue,
			})
			if printHints {
				data, err := hints.Marshal(doc)
				if err != nil {
					return fmt.Errorf("failed to encode hints: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return runBuild(cmd, doc)
		},
	}
	cmd.Flags().Int("objects", constants.DefaultSeedObjects, "Number of nodes to generate")
	cmd.Flags().Float64("density", constants.DefaultCorrelationDensity, "Probability that a pair of nodes is correlated")
	cmd.Flags().Float64("spread", constants.DefaultAnchorSpread, "Bound for generated anchor coordinates")
	cmd.Flags().Int("levels", constants.DefaultSeedLevels, "Number of depth layers")
	cmd.Flags().Int64("seed", 1, "Random seed")
	cmd.Flags().Bool("print-hints", false, "Print the generated hint document and exit")
	addBuildFlags(cmd)
	return cmd
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "", "Sibling resolution mode: strict or loose (default from config)")
	cmd.Flags().Bool("reconcile", false, "Run the pass that reconciles siblings with different parents")
	cmd.Flags().Bool("zero-floor", false, "Never choose parents or strict siblings scoring <= 0")
	cmd.Flags().String("format", "text", "Output format: text, dot, or json")
	cmd.Flags().Bool("save", false, "Store the run in the database")
	cmd.Flags().String("export", "", "Also write the run as JSONL to this file")
}

func readHints(cmd *cobra.Command, path string) (*hints.Document, error) {
	if path != "-" {
		return hints.Load(path)
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("reading hints from stdin: %w", err)
	}
	return hints.Parse(data)
}

// buildOptions layers the command flags over the configured resolve options.
func buildOptions(cmd *cobra.Command, base tree.Options) (tree.Options, error) {
	opts := base
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		m := constants.SiblingMode(strings.ToLower(mode))
		if !m.Valid() {
			return opts, fmt.Errorf("invalid mode %q (valid: strict, loose)", mode)
		}
		opts.Loose = m.Loose()
	}
	if reconcile, _ := cmd.Flags().GetBool("reconcile"); reconcile {
		opts.ReconcileSiblingParents = true
	}
	if zeroFloor, _ := cmd.Flags().GetBool("zero-floor"); zeroFloor {
		opts.ZeroFloor = true
	}
	return opts, nil
}

func runBuild(cmd *cobra.Command, doc *hints.Document) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	formatFlag, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")
	exportPath, _ := cmd.Flags().GetString("export")

	format, err := visualization.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := buildOptions(cmd, cfg.ResolveOptions())
	if err != nil {
		return err
	}
	opts.Logger = newLogger(cfg, cmd.ErrOrStderr())
	decisions := newDecisionLogger(cfg)
	defer decisions.Close()
	if decisions != nil {
		opts.Auditor = decisions.With(map[string]any{"source": "cli"})
	}

	m, report, err := doc.Build(opts)
	if err != nil {
		return err
	}
	run := store.NewRun(m.Snapshot(), opts)

	if save {
		ss, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer ss.Close()
		if _, err := ss.Save(context.Background(), run); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
	}
	if exportPath != "" {
		if err := exportRun(exportPath, run); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		result := map[string]interface{}{
			"mode":    run.Mode,
			"passes":  report.Passes,
			"changes": report.Changes(),
			"forest":  visualization.RenderJSON(run.Snapshot),
		}
		if run.ID != "" {
			result["run_id"] = run.ID
		}
		return writeJSON(out, result)
	}
	if err := visualization.Render(out, run.Snapshot, format); err != nil {
		return err
	}
	if save {
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved run %s\n", run.ID)
	}
	return nil
}

func exportRun(path string, run *store.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := store.ExportJSONL(f, run); err != nil {
		f.Close()
		return fmt.Errorf("failed to export run: %w", err)
	}
	return f.Close()
}
