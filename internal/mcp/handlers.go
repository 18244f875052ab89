package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/hints"
	"github.com/nvandessel/geotree/internal/ratelimit"
	"github.com/nvandessel/geotree/internal/store"
	"github.com/nvandessel/geotree/internal/tree"
	"github.com/nvandessel/geotree/internal/visualization"
)

const runURIPrefix = "geotree://runs/"

// registerTools registers all geotree MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "geotree_build",
		Description: "Resolve conflicting correlation hints between nodes and assemble them into a forest of trees",
	}, s.handleBuild)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "geotree_snapshot",
		Description: "Fetch a stored run by id and render its forest",
	}, s.handleSnapshot)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "geotree_list",
		Description: "List stored runs, newest first",
	}, s.handleList)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "geotree_delete",
		Description: "Delete a stored run",
	}, s.handleDelete)
}

// registerResources exposes every stored run as a text diagram.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: runURIPrefix + "{id}",
		Name:        "geotree-run",
		Description: "Indented diagram of a stored run's forest",
		MIMEType:    "text/plain",
	}, s.handleRunResource)
}

// buildOptions merges per-call overrides into the server defaults.
func (s *Server) buildOptions(args BuildInput) (tree.Options, error) {
	opts := s.defaults
	if args.Mode != "" {
		mode := constants.SiblingMode(strings.ToLower(args.Mode))
		if !mode.Valid() {
			return opts, fmt.Errorf("invalid mode %q (valid: strict, loose)", args.Mode)
		}
		opts.Loose = mode.Loose()
	}
	opts.ReconcileSiblingParents = opts.ReconcileSiblingParents || args.ReconcileSiblingParents
	opts.ZeroFloor = opts.ZeroFloor || args.ZeroFloor
	return opts, nil
}

func (s *Server) handleBuild(ctx context.Context, req *sdk.CallToolRequest, args BuildInput) (_ *sdk.CallToolResult, _ BuildOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("geotree_build", start, retErr, map[string]interface{}{
			"hints": args.Hints, "mode": args.Mode, "format": args.Format, "save": args.Save,
			"reconcile_sibling_parents": args.ReconcileSiblingParents, "zero_floor": args.ZeroFloor,
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "geotree_build"); err != nil {
		return nil, BuildOutput{}, err
	}

	format, err := visualization.ParseFormat(args.Format)
	if err != nil {
		return nil, BuildOutput{}, err
	}
	opts, err := s.buildOptions(args)
	if err != nil {
		return nil, BuildOutput{}, err
	}
	doc, err := hints.Parse([]byte(args.Hints))
	if err != nil {
		return nil, BuildOutput{}, err
	}

	opts.Logger = s.logger
	if s.decisions != nil {
		opts.Auditor = s.decisions.With(map[string]any{"source": "mcp"})
	}
	m, report, err := doc.Build(opts)
	if err != nil {
		return nil, BuildOutput{}, err
	}

	run := store.NewRun(m.Snapshot(), opts)
	rendered, err := render(run.Snapshot, format)
	if err != nil {
		return nil, BuildOutput{}, err
	}

	out := BuildOutput{
		Mode:     string(run.Mode),
		Roots:    ids(run.Snapshot.Roots),
		Nodes:    forestNodes(run.Snapshot),
		Passes:   report.Passes,
		Changes:  report.Changes(),
		Rendered: rendered,
	}
	if args.Save {
		id, err := s.store.Save(ctx, run)
		if err != nil {
			return nil, BuildOutput{}, fmt.Errorf("failed to save run: %w", err)
		}
		out.RunID = id
	}
	s.logger.Debug("build complete", "nodes", len(out.Nodes), "roots", len(out.Roots), "changes", out.Changes, "run", out.RunID)
	return nil, out, nil
}

func (s *Server) handleSnapshot(ctx context.Context, req *sdk.CallToolRequest, args SnapshotInput) (_ *sdk.CallToolResult, _ SnapshotOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("geotree_snapshot", start, retErr, map[string]interface{}{
			"run_id": args.RunID, "format": args.Format,
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "geotree_snapshot"); err != nil {
		return nil, SnapshotOutput{}, err
	}
	format, err := visualization.ParseFormat(args.Format)
	if err != nil {
		return nil, SnapshotOutput{}, err
	}
	if args.RunID == "" {
		return nil, SnapshotOutput{}, fmt.Errorf("run_id is required")
	}

	run, err := s.store.Get(ctx, args.RunID)
	if err != nil {
		return nil, SnapshotOutput{}, err
	}
	rendered, err := render(run.Snapshot, format)
	if err != nil {
		return nil, SnapshotOutput{}, err
	}
	return nil, SnapshotOutput{
		RunID:     run.ID,
		Mode:      string(run.Mode),
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
		Roots:     ids(run.Snapshot.Roots),
		Nodes:     forestNodes(run.Snapshot),
		Rendered:  rendered,
	}, nil
}

func (s *Server) handleList(ctx context.Context, req *sdk.CallToolRequest, args ListInput) (_ *sdk.CallToolResult, _ ListOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("geotree_list", start, retErr, map[string]interface{}{})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "geotree_list"); err != nil {
		return nil, ListOutput{}, err
	}

	runs, err := s.store.List(ctx)
	if err != nil {
		return nil, ListOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}
	items := make([]RunListItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, RunListItem{
			ID:        r.ID,
			Mode:      string(r.Mode),
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
			Nodes:     r.Nodes,
			Roots:     r.Roots,
		})
	}
	return nil, ListOutput{Runs: items, Count: len(items)}, nil
}

func (s *Server) handleDelete(ctx context.Context, req *sdk.CallToolRequest, args DeleteInput) (_ *sdk.CallToolResult, _ DeleteOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("geotree_delete", start, retErr, map[string]interface{}{"run_id": args.RunID})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "geotree_delete"); err != nil {
		return nil, DeleteOutput{}, err
	}
	if args.RunID == "" {
		return nil, DeleteOutput{}, fmt.Errorf("run_id is required")
	}
	if err := s.store.Delete(ctx, args.RunID); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{RunID: args.RunID, Deleted: true}, nil
}

// handleRunResource renders a stored run as a text diagram.
// URI format: geotree://runs/{id}
func (s *Server) handleRunResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	id, ok := strings.CutPrefix(uri, runURIPrefix)
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}

	run, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return nil, sdk.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}
	text, err := render(run.Snapshot, visualization.FormatText)
	if err != nil {
		return nil, err
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "text/plain",
				Text:     text,
			},
		},
	}, nil
}

func render(snap tree.Snapshot, format visualization.Format) (string, error) {
	var buf bytes.Buffer
	if err := visualization.Render(&buf, snap, format); err != nil {
		return "", fmt.Errorf("failed to render forest: %w", err)
	}
	return buf.String(), nil
}

func ids(in []tree.NodeID) []uint64 {
	out := make([]uint64, len(in))
	for i, id := range in {
		out[i] = uint64(id)
	}
	return out
}

func forestNodes(snap tree.Snapshot) []ForestNode {
	out := make([]ForestNode, 0, len(snap.Nodes))
	for _, rec := range snap.Nodes {
		n := ForestNode{ID: uint64(rec.ID), Aggregate: rec.Aggregate}
		if rec.Parent != nil {
			p := uint64(*rec.Parent)
			n.Parent = &p
		}
		if len(rec.Children) > 0 {
			n.Children = ids(rec.Children)
		}
		out = append(out, n)
	}
	return out
}
