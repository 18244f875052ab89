package mcp

import (
	"github.com/nvandessel/geotree/internal/tree"
)

// BuildInput defines the input for the geotree_build tool.
type BuildInput struct {
	Hints                   string `json:"hints" jsonschema:"Hint document as YAML or JSON with nodes (id and prohibit) and correlations (a and b and relation and score and anchor)"`
	Mode                    string `json:"mode,omitempty" jsonschema:"Sibling resolution mode: strict or loose (default: server configuration)"`
	ReconcileSiblingParents bool   `json:"reconcile_sibling_parents,omitempty" jsonschema:"Also run the pass that reconciles siblings with different parents"`
	ZeroFloor               bool   `json:"zero_floor,omitempty" jsonschema:"Treat negative scores as zero when choosing the best parent or sibling"`
	Format                  string `json:"format,omitempty" jsonschema:"Rendering of the forest: text or dot or json (default: text)"`
	Save                    bool   `json:"save,omitempty" jsonschema:"Store the resolved run so it can be fetched later with geotree_snapshot"`
}

// BuildOutput defines the output for the geotree_build tool.
type BuildOutput struct {
	RunID    string            `json:"run_id,omitempty" jsonschema:"ID of the stored run when save was requested"`
	Mode     string            `json:"mode" jsonschema:"Sibling resolution mode that was used"`
	Roots    []uint64          `json:"roots" jsonschema:"Root node ids in registration order"`
	Nodes    []ForestNode      `json:"nodes" jsonschema:"Every node with its assembled parent and children"`
	Passes   []tree.PassReport `json:"passes" jsonschema:"Edits applied by each resolution pass"`
	Changes  int               `json:"changes" jsonschema:"Total number of applied edits"`
	Rendered string            `json:"rendered" jsonschema:"The forest rendered in the requested format"`
}

// ForestNode is the tool view of one assembled node.
type ForestNode struct {
	ID        uint64   `json:"id"`
	Parent    *uint64  `json:"parent,omitempty"`
	Children  []uint64 `json:"children,omitempty"`
	Aggregate bool     `json:"aggregate,omitempty"`
}

// SnapshotInput defines the input for the geotree_snapshot tool.
type SnapshotInput struct {
	RunID  string `json:"run_id" jsonschema:"ID of a stored run"`
	Format string `json:"format,omitempty" jsonschema:"Rendering of the forest: text or dot or json (default: text)"`
}

// SnapshotOutput defines the output for the geotree_snapshot tool.
type SnapshotOutput struct {
	RunID     string       `json:"run_id"`
	Mode      string       `json:"mode"`
	CreatedAt string       `json:"created_at" jsonschema:"RFC 3339 time the run was stored"`
	Roots     []uint64     `json:"roots"`
	Nodes     []ForestNode `json:"nodes"`
	Rendered  string       `json:"rendered"`
}

// ListInput defines the input for the geotree_list tool.
type ListInput struct{}

// ListOutput defines the output for the geotree_list tool.
type ListOutput struct {
	Runs  []RunListItem `json:"runs" jsonschema:"Stored runs, newest first"`
	Count int           `json:"count"`
}

// RunListItem provides a list view of a stored run.
type RunListItem struct {
	ID        string `json:"id"`
	Mode      string `json:"mode"`
	CreatedAt string `json:"created_at"`
	Nodes     int    `json:"nodes"`
	Roots     int    `json:"roots"`
}

// DeleteInput defines the input for the geotree_delete tool.
type DeleteInput struct {
	RunID string `json:"run_id" jsonschema:"ID of the run to delete"`
}

// DeleteOutput defines the output for the geotree_delete tool.
type DeleteOutput struct {
	RunID   string `json:"run_id"`
	Deleted bool   `json:"deleted"`
}
