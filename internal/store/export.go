package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/tree"
)

// jsonlHeader is the first line of an exported run.
type jsonlHeader struct {
	Run                     string                `json:"run"`
	Mode                    constants.SiblingMode `json:"mode"`
	ReconcileSiblingParents bool                  `json:"reconcile_sibling_parents,omitempty"`
	ZeroFloor               bool                  `json:"zero_floor,omitempty"`
	CreatedAt               time.Time             `json:"created_at"`
	Roots                   []tree.NodeID         `json:"roots"`
}

// ExportJSONL writes run as JSON lines: a header with the run's options and
// roots, then one line per node record.
func ExportJSONL(w io.Writer, run *Run) error {
	enc := json.NewEncoder(w)
	header := jsonlHeader{
		Run:                     run.ID,
		Mode:                    run.Mode,
		ReconcileSiblingParents: run.ReconcileSiblingParents,
		ZeroFloor:               run.ZeroFloor,
		CreatedAt:               run.CreatedAt,
		Roots:                   run.Snapshot.Roots,
	}
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	for _, rec := range run.Snapshot.Nodes {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode node %d: %w", rec.ID, err)
		}
	}
	return nil
}

// ImportJSONL reads a run written by ExportJSONL.
func ImportJSONL(r io.Reader) (*Run, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024) // 1MB max line length

	var run *Run
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if run == nil {
			var header jsonlHeader
			if err := json.Unmarshal(line, &header); err != nil {
				return nil, fmt.Errorf("line %d: invalid header: %w", lineNum, err)
			}
			run = &Run{
				ID:                      header.Run,
				Mode:                    header.Mode,
				ReconcileSiblingParents: header.ReconcileSiblingParents,
				ZeroFloor:               header.ZeroFloor,
				CreatedAt:               header.CreatedAt,
				Snapshot:                tree.Snapshot{Roots: header.Roots},
			}
			continue
		}

		var rec tree.NodeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: invalid node: %w", lineNum, err)
		}
		run.Snapshot.Nodes = append(run.Snapshot.Nodes, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("empty export")
	}
	if !run.Mode.Valid() {
		return nil, fmt.Errorf("invalid mode %q", run.Mode)
	}
	if err := run.Snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return run, nil
}
