// Package store defines the SnapshotStore interface for persisting resolved
// geotree runs.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/tree"
)

// ErrRunNotFound is returned by Get and Delete for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Run is one resolved and assembled forest together with the options that
// produced it.
type Run struct {
	ID                      string                `json:"id"`
	Mode                    constants.SiblingMode `json:"mode"`
	ReconcileSiblingParents bool                  `json:"reconcile_sibling_parents,omitempty"`
	ZeroFloor               bool                  `json:"zero_floor,omitempty"`
	CreatedAt               time.Time             `json:"created_at"`
	Snapshot                tree.Snapshot         `json:"snapshot"`
}

// NewRun wraps a snapshot taken with opts.
func NewRun(snap tree.Snapshot, opts tree.Options) *Run {
	mode := constants.ModeStrict
	if opts.Loose {
		mode = constants.ModeLoose
	}
	return &Run{
		Mode:                    mode,
		ReconcileSiblingParents: opts.ReconcileSiblingParents,
		ZeroFloor:               opts.ZeroFloor,
		Snapshot:                snap,
	}
}

// RunSummary is the listing form of a Run.
type RunSummary struct {
	ID        string                `json:"id"`
	Mode      constants.SiblingMode `json:"mode"`
	CreatedAt time.Time             `json:"created_at"`
	Nodes     int                   `json:"nodes"`
	Roots     int                   `json:"roots"`
}

// SnapshotStore defines the interface for storing resolved runs.
type SnapshotStore interface {
	// Save stores run and returns its id. A run without an id gets its
	// content hash, so saving the same forest twice keeps one copy.
	Save(ctx context.Context, run *Run) (string, error)

	// Get returns the run with id, or ErrRunNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns every run, newest first.
	List(ctx context.Context) ([]RunSummary, error)

	// Delete removes a run, or returns ErrRunNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}

// prepareRun fills in the id and creation time of a run about to be saved.
func prepareRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	if !run.Mode.Valid() {
		return fmt.Errorf("invalid mode %q", run.Mode)
	}
	if err := run.Snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	if run.ID == "" {
		id, err := contentID(run)
		if err != nil {
			return err
		}
		run.ID = id
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	return nil
}

// contentID hashes everything about a run except its id and timestamp.
func contentID(run *Run) (string, error) {
	data, err := json.Marshal(struct {
		Mode                    constants.SiblingMode `json:"mode"`
		ReconcileSiblingParents bool                  `json:"reconcile_sibling_parents"`
		ZeroFloor               bool                  `json:"zero_floor"`
		Snapshot                tree.Snapshot         `json:"snapshot"`
	}{run.Mode, run.ReconcileSiblingParents, run.ZeroFloor, run.Snapshot})
	if err != nil {
		return "", fmt.Errorf("failed to encode run: %w", err)
	}
	return computeContentHash(data), nil
}

func computeContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:8]) // First 8 bytes for shorter hash
}

func summarize(run *Run) RunSummary {
	return RunSummary{
		ID:        run.ID,
		Mode:      run.Mode,
		CreatedAt: run.CreatedAt,
		Nodes:     len(run.Snapshot.Nodes),
		Roots:     len(run.Snapshot.Roots),
	}
}
