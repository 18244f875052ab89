package tree

import (
	"fmt"

	"github.com/nvandessel/geotree/internal/geo"
)

// View is the read-only access a ResolutionStrategy gets to the registry.
type View interface {
	Lookup(id NodeID) (*Node, error)
}

// EditOp identifies the kind of change an Edit proposes.
type EditOp int

const (
	// EditErase removes the A-B correlation in both directions.
	EditErase EditOp = iota
	// EditAnchor moves the existing A-B correlation to Correlation.Anchor.
	EditAnchor
	// EditAdd upserts A-B with Correlation; Correlation.Relation is B's role relative to A.
	EditAdd
)

func (op EditOp) String() string {
	switch op {
	case EditErase:
		return "erase"
	case EditAnchor:
		return "anchor"
	case EditAdd:
		return "add"
	default:
		return fmt.Sprintf("EditOp(%d)", int(op))
	}
}

// Edit is a change a strategy proposes. The Manager applies it through its
// symmetric edit operations so both directions stay consistent.
type Edit struct {
	Op          EditOp
	A, B        NodeID
	Correlation Correlation
	Reason      string
}

func erase(a, b NodeID, reason string) Edit {
	return Edit{Op: EditErase, A: a, B: b, Reason: reason}
}

func moveAnchor(a, b NodeID, anchor geo.Point, reason string) Edit {
	return Edit{Op: EditAnchor, A: a, B: b, Correlation: Correlation{Anchor: anchor}, Reason: reason}
}

func add(a, b NodeID, c Correlation, reason string) Edit {
	return Edit{Op: EditAdd, A: a, B: b, Correlation: c, Reason: reason}
}

// ResolutionStrategy is a pluggable per-node conflict resolver. Resolve
// inspects node id through v and proposes edits; it must not mutate nodes.
// A strategy that finds nothing to fix returns no edits.
type ResolutionStrategy interface {
	Name() string
	Resolve(v View, id NodeID) ([]Edit, error)
}

// conflictContext loads a conflicted node, its parent and its siblings.
// ok is false when the node is not in conflict.
func conflictContext(v View, id NodeID) (n *Node, parent NodeID, siblings []NodeID, ok bool, err error) {
	n, err = v.Lookup(id)
	if err != nil {
		return nil, 0, nil, false, err
	}
	conflict, err := n.HasConflict()
	if err != nil || !conflict {
		return n, 0, nil, false, err
	}
	if parent, err = n.Parent(); err != nil {
		return n, 0, nil, false, err
	}
	if siblings, err = n.Siblings(); err != nil {
		return n, 0, nil, false, err
	}
	return n, parent, siblings, true, nil
}
