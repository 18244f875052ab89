package tree

import (
	"errors"
	"fmt"
	"math"
)

// Snapshot is a detached copy of the registry after assembly, used for
// rendering and persistence.
type Snapshot struct {
	Roots []NodeID     `json:"roots"`
	Nodes []NodeRecord `json:"nodes"`
}

// NodeRecord is one node in a Snapshot.
type NodeRecord struct {
	ID           NodeID            `json:"id"`
	Parent       *NodeID           `json:"parent,omitempty"`
	Children     []NodeID          `json:"children,omitempty"`
	Aggregate    bool              `json:"aggregate,omitempty"`
	Prohibited   []RelationType    `json:"prohibited,omitempty"`
	Correlations []PeerCorrelation `json:"correlations,omitempty"`
}

// Snapshot copies every node in insertion order. It can be taken before
// MakeTree, in which case no node has a parent and Roots is empty.
func (m *Manager) Snapshot() Snapshot {
	snap := Snapshot{
		Roots: m.registry.Roots(),
		Nodes: make([]NodeRecord, 0, m.registry.Len()),
	}
	for _, n := range m.registry.nodes {
		rec := NodeRecord{
			ID:         n.id,
			Children:   n.Children(),
			Aggregate:  n.aggregate,
			Prohibited: n.Prohibited(),
		}
		if n.hasParent {
			p := n.parent
			rec.Parent = &p
		}
		if corr := n.Correlations(); len(corr) > 0 {
			rec.Correlations = corr
		}
		snap.Nodes = append(snap.Nodes, rec)
	}
	return snap
}

// Node returns the record for id.
func (s Snapshot) Node(id NodeID) (NodeRecord, bool) {
	for _, rec := range s.Nodes {
		if rec.ID == id {
			return rec, true
		}
	}
	return NodeRecord{}, false
}

// Children indexes the snapshot's children links by parent.
func (s Snapshot) Children() map[NodeID][]NodeID {
	out := make(map[NodeID][]NodeID, len(s.Nodes))
	for _, rec := range s.Nodes {
		if len(rec.Children) > 0 {
			out[rec.ID] = rec.Children
		}
	}
	return out
}

// Validate checks that the snapshot describes a forest: ids are unique,
// children and parent links agree, roots have no parent, no chain of
// parent links loops back on itself, and every correlation is finite.
// Snapshots taken from a Manager always pass; imported ones may not.
func (s Snapshot) Validate() error {
	index := make(map[NodeID]int, len(s.Nodes))
	for i, rec := range s.Nodes {
		if _, dup := index[rec.ID]; dup {
			return fmt.Errorf("%w: duplicate node %d", ErrInvariantViolation, rec.ID)
		}
		index[rec.ID] = i
	}

	var errs []error
	listed := make(map[NodeID]NodeID)
	for _, rec := range s.Nodes {
		for _, c := range rec.Children {
			i, ok := index[c]
			if !ok {
				errs = append(errs, fmt.Errorf("node %d lists unknown child %d", rec.ID, c))
				continue
			}
			if prev, seen := listed[c]; seen {
				errs = append(errs, fmt.Errorf("node %d is listed as a child of both %d and %d", c, prev, rec.ID))
				continue
			}
			listed[c] = rec.ID
			if p := s.Nodes[i].Parent; p == nil || *p != rec.ID {
				errs = append(errs, fmt.Errorf("node %d lists child %d whose parent does not point back", rec.ID, c))
			}
		}
		for _, pc := range rec.Correlations {
			if math.IsNaN(pc.Score) || math.IsInf(pc.Score, 0) || !pc.Anchor.IsFinite() {
				errs = append(errs, fmt.Errorf("node %d: correlation with %d is not finite", rec.ID, pc.Peer))
			}
		}
	}
	for _, rec := range s.Nodes {
		if rec.Parent == nil {
			continue
		}
		if _, ok := index[*rec.Parent]; !ok {
			errs = append(errs, fmt.Errorf("node %d has unknown parent %d", rec.ID, *rec.Parent))
		} else if by, ok := listed[rec.ID]; !ok || by != *rec.Parent {
			errs = append(errs, fmt.Errorf("node %d names parent %d, which does not list it", rec.ID, *rec.Parent))
		}
	}

	rootSeen := make(map[NodeID]bool, len(s.Roots))
	for _, r := range s.Roots {
		i, ok := index[r]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("unknown root %d", r))
		case rootSeen[r]:
			errs = append(errs, fmt.Errorf("duplicate root %d", r))
		case s.Nodes[i].Parent != nil:
			errs = append(errs, fmt.Errorf("root %d has parent %d", r, *s.Nodes[i].Parent))
		}
		rootSeen[r] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvariantViolation, errors.Join(errs...))
	}

	// Links are consistent, so each node has at most one parent and a loop
	// shows up as a parent chain longer than the node count.
	done := make(map[NodeID]bool, len(s.Nodes))
	for _, rec := range s.Nodes {
		var chain []NodeID
		for cur := rec; !done[cur.ID]; {
			if len(chain) > len(s.Nodes) {
				return fmt.Errorf("%w: parent links of node %d form a cycle", ErrInvariantViolation, rec.ID)
			}
			chain = append(chain, cur.ID)
			if cur.Parent == nil {
				break
			}
			cur = s.Nodes[index[*cur.Parent]]
		}
		for _, id := range chain {
			done[id] = true
		}
	}
	return nil
}
