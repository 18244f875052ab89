package tree

import (
	"fmt"

	"github.com/nvandessel/geotree/internal/constants"
)

// MakeTree links every node under its resolved parent and registers roots.
// Primary nodes become roots. A node whose only relations are siblings gets
// a synthesized aggregate parent, registered as a root, holding the node and
// its siblings as children. Aggregate ids come from the registry allocator.
//
// A node still in conflict is linked under its parent and its sibling edges
// are ignored. MakeTree runs once; later calls return ErrTreeAlreadyBuilt
// until Reset.
func (m *Manager) MakeTree() error {
	if m.built {
		return ErrTreeAlreadyBuilt
	}
	m.built = true

	for _, id := range m.registry.IDs() {
		if m.registry.IsPlaced(id) {
			continue
		}
		n, err := m.registry.Node(id)
		if err != nil {
			return err
		}

		if n.IsPrimary() {
			if err := m.registry.AddRoot(id); err != nil {
				return err
			}
			continue
		}

		hasParent, err := n.HasParent()
		if err != nil {
			return err
		}
		if hasParent {
			parent, err := n.Parent()
			if err != nil {
				return err
			}
			if err := m.registry.Link(parent, id); err != nil {
				return err
			}
			if n.HasSiblings() {
				m.logger.Debug("node still in conflict at assembly, sibling edges ignored", "node", id, "parent", parent)
			}
			continue
		}

		if n.HasSiblings() {
			if err := m.aggregate(n); err != nil {
				return err
			}
		}
	}
	m.logger.Debug("tree assembled", "nodes", m.registry.Len(), "roots", len(m.registry.roots))
	return nil
}

// aggregate places n and its siblings under a shared aggregate root. All
// sibling anchors must already agree. A sibling already under an aggregate
// pulls n into that aggregate; a sibling with its own parent is left to it.
func (m *Manager) aggregate(n *Node) error {
	siblings, err := n.Siblings()
	if err != nil {
		return err
	}
	anchor, _ := n.Anchor(siblings[0])
	for _, s := range siblings[1:] {
		a, _ := n.Anchor(s)
		if !a.Equal(anchor) {
			return fmt.Errorf("%w: node %d has siblings at different anchors (%s vs %s)",
				ErrInvariantViolation, n.id, anchor, a)
		}
	}

	var g *Node
	members := []NodeID{n.id}
	for _, s := range siblings {
		sn, err := m.registry.Node(s)
		if err != nil {
			return err
		}
		if p, linked := sn.AssembledParent(); linked {
			pn, err := m.registry.Node(p)
			if err != nil {
				return err
			}
			switch {
			case g == nil && pn.aggregate:
				g = pn
			case g != nil && p == g.id:
			default:
				return fmt.Errorf("%w: sibling %d of node %d already placed under %d",
					ErrInvariantViolation, s, n.id, p)
			}
			continue
		}
		hasParent, err := sn.HasParent()
		if err != nil {
			return err
		}
		if hasParent {
			m.logger.Debug("sibling has its own parent, left out of aggregate", "node", n.id, "sibling", s)
			continue
		}
		members = append(members, s)
	}

	if g == nil {
		if len(members) == 1 {
			return m.registry.AddRoot(n.id)
		}
		if g, err = m.registry.NewNode(); err != nil {
			return err
		}
		g.aggregate = true
		if err := m.registry.AddRoot(g.id); err != nil {
			return err
		}
		m.audit(map[string]any{
			"event":     "aggregate_created",
			"aggregate": uint64(g.id),
		})
	}

	for _, child := range members {
		if err := m.registry.Link(g.id, child); err != nil {
			return err
		}
		if err := m.AddCorrelation(child, g.id, constants.AggregateParentScore, anchor, RelationParent); err != nil {
			return err
		}
	}
	m.logger.Debug("aggregate parent assigned", "aggregate", g.id, "members", members)
	return nil
}
