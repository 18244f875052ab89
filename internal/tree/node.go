package tree

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nvandessel/geotree/internal/geo"
)

// Node is an entity in the tree. Its correlation map is only mutated by the
// Manager, which writes both directions of every edge together; callers
// outside this package get read access.
type Node struct {
	id           NodeID
	correlations map[NodeID]Correlation
	prohibited   map[RelationType]bool
	aggregate    bool

	// Assembled by MakeTree.
	parent    NodeID
	hasParent bool
	children  []NodeID
}

func newNode(id NodeID) *Node {
	return &Node{
		id:           id,
		correlations: make(map[NodeID]Correlation),
		prohibited:   make(map[RelationType]bool),
	}
}

// ID returns the node's id.
func (n *Node) ID() NodeID { return n.id }

// IsAggregate reports whether MakeTree synthesized this node as the common
// parent of a sibling group.
func (n *Node) IsAggregate() bool { return n.aggregate }

// AssembledParent returns the parent link set by MakeTree.
func (n *Node) AssembledParent() (NodeID, bool) { return n.parent, n.hasParent }

// Children returns a copy of the children links set by MakeTree, in link order.
func (n *Node) Children() []NodeID { return slices.Clone(n.children) }

// Peers returns the ids of all correlated peers in ascending order.
func (n *Node) Peers() []NodeID {
	return slices.Sorted(maps.Keys(n.correlations))
}

// Correlations returns every correlation ordered by peer id.
func (n *Node) Correlations() []PeerCorrelation {
	out := make([]PeerCorrelation, 0, len(n.correlations))
	for _, peer := range n.Peers() {
		out = append(out, PeerCorrelation{Peer: peer, Correlation: n.correlations[peer]})
	}
	return out
}

// Correlation returns the correlation to peer.
func (n *Node) Correlation(peer NodeID) (Correlation, bool) {
	c, ok := n.correlations[peer]
	return c, ok
}

func (n *Node) IsCorrelated(peer NodeID) bool {
	_, ok := n.correlations[peer]
	return ok
}

// Relation returns the peer's role relative to this node.
func (n *Node) Relation(peer NodeID) (RelationType, bool) {
	c, ok := n.correlations[peer]
	return c.Relation, ok
}

func (n *Node) Score(peer NodeID) (float64, bool) {
	c, ok := n.correlations[peer]
	return c.Score, ok
}

func (n *Node) Anchor(peer NodeID) (geo.Point, bool) {
	c, ok := n.correlations[peer]
	return c.Anchor, ok
}

// IsProhibited reports whether this node refuses correlations of relation r.
func (n *Node) IsProhibited(r RelationType) bool { return n.prohibited[r] }

// Prohibited returns the vetoed relations in enum order.
func (n *Node) Prohibited() []RelationType {
	return slices.Sorted(maps.Keys(n.prohibited))
}

// IsPrimary reports whether the node has no Parent and no Sibling
// correlation. Child correlations do not disqualify a node.
func (n *Node) IsPrimary() bool {
	for _, c := range n.correlations {
		if c.Relation == RelationParent || c.Relation == RelationSibling {
			return false
		}
	}
	return true
}

// HasConflict reports whether the node has exactly one parent and at least
// one sibling. More than one parent is an invariant violation.
func (n *Node) HasConflict() (bool, error) {
	parents, siblings := n.count()
	if parents > 1 {
		return false, n.multipleParents(parents)
	}
	return parents == 1 && siblings > 0, nil
}

// HasParent reports whether the node has a Parent correlation.
func (n *Node) HasParent() (bool, error) {
	parents, _ := n.count()
	if parents > 1 {
		return false, n.multipleParents(parents)
	}
	return parents == 1, nil
}

// Parent returns the single Parent correlation's peer.
func (n *Node) Parent() (NodeID, error) {
	parents := n.withRelation(RelationParent)
	switch len(parents) {
	case 0:
		return 0, fmt.Errorf("%w: node %d has no parent", ErrInvariantViolation, n.id)
	case 1:
		return parents[0], nil
	default:
		return 0, n.multipleParents(len(parents))
	}
}

// Parents returns every Parent correlation's peer. Only FindBestParent
// expects more than one.
func (n *Node) Parents() []NodeID { return n.withRelation(RelationParent) }

func (n *Node) HasSiblings() bool {
	_, siblings := n.count()
	return siblings > 0
}

// Siblings returns the sibling peers in ascending order. Callers must check
// HasSiblings first.
func (n *Node) Siblings() ([]NodeID, error) {
	siblings := n.withRelation(RelationSibling)
	if len(siblings) == 0 {
		return nil, fmt.Errorf("%w: node %d has no siblings", ErrInvariantViolation, n.id)
	}
	return siblings, nil
}

func (n *Node) count() (parents, siblings int) {
	for _, c := range n.correlations {
		switch c.Relation {
		case RelationParent:
			parents++
		case RelationSibling:
			siblings++
		}
	}
	return parents, siblings
}

func (n *Node) withRelation(r RelationType) []NodeID {
	var out []NodeID
	for _, peer := range n.Peers() {
		if n.correlations[peer].Relation == r {
			out = append(out, peer)
		}
	}
	return out
}

func (n *Node) multipleParents(count int) error {
	return fmt.Errorf("%w: node %d has %d parents", ErrInvariantViolation, n.id, count)
}

// addCorrelation upserts the correlation to peer.
func (n *Node) addCorrelation(peer NodeID, c Correlation) {
	n.correlations[peer] = c
}

func (n *Node) editCorrelation(peer NodeID, c Correlation) error {
	if _, ok := n.correlations[peer]; !ok {
		return n.missing(peer)
	}
	n.correlations[peer] = c
	return nil
}

func (n *Node) editScore(peer NodeID, score float64) error {
	c, ok := n.correlations[peer]
	if !ok {
		return n.missing(peer)
	}
	c.Score = score
	n.correlations[peer] = c
	return nil
}

func (n *Node) editAnchor(peer NodeID, anchor geo.Point) error {
	c, ok := n.correlations[peer]
	if !ok {
		return n.missing(peer)
	}
	c.Anchor = anchor
	n.correlations[peer] = c
	return nil
}

func (n *Node) editRelation(peer NodeID, r RelationType) error {
	c, ok := n.correlations[peer]
	if !ok {
		return n.missing(peer)
	}
	c.Relation = r
	n.correlations[peer] = c
	return nil
}

// eraseCorrelation removes the correlation to peer; absent peers are a no-op.
func (n *Node) eraseCorrelation(peer NodeID) {
	delete(n.correlations, peer)
}

func (n *Node) prohibit(r RelationType) { n.prohibited[r] = true }

func (n *Node) missing(peer NodeID) error {
	return fmt.Errorf("%w: node %d has no correlation with %d", ErrNotFound, n.id, peer)
}
