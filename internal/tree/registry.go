package tree

import (
	"fmt"
	"math"
	"slices"
)

// NodeRegistry owns every Node. Nodes live in a dense slice in insertion
// order with an id->index map for lookup. The registry is the only writer
// of children links, and it refuses any link that would make a node its own
// descendant, so the assembled forest is acyclic by construction.
type NodeRegistry struct {
	nodes []*Node
	index map[NodeID]int
	roots []NodeID
	next  NodeID
	// full is set once the maximum id is registered; next cannot advance past it.
	full bool
}

// NewNodeRegistry creates an empty registry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{index: make(map[NodeID]int)}
}

// AddNode registers a node with a caller-chosen id.
func (r *NodeRegistry) AddNode(id NodeID) (*Node, error) {
	if _, exists := r.index[id]; exists {
		return nil, fmt.Errorf("%w: node %d", ErrAlreadyExists, id)
	}
	n := newNode(id)
	r.index[id] = len(r.nodes)
	r.nodes = append(r.nodes, n)
	switch {
	case id == math.MaxUint64:
		r.full = true
	case id >= r.next:
		r.next = id + 1
	}
	return n, nil
}

// NewNode registers a node under a freshly allocated id. Allocation is
// monotonic past every id the registry has seen.
func (r *NodeRegistry) NewNode() (*Node, error) {
	if r.full {
		return nil, fmt.Errorf("%w: node %d is registered", ErrIDsExhausted, NodeID(math.MaxUint64))
	}
	return r.AddNode(r.next)
}

// Node returns the node for id.
func (r *NodeRegistry) Node(id NodeID) (*Node, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	return r.nodes[i], nil
}

// Lookup is the read-only form of Node used by resolution strategies.
func (r *NodeRegistry) Lookup(id NodeID) (*Node, error) {
	return r.Node(id)
}

func (r *NodeRegistry) NodeExists(id NodeID) bool {
	_, ok := r.index[id]
	return ok
}

// IDs returns every registered id in insertion order.
func (r *NodeRegistry) IDs() []NodeID {
	ids := make([]NodeID, len(r.nodes))
	for i, n := range r.nodes {
		ids[i] = n.id
	}
	return ids
}

// IDAt returns the id stored at insertion index idx.
func (r *NodeRegistry) IDAt(idx int) (NodeID, error) {
	if idx < 0 || idx >= len(r.nodes) {
		return 0, fmt.Errorf("%w: index %d out of range [0, %d)", ErrNotFound, idx, len(r.nodes))
	}
	return r.nodes[idx].id, nil
}

func (r *NodeRegistry) Len() int { return len(r.nodes) }

// AddRoot appends id to the assembled root list.
func (r *NodeRegistry) AddRoot(id NodeID) error {
	n, err := r.Node(id)
	if err != nil {
		return err
	}
	if n.hasParent {
		return fmt.Errorf("%w: node %d is linked under %d and cannot be a root", ErrInvariantViolation, id, n.parent)
	}
	if slices.Contains(r.roots, id) {
		return fmt.Errorf("%w: node %d is already a root", ErrAlreadyExists, id)
	}
	r.roots = append(r.roots, id)
	return nil
}

// Roots returns the assembled roots in the order they were added.
func (r *NodeRegistry) Roots() []NodeID { return slices.Clone(r.roots) }

// Link makes child a child of parent. It fails if child already has a
// parent, is a root, or if parent lies in child's subtree.
func (r *NodeRegistry) Link(parent, child NodeID) error {
	p, err := r.Node(parent)
	if err != nil {
		return err
	}
	c, err := r.Node(child)
	if err != nil {
		return err
	}
	if parent == child {
		return fmt.Errorf("%w: node %d cannot be its own parent", ErrInvariantViolation, child)
	}
	if c.hasParent {
		return fmt.Errorf("%w: node %d already linked under %d, refusing %d", ErrInvariantViolation, child, c.parent, parent)
	}
	if slices.Contains(r.roots, child) {
		return fmt.Errorf("%w: root %d cannot be linked under %d", ErrInvariantViolation, child, parent)
	}
	if r.IsDescendantOf(parent, child) {
		return fmt.Errorf("%w: linking %d under %d would form a cycle", ErrInvariantViolation, child, parent)
	}
	p.children = append(p.children, child)
	c.parent = parent
	c.hasParent = true
	return nil
}

// IsDescendantOf reports whether candidate is reachable from root through
// children links. root itself is not its own descendant.
func (r *NodeRegistry) IsDescendantOf(candidate, root NodeID) bool {
	start, ok := r.index[root]
	if !ok {
		return false
	}
	stack := slices.Clone(r.nodes[start].children)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == candidate {
			return true
		}
		if i, ok := r.index[id]; ok {
			stack = append(stack, r.nodes[i].children...)
		}
	}
	return false
}

// IsPlaced reports whether id is a root or a descendant of one.
func (r *NodeRegistry) IsPlaced(id NodeID) bool {
	for _, root := range r.roots {
		if root == id || r.IsDescendantOf(id, root) {
			return true
		}
	}
	return false
}

// Reset drops every node, link and root and restarts id allocation.
func (r *NodeRegistry) Reset() {
	r.nodes = nil
	r.index = make(map[NodeID]int)
	r.roots = nil
	r.next = 0
	r.full = false
}
