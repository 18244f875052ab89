package tree

import (
	"fmt"
	"log/slog"

	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/geo"
	"github.com/nvandessel/geotree/internal/logging"
)

// Auditor receives one event per applied or vetoed edit.
// logging.DecisionLogger satisfies it.
type Auditor interface {
	Log(event map[string]any)
}

// Options configures a Manager.
type Options struct {
	// Loose merges disagreeing siblings onto a common anchor instead of
	// keeping only the best one.
	Loose bool

	// ReconcileSiblingParents enables the ResolveSiblingsWithDifferentParent
	// pass between ParentIsSiblingsSibling and IfConflictRemoveSibling.
	ReconcileSiblingParents bool

	// ZeroFloor makes FindBestParent and strict SortSiblings ignore
	// candidates scoring <= 0.
	ZeroFloor bool

	Logger  *slog.Logger
	Auditor Auditor
}

// Manager edits correlations symmetrically, runs the resolution pipeline
// and assembles the tree. It is not safe for concurrent use.
type Manager struct {
	registry *NodeRegistry
	opts     Options
	logger   *slog.Logger
	built    bool
}

// NewManager creates a Manager over an empty registry.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		registry: NewNodeRegistry(),
		opts:     opts,
		logger:   logger,
	}
}

// Options returns the options the Manager was created with.
func (m *Manager) Options() Options { return m.opts }

// AddNode registers a node with a caller-chosen id.
func (m *Manager) AddNode(id NodeID) (*Node, error) {
	return m.registry.AddNode(id)
}

// NewNode registers a node under a freshly allocated id.
func (m *Manager) NewNode() (*Node, error) {
	return m.registry.NewNode()
}

// SetObjects registers count nodes with ids 0, 2, 4, ...
func (m *Manager) SetObjects(count int) ([]NodeID, error) {
	ids := make([]NodeID, 0, count)
	for i := 0; i < count; i++ {
		id := NodeID(i * constants.SeedIDStride)
		if _, err := m.registry.AddNode(id); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Manager) Node(id NodeID) (*Node, error)   { return m.registry.Node(id) }
func (m *Manager) Lookup(id NodeID) (*Node, error) { return m.registry.Lookup(id) }
func (m *Manager) NodeExists(id NodeID) bool       { return m.registry.NodeExists(id) }
func (m *Manager) IDs() []NodeID                   { return m.registry.IDs() }
func (m *Manager) IDAt(idx int) (NodeID, error)    { return m.registry.IDAt(idx) }
func (m *Manager) Len() int                        { return m.registry.Len() }
func (m *Manager) Roots() []NodeID                 { return m.registry.Roots() }
func (m *Manager) IsPlaced(id NodeID) bool         { return m.registry.IsPlaced(id) }

// Built reports whether MakeTree has run since the last Reset.
func (m *Manager) Built() bool { return m.built }

// Reset clears every node, correlation and assembled link.
func (m *Manager) Reset() {
	m.registry.Reset()
	m.built = false
}

// Prohibit makes node id refuse correlations in which its peer would hold relation rel.
func (m *Manager) Prohibit(id NodeID, rel RelationType) error {
	n, err := m.registry.Node(id)
	if err != nil {
		return err
	}
	n.prohibit(rel)
	return nil
}

// pair loads both ends of an edge.
func (m *Manager) pair(id1, id2 NodeID) (*Node, *Node, error) {
	n1, err := m.registry.Node(id1)
	if err != nil {
		return nil, nil, err
	}
	n2, err := m.registry.Node(id2)
	if err != nil {
		return nil, nil, err
	}
	if id1 == id2 {
		return nil, nil, fmt.Errorf("%w: node %d cannot correlate with itself", ErrInvariantViolation, id1)
	}
	return n1, n2, nil
}

// vetoed reports whether either end refuses rel and audits the dropped edit.
func (m *Manager) vetoed(op string, n1, n2 *Node, rel RelationType) bool {
	inv := rel.Inverse()
	if !n1.IsProhibited(rel) && !n2.IsProhibited(inv) {
		return false
	}
	m.logger.Debug("correlation vetoed", "op", op, "a", n1.id, "b", n2.id, "relation", rel.String())
	m.audit(map[string]any{
		"event":    "correlation_vetoed",
		"op":       op,
		"a":        uint64(n1.id),
		"b":        uint64(n2.id),
		"relation": rel.String(),
	})
	return true
}

func (m *Manager) audit(event map[string]any) {
	if m.opts.Auditor != nil {
		m.opts.Auditor.Log(event)
	}
}

// AddCorrelation upserts the id1-id2 edge. rel is id2's role relative to
// id1; id2 records the inverse. A veto on either side drops the edit
// without error.
func (m *Manager) AddCorrelation(id1, id2 NodeID, score float64, anchor geo.Point, rel RelationType) error {
	_, err := m.addCorrelation(id1, id2, score, anchor, rel)
	return err
}

// addCorrelation is AddCorrelation that also reports whether the edge was written.
func (m *Manager) addCorrelation(id1, id2 NodeID, score float64, anchor geo.Point, rel RelationType) (bool, error) {
	n1, n2, err := m.pair(id1, id2)
	if err != nil {
		return false, err
	}
	if m.vetoed("add", n1, n2, rel) {
		return false, nil
	}
	n1.addCorrelation(id2, Correlation{Score: score, Anchor: anchor, Relation: rel})
	n2.addCorrelation(id1, Correlation{Score: score, Anchor: anchor, Relation: rel.Inverse()})
	return true, nil
}

// requireEdge fails with ErrNotFound unless both directions of the edge exist.
func requireEdge(n1, n2 *Node) error {
	if !n1.IsCorrelated(n2.id) {
		return n1.missing(n2.id)
	}
	if !n2.IsCorrelated(n1.id) {
		return n2.missing(n1.id)
	}
	return nil
}

// EditCorrelation replaces an existing edge.
func (m *Manager) EditCorrelation(id1, id2 NodeID, score float64, anchor geo.Point, rel RelationType) error {
	n1, n2, err := m.pair(id1, id2)
	if err != nil {
		return err
	}
	if err := requireEdge(n1, n2); err != nil {
		return err
	}
	if m.vetoed("edit", n1, n2, rel) {
		return nil
	}
	_ = n1.editCorrelation(id2, Correlation{Score: score, Anchor: anchor, Relation: rel})
	_ = n2.editCorrelation(id1, Correlation{Score: score, Anchor: anchor, Relation: rel.Inverse()})
	return nil
}

func (m *Manager) EditScore(id1, id2 NodeID, score float64) error {
	n1, n2, err := m.pair(id1, id2)
	if err != nil {
		return err
	}
	if err := requireEdge(n1, n2); err != nil {
		return err
	}
	_ = n1.editScore(id2, score)
	_ = n2.editScore(id1, score)
	return nil
}

func (m *Manager) EditAnchor(id1, id2 NodeID, anchor geo.Point) error {
	n1, n2, err := m.pair(id1, id2)
	if err != nil {
		return err
	}
	if err := requireEdge(n1, n2); err != nil {
		return err
	}
	_ = n1.editAnchor(id2, anchor)
	_ = n2.editAnchor(id1, anchor)
	return nil
}

// EditRelation retypes an existing edge; rel is id2's new role relative to id1.
func (m *Manager) EditRelation(id1, id2 NodeID, rel RelationType) error {
	n1, n2, err := m.pair(id1, id2)
	if err != nil {
		return err
	}
	if err := requireEdge(n1, n2); err != nil {
		return err
	}
	if m.vetoed("edit_relation", n1, n2, rel) {
		return nil
	}
	_ = n1.editRelation(id2, rel)
	_ = n2.editRelation(id1, rel.Inverse())
	return nil
}

// EraseCorrelation removes both directions of the edge. Erasing an absent
// edge between known nodes is a no-op.
func (m *Manager) EraseCorrelation(id1, id2 NodeID) error {
	n1, n2, err := m.pair(id1, id2)
	if err != nil {
		return err
	}
	n1.eraseCorrelation(id2)
	n2.eraseCorrelation(id1)
	return nil
}
