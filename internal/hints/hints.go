// Package hints reads and writes the input document for a geotree run: the
// nodes to place and the scored, anchored correlation hints between them.
// Documents are YAML; JSON documents parse too.
package hints

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/geotree/internal/geo"
	"github.com/nvandessel/geotree/internal/tree"
)

// Document is a set of nodes and correlation hints.
type Document struct {
	Nodes        []NodeHint        `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Correlations []CorrelationHint `json:"correlations" yaml:"correlations"`
}

// NodeHint declares a node and the relations it refuses.
type NodeHint struct {
	ID       uint64   `json:"id" yaml:"id"`
	Prohibit []string `json:"prohibit,omitempty" yaml:"prohibit,omitempty"`
}

// CorrelationHint is one edge. Relation is B's role relative to A.
type CorrelationHint struct {
	A        uint64    `json:"a" yaml:"a"`
	B        uint64    `json:"b" yaml:"b"`
	Relation string    `json:"relation" yaml:"relation"`
	Score    float64   `json:"score" yaml:"score"`
	Anchor   []float64 `json:"anchor,omitempty" yaml:"anchor,omitempty,flow"`
}

// Parse decodes and validates a document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing hints: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and parses a document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hints file: %w", err)
	}
	return Parse(data)
}

// Marshal encodes doc as YAML.
func Marshal(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// Validate checks every hint and reports all problems at once.
func (d *Document) Validate() error {
	var errs []error
	seen := make(map[uint64]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if seen[n.ID] {
			errs = append(errs, fmt.Errorf("nodes[%d]: duplicate id %d", i, n.ID))
		}
		seen[n.ID] = true
		for _, p := range n.Prohibit {
			if _, err := tree.ParseRelation(p); err != nil {
				errs = append(errs, fmt.Errorf("nodes[%d]: %w", i, err))
			}
		}
	}
	for i, c := range d.Correlations {
		if c.A == c.B {
			errs = append(errs, fmt.Errorf("correlations[%d]: node %d correlated with itself", i, c.A))
		}
		if _, err := tree.ParseRelation(c.Relation); err != nil {
			errs = append(errs, fmt.Errorf("correlations[%d]: %w", i, err))
		}
		if math.IsNaN(c.Score) || math.IsInf(c.Score, 0) {
			errs = append(errs, fmt.Errorf("correlations[%d]: score %v is not finite", i, c.Score))
		}
		if p, err := geo.FromSlice(c.Anchor); err != nil {
			errs = append(errs, fmt.Errorf("correlations[%d]: anchor: %w", i, err))
		} else if !p.IsFinite() {
			errs = append(errs, fmt.Errorf("correlations[%d]: anchor %v is not finite", i, p))
		}
	}
	return errors.Join(errs...)
}

// NodeIDs returns every node the document mentions: declared nodes first,
// then correlation endpoints in order of first appearance.
func (d *Document) NodeIDs() []tree.NodeID {
	var ids []tree.NodeID
	seen := make(map[uint64]bool)
	add := func(id uint64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, tree.NodeID(id))
		}
	}
	for _, n := range d.Nodes {
		add(n.ID)
	}
	for _, c := range d.Correlations {
		add(c.A)
		add(c.B)
	}
	return ids
}

// Apply registers the document's nodes, prohibitions and correlations on m.
// Prohibitions are applied before any correlation so they can veto it.
func (d *Document) Apply(m *tree.Manager) error {
	if err := d.Validate(); err != nil {
		return err
	}
	for _, id := range d.NodeIDs() {
		if _, err := m.AddNode(id); err != nil {
			return err
		}
	}
	for _, n := range d.Nodes {
		for _, p := range n.Prohibit {
			rel, _ := tree.ParseRelation(p)
			if err := m.Prohibit(tree.NodeID(n.ID), rel); err != nil {
				return err
			}
		}
	}
	for i, c := range d.Correlations {
		rel, _ := tree.ParseRelation(c.Relation)
		anchor, _ := geo.FromSlice(c.Anchor)
		if err := m.AddCorrelation(tree.NodeID(c.A), tree.NodeID(c.B), c.Score, anchor, rel); err != nil {
			return fmt.Errorf("correlations[%d]: %w", i, err)
		}
	}
	return nil
}

// Build applies the document to a fresh Manager, resolves its conflicts and
// assembles the forest.
func (d *Document) Build(opts tree.Options) (*tree.Manager, tree.ResolveReport, error) {
	m := tree.NewManager(opts)
	if err := d.Apply(m); err != nil {
		return nil, tree.ResolveReport{}, err
	}
	report, err := m.ResolveConflicts()
	if err != nil {
		return nil, report, fmt.Errorf("resolving conflicts: %w", err)
	}
	if err := m.MakeTree(); err != nil {
		return nil, report, fmt.Errorf("assembling tree: %w", err)
	}
	return m, report, nil
}
