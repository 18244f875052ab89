package hints

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/geotree/internal/geo"
	"github.com/nvandessel/geotree/internal/tree"
)

const sampleYAML = `
nodes:
  - id: 4
    prohibit: [sibling]
correlations:
  - {a: 0, b: 2, relation: parent, score: 7, anchor: [1, 2, 3]}
  - {a: 0, b: 6, relation: parent, score: 3}
  - {a: 4, b: 0, relation: sibling, score: 1}
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(doc.Nodes) != 1 || doc.Nodes[0].ID != 4 {
		t.Errorf("Nodes = %+v, want one node with id 4", doc.Nodes)
	}
	if len(doc.Correlations) != 3 {
		t.Fatalf("Correlations = %d, want 3", len(doc.Correlations))
	}
	want := CorrelationHint{A: 0, B: 2, Relation: "parent", Score: 7, Anchor: []float64{1, 2, 3}}
	if diff := cmp.Diff(want, doc.Correlations[0]); diff != "" {
		t.Errorf("first correlation mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_JSON(t *testing.T) {
	doc, err := Parse([]byte(`{"correlations":[{"a":1,"b":3,"relation":"child","score":0.5,"anchor":[0,0,1]}]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Correlations[0].Relation != "child" || doc.Correlations[0].B != 3 {
		t.Errorf("Correlations[0] = %+v", doc.Correlations[0])
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	doc := &Document{
		Nodes: []NodeHint{
			{ID: 1, Prohibit: []string{"cousin"}},
			{ID: 1},
		},
		Correlations: []CorrelationHint{
			{A: 2, B: 2, Relation: "sibling"},
			{A: 1, B: 2, Relation: "uncle"},
			{A: 1, B: 3, Relation: "parent", Anchor: []float64{1, 2}},
		},
	}

	err := doc.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want errors")
	}
	for _, fragment := range []string{"cousin", "duplicate id 1", "correlated with itself", "uncle", "anchor"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error missing %q: %v", fragment, err)
		}
	}
}

func TestParse_RejectsNonFiniteNumbers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fragment string
	}{
		{"NaN score", "correlations: [{a: 0, b: 1, relation: parent, score: .nan}]", "score NaN is not finite"},
		{"infinite score", "correlations: [{a: 0, b: 1, relation: parent, score: -.inf}]", "score -Inf is not finite"},
		{"infinite anchor", "correlations: [{a: 0, b: 1, relation: parent, score: 1, anchor: [0, .inf, 0]}]", "anchor"},
		{"NaN anchor", "correlations: [{a: 0, b: 1, relation: parent, score: 1, anchor: [.nan, 0, 0]}]", "not finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("Parse() = nil error, want rejection")
			}
			if !strings.Contains(err.Error(), tt.fragment) {
				t.Errorf("error %q missing %q", err, tt.fragment)
			}
		})
	}
}

func TestNodeIDs(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []tree.NodeID{4, 0, 2, 6}
	if diff := cmp.Diff(want, doc.NodeIDs()); diff != "" {
		t.Errorf("NodeIDs() mismatch (-want +got):\n%s", diff)
	}
}

func TestApply(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	m := tree.NewManager(tree.Options{})
	if err := doc.Apply(m); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if diff := cmp.Diff([]tree.NodeID{4, 0, 2, 6}, m.IDs()); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}

	n0, _ := m.Node(0)
	c, ok := n0.Correlation(2)
	if !ok || c.Relation != tree.RelationParent || c.Score != 7 || !c.Anchor.Equal(geo.Point{X: 1, Y: 2, Z: 3}) {
		t.Errorf("0-2 correlation = %+v (%v)", c, ok)
	}
	if a, _ := n0.Anchor(6); !a.Equal(geo.Origin) {
		t.Errorf("missing anchor should default to origin, got %s", a)
	}

	// Node 4 prohibits siblings, so the 4-0 hint is vetoed.
	if n0.IsCorrelated(4) {
		t.Error("prohibited sibling hint was applied")
	}
}

func TestApply_DuplicateNode(t *testing.T) {
	m := tree.NewManager(tree.Options{})
	if _, err := m.AddNode(2); err != nil {
		t.Fatal(err)
	}
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := doc.Apply(m); err == nil {
		t.Error("Apply() onto a manager already holding node 2 should fail")
	}
}

func TestLoadAndMarshal_RoundTrip(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "hints.yaml")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(doc, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestBuild(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	m, report, err := doc.Build(tree.Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !m.Built() {
		t.Error("Build() should assemble the tree")
	}
	if len(report.Passes) == 0 {
		t.Error("Build() report has no passes")
	}

	// 2 and 6 both name 0 as parent; 4's sibling hint was vetoed.
	if diff := cmp.Diff([]tree.NodeID{4, 2, 6}, m.Roots()); diff != "" {
		t.Errorf("Roots() mismatch (-want +got):\n%s", diff)
	}
	n0, _ := m.Node(0)
	if p, ok := n0.AssembledParent(); !ok || p != 2 {
		t.Errorf("node 0 parent = %d (%v), want 2", p, ok)
	}
}
