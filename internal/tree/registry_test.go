package tree

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/geotree/internal/geo"
)

func TestNodeRegistry_NewNodeIsMonotonic(t *testing.T) {
	r := NewNodeRegistry()
	for _, id := range []NodeID{4, 1} {
		if _, err := r.AddNode(id); err != nil {
			t.Fatalf("AddNode(%d) error = %v", id, err)
		}
	}
	n, err := r.NewNode()
	if err != nil {
		t.Fatalf("NewNode() error = %v", err)
	}
	if n.ID() != 5 {
		t.Errorf("NewNode() id = %d, want 5", n.ID())
	}
}

func TestNodeRegistry_MaxIDExhaustsAllocator(t *testing.T) {
	r := NewNodeRegistry()
	if _, err := r.AddNode(math.MaxUint64); err != nil {
		t.Fatalf("AddNode(MaxUint64) error = %v", err)
	}
	if _, err := r.NewNode(); !errors.Is(err, ErrIDsExhausted) {
		t.Fatalf("NewNode() error = %v, want ErrIDsExhausted", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	// Explicit ids below the maximum are still accepted.
	if _, err := r.AddNode(3); err != nil {
		t.Errorf("AddNode(3) error = %v", err)
	}

	r.Reset()
	n, err := r.NewNode()
	if err != nil {
		t.Fatalf("NewNode() after Reset error = %v", err)
	}
	if n.ID() != 0 {
		t.Errorf("NewNode() after Reset id = %d, want 0", n.ID())
	}
}

func TestMakeTree_AggregateWithExhaustedIDs(t *testing.T) {
	m := newTestManager(t, Options{}, 0, math.MaxUint64)
	mustCorrelate(t, m, 0, math.MaxUint64, 1, geo.Origin, RelationSibling)
	if err := m.MakeTree(); !errors.Is(err, ErrIDsExhausted) {
		t.Errorf("MakeTree() error = %v, want ErrIDsExhausted", err)
	}
}
