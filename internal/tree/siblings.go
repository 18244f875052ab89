package tree

import (
	"fmt"
	"math"

	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/geo"
)

// SiblingSort settles a node with several siblings.
//
// Siblings already sharing one anchor need no merge; in loose mode every
// sibling pair is then given a mutual Sibling correlation at that anchor.
// When anchors disagree, loose mode moves every node-sibling and
// sibling-sibling correlation to the bounding-sphere center of the anchors,
// and strict mode keeps only the highest-scoring sibling.
type SiblingSort struct {
	Loose bool

	// ZeroFloor requires the kept sibling to score > 0 in strict mode.
	// When none does, every sibling correlation is erased.
	ZeroFloor bool
}

func (SiblingSort) Name() string { return "SortSiblings" }

func (s SiblingSort) Resolve(v View, id NodeID) ([]Edit, error) {
	n, err := v.Lookup(id)
	if err != nil {
		return nil, err
	}
	if !n.HasSiblings() {
		return nil, nil
	}
	siblings, err := n.Siblings()
	if err != nil {
		return nil, err
	}
	if len(siblings) < 2 {
		return nil, nil
	}

	anchors := make([]geo.Point, len(siblings))
	allSame := true
	for i, sib := range siblings {
		anchors[i], _ = n.Anchor(sib)
		if !anchors[i].Equal(anchors[0]) {
			allSame = false
		}
	}

	switch {
	case allSame && s.Loose:
		return linkSiblingPairs(v, siblings, anchors[0])
	case allSame:
		return nil, nil
	case s.Loose:
		return mergeSiblings(v, id, siblings, anchors)
	default:
		return s.keepBest(n, siblings), nil
	}
}

// linkSiblingPairs makes every pair of siblings carry a Sibling correlation at anchor.
func linkSiblingPairs(v View, siblings []NodeID, anchor geo.Point) ([]Edit, error) {
	var edits []Edit
	for i := 0; i < len(siblings); i++ {
		a, err := v.Lookup(siblings[i])
		if err != nil {
			return nil, err
		}
		for j := i + 1; j < len(siblings); j++ {
			b := siblings[j]
			c, ok := a.Correlation(b)
			switch {
			case !ok:
				edits = append(edits, add(a.id, b, siblingAt(anchor), "link siblings sharing an anchor"))
			case c.Relation != RelationSibling:
				edits = append(edits,
					erase(a.id, b, fmt.Sprintf("replace %s correlation between siblings", c.Relation)),
					add(a.id, b, siblingAt(anchor), "link siblings sharing an anchor"))
			case !c.Anchor.Equal(anchor):
				edits = append(edits, moveAnchor(a.id, b, anchor, "align sibling pair with shared anchor"))
			}
		}
	}
	return edits, nil
}

// mergeSiblings moves all sibling correlations of id, and between its
// siblings, onto the bounding-sphere center of their anchors.
func mergeSiblings(v View, id NodeID, siblings []NodeID, anchors []geo.Point) ([]Edit, error) {
	merged := geo.BoundingSphereCenter(anchors)

	var edits []Edit
	for i, sib := range siblings {
		if !anchors[i].Equal(merged) {
			edits = append(edits, moveAnchor(id, sib, merged, "merge sibling anchors"))
		}
	}
	for i := 0; i < len(siblings); i++ {
		a, err := v.Lookup(siblings[i])
		if err != nil {
			return nil, err
		}
		for j := i + 1; j < len(siblings); j++ {
			b := siblings[j]
			c, ok := a.Correlation(b)
			if !ok {
				edits = append(edits, add(a.id, b, siblingAt(merged), "link merged siblings"))
				continue
			}
			if c.Relation != RelationSibling {
				return nil, fmt.Errorf("%w: siblings %d and %d of node %d are correlated as %s",
					ErrInvariantViolation, a.id, b, id, c.Relation)
			}
			if !c.Anchor.Equal(merged) {
				edits = append(edits, moveAnchor(a.id, b, merged, "merge sibling anchors"))
			}
		}
	}
	return edits, nil
}

func (s SiblingSort) keepBest(n *Node, siblings []NodeID) []Edit {
	var (
		best      NodeID
		bestScore float64
		found     bool
	)
	for _, sib := range siblings {
		score, _ := n.Score(sib)
		if math.IsNaN(score) || (s.ZeroFloor && score <= 0) {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = sib, score, true
		}
	}

	edits := make([]Edit, 0, len(siblings))
	for _, sib := range siblings {
		if found && sib == best {
			continue
		}
		edits = append(edits, erase(n.id, sib, "lower-scoring sibling"))
	}
	return edits
}

func siblingAt(anchor geo.Point) Correlation {
	return Correlation{Score: constants.MergedSiblingScore, Anchor: anchor, Relation: RelationSibling}
}
