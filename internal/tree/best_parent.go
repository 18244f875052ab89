package tree

import "math"

// BestParentByScore keeps a node's highest-scoring Parent correlation and
// erases the others. Ties keep the lowest peer id. A NaN score never wins.
type BestParentByScore struct {
	// ZeroFloor refuses candidates scoring <= 0. When no candidate clears
	// the floor nothing is erased and the node keeps all its parents.
	ZeroFloor bool
}

func (BestParentByScore) Name() string { return "FindBestParent" }

func (s BestParentByScore) Resolve(v View, id NodeID) ([]Edit, error) {
	n, err := v.Lookup(id)
	if err != nil {
		return nil, err
	}
	parents := n.Parents()
	if len(parents) < 2 {
		return nil, nil
	}

	var (
		best      NodeID
		bestScore float64
		found     bool
	)
	for _, p := range parents {
		score, _ := n.Score(p)
		if math.IsNaN(score) || (s.ZeroFloor && score <= 0) {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = p, score, true
		}
	}
	if !found {
		return nil, nil
	}

	edits := make([]Edit, 0, len(parents)-1)
	for _, p := range parents {
		if p != best {
			edits = append(edits, erase(id, p, "lower-scoring parent"))
		}
	}
	return edits, nil
}
