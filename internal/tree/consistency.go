package tree

import "fmt"

// ParentSiblingConsistency fixes a conflicted node N (parent P, sibling S)
// whose sibling S is correlated with P as anything other than P's child.
// The weaker of the N-S and P-S edges is erased; ties drop P-S.
type ParentSiblingConsistency struct{}

func (ParentSiblingConsistency) Name() string { return "ParentIsSiblingsSibling" }

func (ParentSiblingConsistency) Resolve(v View, id NodeID) ([]Edit, error) {
	n, parent, siblings, ok, err := conflictContext(v, id)
	if err != nil || !ok {
		return nil, err
	}
	p, err := v.Lookup(parent)
	if err != nil {
		return nil, err
	}

	var edits []Edit
	for _, s := range siblings {
		sn, err := v.Lookup(s)
		if err != nil {
			return nil, err
		}
		rel, correlated := sn.Relation(parent)
		if !correlated || rel == RelationParent {
			continue
		}
		siblingScore, _ := n.Score(s)
		parentScore, _ := p.Score(s)
		if siblingScore >= parentScore {
			edits = append(edits, erase(parent, s, fmt.Sprintf("parent-sibling %s edge weaker than sibling edge", rel)))
		} else {
			edits = append(edits, erase(id, s, fmt.Sprintf("sibling edge weaker than parent-sibling %s edge", rel)))
		}
	}
	return edits, nil
}

// ConflictSiblingRemoval drops the sibling status of a conflicted node's
// siblings that have no parent or a different parent.
type ConflictSiblingRemoval struct{}

func (ConflictSiblingRemoval) Name() string { return "IfConflictRemoveSibling" }

func (ConflictSiblingRemoval) Resolve(v View, id NodeID) ([]Edit, error) {
	_, parent, siblings, ok, err := conflictContext(v, id)
	if err != nil || !ok {
		return nil, err
	}

	var edits []Edit
	for _, s := range siblings {
		sn, err := v.Lookup(s)
		if err != nil {
			return nil, err
		}
		has, err := sn.HasParent()
		if err != nil {
			return nil, err
		}
		if !has {
			edits = append(edits, erase(id, s, "sibling has no parent"))
			continue
		}
		sp, err := sn.Parent()
		if err != nil {
			return nil, err
		}
		if sp != parent {
			edits = append(edits, erase(id, s, fmt.Sprintf("sibling parent %d differs from %d", sp, parent)))
		}
	}
	return edits, nil
}

// SiblingParentReconcile handles a conflicted node N (parent P) whose
// single sibling S has a different parent Q. It keeps the best-scoring
// pair among
//
//	A: N-S + N-P  (drop S-Q)
//	B: N-S + S-Q  (drop N-P)
//	C: N-P + S-Q  (drop N-S)
//
// Nodes with several siblings just drop each disagreeing sibling edge.
// The comparison is local to N, S, P and Q.
type SiblingParentReconcile struct{}

func (SiblingParentReconcile) Name() string { return "ResolveSiblingsWithDifferentParent" }

func (SiblingParentReconcile) Resolve(v View, id NodeID) ([]Edit, error) {
	n, parent, siblings, ok, err := conflictContext(v, id)
	if err != nil || !ok {
		return nil, err
	}

	var edits []Edit
	for _, s := range siblings {
		sn, err := v.Lookup(s)
		if err != nil {
			return nil, err
		}
		has, err := sn.HasParent()
		if err != nil {
			return nil, err
		}
		if !has {
			continue
		}
		sp, err := sn.Parent()
		if err != nil {
			return nil, err
		}
		if sp == parent {
			continue
		}
		if len(siblings) > 1 {
			edits = append(edits, erase(id, s, "multiple siblings, sibling has different parent"))
			continue
		}

		siblingScore, _ := n.Score(s)
		parentScore, _ := n.Score(parent)
		siblingParentScore, _ := sn.Score(sp)
		a := parentScore + siblingScore
		b := siblingParentScore + siblingScore
		c := parentScore + siblingParentScore
		switch {
		case a > b && a > c:
			edits = append(edits, erase(s, sp, fmt.Sprintf("keep sibling and parent (%g)", a)))
		case b > c:
			edits = append(edits, erase(id, parent, fmt.Sprintf("keep sibling and sibling's parent (%g)", b)))
		default:
			edits = append(edits, erase(id, s, fmt.Sprintf("keep both parents (%g)", c)))
		}
	}
	return edits, nil
}
