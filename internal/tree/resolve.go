package tree

import (
	"context"
	"fmt"

	"github.com/nvandessel/geotree/internal/logging"
)

// ResolveReport summarizes one ResolveConflicts run.
type ResolveReport struct {
	Passes []PassReport `json:"passes"`
}

// PassReport counts the edits one strategy applied over all nodes. Vetoed
// edits left the graph unchanged and are counted apart.
type PassReport struct {
	Strategy string `json:"strategy"`
	Applied  int    `json:"applied"`
	Vetoed   int    `json:"vetoed,omitempty"`
}

// Changes returns the total number of edits that changed the graph.
func (r ResolveReport) Changes() int {
	total := 0
	for _, p := range r.Passes {
		total += p.Applied
	}
	return total
}

// Strategies returns the passes ResolveConflicts runs, in order.
func (m *Manager) Strategies() []ResolutionStrategy {
	passes := []ResolutionStrategy{
		BestParentByScore{ZeroFloor: m.opts.ZeroFloor},
		ParentSiblingConsistency{},
	}
	if m.opts.ReconcileSiblingParents {
		passes = append(passes, SiblingParentReconcile{})
	}
	return append(passes,
		ConflictSiblingRemoval{},
		SiblingSort{Loose: m.opts.Loose, ZeroFloor: m.opts.ZeroFloor},
	)
}

// ResolveConflicts runs every strategy over all nodes in insertion order.
// Each node's edits are applied before the next node is visited, so later
// nodes see earlier decisions. The first error stops the run.
func (m *Manager) ResolveConflicts() (ResolveReport, error) {
	var report ResolveReport
	if m.built {
		return report, ErrTreeAlreadyBuilt
	}
	for _, s := range m.Strategies() {
		pass, err := m.runPass(s)
		report.Passes = append(report.Passes, pass)
		if err != nil {
			return report, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return report, nil
}

func (m *Manager) runPass(s ResolutionStrategy) (PassReport, error) {
	m.logger.Debug("resolution pass started", "strategy", s.Name(), "nodes", m.registry.Len())

	pass := PassReport{Strategy: s.Name()}
	for _, id := range m.registry.IDs() {
		edits, err := s.Resolve(m.registry, id)
		if err != nil {
			return pass, fmt.Errorf("node %d: %w", id, err)
		}
		for _, e := range edits {
			m.logger.Log(context.Background(), logging.LevelTrace, "applying edit",
				"strategy", s.Name(), "node", id, "op", e.Op.String(), "a", e.A, "b", e.B, "reason", e.Reason)
			changed, err := m.applyEdit(e)
			if err != nil {
				return pass, fmt.Errorf("node %d: %s %d-%d: %w", id, e.Op, e.A, e.B, err)
			}
			if !changed {
				pass.Vetoed++
				continue
			}
			m.audit(map[string]any{
				"event":    "edit_applied",
				"strategy": s.Name(),
				"node":     uint64(id),
				"op":       e.Op.String(),
				"a":        uint64(e.A),
				"b":        uint64(e.B),
				"reason":   e.Reason,
			})
			pass.Applied++
		}
	}

	m.logger.Debug("resolution pass finished", "strategy", s.Name(), "applied", pass.Applied, "vetoed", pass.Vetoed)
	return pass, nil
}

// applyEdit carries out e and reports whether the graph changed. Only an
// add can be vetoed.
func (m *Manager) applyEdit(e Edit) (bool, error) {
	switch e.Op {
	case EditErase:
		return true, m.EraseCorrelation(e.A, e.B)
	case EditAnchor:
		return true, m.EditAnchor(e.A, e.B, e.Correlation.Anchor)
	case EditAdd:
		c := e.Correlation
		return m.addCorrelation(e.A, e.B, c.Score, c.Anchor, c.Relation)
	default:
		return false, fmt.Errorf("unknown edit op %s", e.Op)
	}
}
