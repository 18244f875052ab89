package visualization

import (
	"encoding/json"
	"io"

	"github.com/nvandessel/geotree/internal/tree"
)

// RenderJSON produces a JSON graph representation with nodes and edges
// arrays. Edges hold each correlation once, from the lower id.
func RenderJSON(snap tree.Snapshot) map[string]interface{} {
	jsonNodes := make([]map[string]interface{}, 0, len(snap.Nodes))
	for _, rec := range snap.Nodes {
		entry := map[string]interface{}{
			"id":        rec.ID,
			"aggregate": rec.Aggregate,
			"children":  nonNil(rec.Children),
		}
		if rec.Parent != nil {
			entry["parent"] = *rec.Parent
		}
		if len(rec.Prohibited) > 0 {
			entry["prohibited"] = rec.Prohibited
		}
		jsonNodes = append(jsonNodes, entry)
	}

	edges := collectCorrelations(snap)
	jsonEdges := make([]map[string]interface{}, 0, len(edges))
	for _, e := range edges {
		jsonEdges = append(jsonEdges, map[string]interface{}{
			"source":   e.a,
			"target":   e.b,
			"relation": e.Relation,
			"score":    e.Score,
			"anchor":   e.Anchor.Slice(),
		})
	}

	return map[string]interface{}{
		"roots":      nonNil(snap.Roots),
		"nodes":      jsonNodes,
		"edges":      jsonEdges,
		"node_count": len(jsonNodes),
		"edge_count": len(jsonEdges),
	}
}

// WriteJSON encodes RenderJSON(snap) to w, indented.
func WriteJSON(w io.Writer, snap tree.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(RenderJSON(snap))
}

func nonNil(ids []tree.NodeID) []tree.NodeID {
	if ids == nil {
		return []tree.NodeID{}
	}
	return ids
}
