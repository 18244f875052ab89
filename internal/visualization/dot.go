// Package visualization renders assembled geotree forests in various output formats.
package visualization

import (
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/geotree/internal/tree"
)

// Format specifies the output format for forest rendering.
type Format string

const (
	FormatText Format = "text"
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatDOT, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (valid: text, dot, json)", s)
}

// Render writes snap to w in the given format.
func Render(w io.Writer, snap tree.Snapshot, format Format) error {
	switch format {
	case FormatText, "":
		return RenderText(w, snap)
	case FormatDOT:
		_, err := io.WriteString(w, RenderDOT(snap))
		return err
	case FormatJSON:
		return WriteJSON(w, snap)
	}
	return fmt.Errorf("unknown format %q", format)
}

// relationStyles maps the relation of the higher id, as seen from the lower
// id, to DOT edge attributes.
var relationStyles = map[tree.RelationType]string{
	tree.RelationParent:  "style=solid",
	tree.RelationChild:   "style=solid",
	tree.RelationSibling: "style=dashed, dir=none",
	tree.RelationUnknown: "style=dotted, dir=none",
}

// RenderDOT produces a Graphviz DOT representation of the forest. Assembled
// parent links are bold black edges. Correlations are drawn in gray without
// affecting the layout: parent and child correlations point from parent to
// child, sibling correlations are dashed and unknown ones dotted.
func RenderDOT(snap tree.Snapshot) string {
	var b strings.Builder
	b.WriteString("digraph geotree {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	roots := make(map[tree.NodeID]bool, len(snap.Roots))
	for _, r := range snap.Roots {
		roots[r] = true
	}
	for _, rec := range snap.Nodes {
		var attrs []string
		switch {
		case rec.Aggregate:
			attrs = append(attrs, "shape=box", "fillcolor=lightgray", "tooltip=\"aggregate parent\"")
		case roots[rec.ID]:
			attrs = append(attrs, "fillcolor=lightblue")
		case rec.Parent == nil:
			attrs = append(attrs, "style=dashed", "tooltip=\"unplaced\"")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&b, "  %d;\n", rec.ID)
			continue
		}
		fmt.Fprintf(&b, "  %d [%s];\n", rec.ID, strings.Join(attrs, ", "))
	}
	b.WriteString("\n")

	for _, rec := range snap.Nodes {
		for _, child := range rec.Children {
			fmt.Fprintf(&b, "  %d -> %d [penwidth=2];\n", rec.ID, child)
		}
	}

	for _, e := range collectCorrelations(snap) {
		from, to := e.a, e.b
		if e.Relation == tree.RelationParent {
			from, to = e.b, e.a
		}
		fmt.Fprintf(&b, "  %d -> %d [%s, color=gray, constraint=false, label=\"%.2f\"];\n",
			from, to, relationStyles[e.Relation], e.Score)
	}

	b.WriteString("}\n")
	return b.String()
}

// correlationEdge is one undirected correlation, held from the lower id.
type correlationEdge struct {
	a, b tree.NodeID
	tree.Correlation
}

// collectCorrelations returns each correlation once, from the side of the
// lower id, in node order.
func collectCorrelations(snap tree.Snapshot) []correlationEdge {
	var out []correlationEdge
	for _, rec := range snap.Nodes {
		for _, pc := range rec.Correlations {
			if pc.Peer < rec.ID {
				continue
			}
			out = append(out, correlationEdge{a: rec.ID, b: pc.Peer, Correlation: pc.Correlation})
		}
	}
	return out
}
