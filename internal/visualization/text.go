package visualization

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/geotree/internal/tree"
)

// RenderText prints every tree as an indented outline, one node per line,
// each generation prefixed by "..". Aggregate parents are marked.
//
//	0
//	..1
//	....3
//	..2
func RenderText(w io.Writer, snap tree.Snapshot) error {
	bw := bufio.NewWriter(w)
	children := snap.Children()
	aggregate := make(map[tree.NodeID]bool)
	for _, rec := range snap.Nodes {
		if rec.Aggregate {
			aggregate[rec.ID] = true
		}
	}

	// Each node prints once, so a malformed snapshot with looping links
	// still terminates.
	visited := make(map[tree.NodeID]bool, len(snap.Nodes))
	var walk func(id tree.NodeID, gen int)
	walk = func(id tree.NodeID, gen int) {
		if visited[id] {
			return
		}
		visited[id] = true
		bw.WriteString(strings.Repeat("..", gen))
		fmt.Fprintf(bw, "%d", id)
		if aggregate[id] {
			bw.WriteString(" (aggregate)")
		}
		bw.WriteByte('\n')
		for _, c := range children[id] {
			walk(c, gen+1)
		}
	}
	for _, root := range snap.Roots {
		walk(root, 0)
	}
	return bw.Flush()
}
