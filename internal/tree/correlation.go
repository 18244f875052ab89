package tree

import "github.com/nvandessel/geotree/internal/geo"

// NodeID is an opaque node handle. Ids are unique within a registry and never reused.
type NodeID uint64

// Correlation is one scored, typed, anchored edge endpoint, held by the node
// that owns it and keyed by the peer id.
type Correlation struct {
	Score    float64      `json:"score"`
	Anchor   geo.Point    `json:"anchor"`
	Relation RelationType `json:"relation"`
}

// PeerCorrelation is a Correlation paired with its peer, used when a
// node's correlations are listed in a stable order.
type PeerCorrelation struct {
	Peer NodeID `json:"peer"`
	Correlation
}
