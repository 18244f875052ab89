// Package seed generates synthetic correlation hints for demos and tests.
package seed

import (
	"math"
	"math/rand"

	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/hints"
)

// Options controls the generator. Zero fields take the defaults from
// the constants package.
type Options struct {
	// Objects is the number of nodes; ids are 0, 2, 4, ...
	Objects int

	// Density is the probability that a pair of nodes is correlated.
	Density float64

	// Spread bounds anchor coordinates to [-Spread, Spread].
	Spread float64

	// Levels is the number of depth layers nodes are spread over.
	Levels int

	// Seed makes the output reproducible.
	Seed int64
}

func (o Options) withDefaults() Options {
	if o.Objects <= 0 {
		o.Objects = constants.DefaultSeedObjects
	}
	if o.Density <= 0 {
		o.Density = constants.DefaultCorrelationDensity
	}
	if o.Spread <= 0 {
		o.Spread = constants.DefaultAnchorSpread
	}
	if o.Levels <= 0 {
		o.Levels = constants.DefaultSeedLevels
	}
	return o
}

// Generate builds a hint document. Every node gets a depth layer; nodes on
// the same layer may be siblings, and a node may be the parent of any node
// on a deeper layer. Parent hints therefore never form a cycle and sibling
// groups never contain a parent-child pair, which keeps the document valid
// for both resolution modes. Conflicts such as competing parents and
// disagreeing sibling anchors still occur.
func Generate(opts Options) *hints.Document {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))

	level := make([]int, opts.Objects)
	doc := &hints.Document{Nodes: make([]hints.NodeHint, 0, opts.Objects)}
	for i := range level {
		level[i] = rng.Intn(opts.Levels)
		doc.Nodes = append(doc.Nodes, hints.NodeHint{ID: id(i)})
	}

	for i := 0; i < opts.Objects; i++ {
		for j := i + 1; j < opts.Objects; j++ {
			if rng.Float64() >= opts.Density {
				continue
			}
			h := hints.CorrelationHint{
				A:      id(i),
				B:      id(j),
				Score:  round2(rng.Float64() * 10),
				Anchor: anchor(rng, opts.Spread),
			}
			switch {
			case level[i] == level[j]:
				h.Relation = "sibling"
			case level[j] < level[i]:
				h.Relation = "parent"
			default:
				h.Relation = "child"
			}
			doc.Correlations = append(doc.Correlations, h)
		}
	}
	return doc
}

func id(i int) uint64 { return uint64(i * constants.SeedIDStride) }

func anchor(rng *rand.Rand, spread float64) []float64 {
	p := make([]float64, 3)
	for k := range p {
		p[k] = round2((rng.Float64()*2 - 1) * spread)
	}
	return p
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
