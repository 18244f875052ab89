// Package constants provides named constants used throughout geotree.
// This centralizes magic numbers so resolution and assembly agree on them.
package constants

// Correlation scores written by the pipeline itself rather than supplied by callers.
const (
	// AggregateParentScore is the score of the Parent correlations MakeTree
	// writes between a synthesized aggregate parent and its children.
	AggregateParentScore = 1.0

	// MergedSiblingScore is the score given to sibling pairs that SortSiblings
	// adds in loose mode. Such pairs were inferred, not observed.
	MergedSiblingScore = 0.0
)

// Synthetic hint generation defaults.
const (
	// DefaultSeedObjects is the number of nodes the demo generator creates.
	DefaultSeedObjects = 12

	// SeedIDStride spaces generated node ids (0, 2, 4, ...) so ids allocated
	// later by the registry are easy to tell apart in diagrams.
	SeedIDStride = 2

	// DefaultCorrelationDensity is the probability that the generator
	// correlates any given pair of nodes.
	DefaultCorrelationDensity = 0.25

	// DefaultAnchorSpread bounds generated anchor coordinates to [-spread, spread].
	DefaultAnchorSpread = 10.0

	// DefaultSeedLevels is the number of depth layers generated nodes are spread over.
	DefaultSeedLevels = 3
)

// Storage file names inside the geotree data directory.
const (
	// DataDirName is the per-user directory holding config and the run database.
	DataDirName = ".geotree"

	// DatabaseFileName is the SQLite file that stores resolved runs.
	DatabaseFileName = "geotree.db"

	// DecisionLogFileName is the JSONL file the decision logger appends to.
	DecisionLogFileName = "decisions.jsonl"
)
