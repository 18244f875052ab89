package constants

// SiblingMode selects how SortSiblings treats a node with several siblings
// at different anchors.
type SiblingMode string

const (
	// ModeStrict keeps only the highest-scoring sibling correlation.
	ModeStrict SiblingMode = "strict"

	// ModeLoose merges sibling anchors at their bounding-sphere center.
	ModeLoose SiblingMode = "loose"
)

// Valid returns true if the mode is a recognized value.
func (m SiblingMode) Valid() bool {
	switch m {
	case ModeStrict, ModeLoose:
		return true
	}
	return false
}

// Loose reports whether m is ModeLoose.
func (m SiblingMode) Loose() bool { return m == ModeLoose }

// String returns the string representation of the mode.
func (m SiblingMode) String() string {
	return string(m)
}
