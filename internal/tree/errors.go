package tree

import "errors"

// Lookup errors are recoverable: the caller may drop one edit and continue.
var (
	// ErrNotFound is returned when a node id or a correlation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when inserting a node id that is already registered.
	ErrAlreadyExists = errors.New("already exists")

	// ErrIDsExhausted is returned by NewNode once the registry holds the
	// largest possible id, so no id past every registered one remains.
	ErrIDsExhausted = errors.New("node ids exhausted")
)

// Invariant errors mean the correlation graph handed to the pipeline is
// inconsistent. The current run should stop.
var (
	// ErrInvariantViolation is returned when a data-model invariant is broken:
	// more than one parent, disagreeing sibling anchors at assembly time,
	// a pairwise correlation typed differently than expected, or a
	// children link that would form a cycle.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrTreeAlreadyBuilt is returned by MakeTree when the tree has already
	// been assembled since the last Reset.
	ErrTreeAlreadyBuilt = errors.New("tree already built")
)
