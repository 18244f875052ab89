package tree

import (
	"fmt"
	"strings"
)

// RelationType is the role a peer plays relative to the node holding the correlation.
type RelationType int

const (
	RelationUnknown RelationType = iota
	RelationParent                // peer is the holder's parent
	RelationChild                 // peer is the holder's child
	RelationSibling               // peer shares the holder's parent
)

// Inverse returns the relation the peer holds back toward the holder.
func (r RelationType) Inverse() RelationType {
	switch r {
	case RelationParent:
		return RelationChild
	case RelationChild:
		return RelationParent
	case RelationSibling:
		return RelationSibling
	default:
		return RelationUnknown
	}
}

func (r RelationType) String() string {
	switch r {
	case RelationParent:
		return "parent"
	case RelationChild:
		return "child"
	case RelationSibling:
		return "sibling"
	default:
		return "unknown"
	}
}

// ParseRelation parses a relation name (case-insensitive).
func ParseRelation(s string) (RelationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "parent":
		return RelationParent, nil
	case "child":
		return RelationChild, nil
	case "sibling":
		return RelationSibling, nil
	case "unknown", "":
		return RelationUnknown, nil
	default:
		return RelationUnknown, fmt.Errorf("invalid relation %q (valid: parent, child, sibling, unknown)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r RelationType) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RelationType) UnmarshalText(text []byte) error {
	parsed, err := ParseRelation(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
