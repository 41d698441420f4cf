package content

import "fmt"

// Kind distinguishes the two node types of the prerequisite graph.
type Kind string

const (
	KindHack  Kind = "hack"
	KindLevel Kind = "level"
)

// Valid reports whether k is a known node kind.
func (k Kind) Valid() bool {
	return k == KindHack || k == KindLevel
}

// Node is one vertex of the prerequisite graph.
//
// For a hack, Prerequisites names other hacks (or levels) that must be
// completed first and ParentLevelID names the level that contains it.
// For a level, Prerequisites names levels that must be completed (100% of
// their required hacks) before the level unlocks.
type Node struct {
	ID               string   `json:"id" yaml:"id"`
	Kind             Kind     `json:"kind" yaml:"kind"`
	Title            string   `json:"title,omitempty" yaml:"title,omitempty"`
	Prerequisites    []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	ParentLevelID    string   `json:"parent_level_id,omitempty" yaml:"parent_level_id,omitempty"`
	RequiredInParent bool     `json:"required_in_parent,omitempty" yaml:"required_in_parent,omitempty"`
}

// HasParent reports whether the node belongs to a level.
func (n Node) HasParent() bool {
	return n.ParentLevelID != ""
}

func (n Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Kind, n.ID)
}

// Routine is an ordered list of hack ids played back sequentially.
type Routine struct {
	ID    string   `json:"id" yaml:"id"`
	Title string   `json:"title,omitempty" yaml:"title,omitempty"`
	Steps []string `json:"steps" yaml:"steps"`
}

// TotalSteps returns the number of steps in the routine.
func (r Routine) TotalSteps() int {
	return len(r.Steps)
}

// ValidPosition reports whether 0 <= position < TotalSteps.
func (r Routine) ValidPosition(position int) bool {
	return position >= 0 && position < len(r.Steps)
}
