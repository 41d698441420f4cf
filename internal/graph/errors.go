package graph

import (
	"errors"
	"fmt"
	"strings"
)

// IssueCode categorizes a data-integrity finding.
type IssueCode string

const (
	// CodeDanglingReference: a prerequisite id names no known node.
	CodeDanglingReference IssueCode = "DANGLING_REFERENCE"

	// CodeSelfReference: a node lists itself as a prerequisite.
	CodeSelfReference IssueCode = "SELF_REFERENCE"

	// CodeDuplicateNode: the same id was supplied twice; the first wins.
	CodeDuplicateNode IssueCode = "DUPLICATE_NODE"

	// CodeCycle: nodes require each other and can never be placed.
	CodeCycle IssueCode = "CYCLE_DETECTED"

	// CodeBlocked: a node depends (transitively) on a cycle.
	CodeBlocked IssueCode = "BLOCKED_BY_CYCLE"
)

// Issue is one data-integrity finding.
type Issue struct {
	Code    IssueCode `json:"code"`
	NodeID  string    `json:"node_id"`
	Ref     string    `json:"ref,omitempty"`  // offending prerequisite id
	Path    []string  `json:"path,omitempty"` // cycle path: ["x", "y", "x"]
	Message string    `json:"message"`
	Level   string    `json:"level"` // "warning" or "error"
}

// IntegrityError reports nodes excluded from layering.
//
// It is returned alongside a usable Layering: callers log it and keep
// rendering the nodes that were placed.
type IntegrityError struct {
	// Cycles lists each strongly connected component as a closed path.
	Cycles [][]string

	// Blocked lists nodes that are not on a cycle but depend on one.
	Blocked []string

	// Issues carries every finding, warnings included.
	Issues []Issue
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	parts := make([]string, 0, len(e.Cycles)+1)
	for _, c := range e.Cycles {
		parts = append(parts, strings.Join(c, " → "))
	}
	msg := fmt.Sprintf("%s: %d cycle(s)", CodeCycle, len(e.Cycles))
	if len(parts) > 0 {
		msg += " [" + strings.Join(parts, "; ") + "]"
	}
	if len(e.Blocked) > 0 {
		msg += fmt.Sprintf(", %d blocked node(s): %s", len(e.Blocked), strings.Join(e.Blocked, ", "))
	}
	return msg
}

// Excluded returns every node left out of the layering, sorted.
func (e *IntegrityError) Excluded() []string {
	seen := make(map[string]bool)
	for _, c := range e.Cycles {
		for _, id := range c {
			seen[id] = true
		}
	}
	for _, id := range e.Blocked {
		seen[id] = true
	}
	return sortedKeys(seen)
}

// IsIntegrityError returns true if err is or wraps an *IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
