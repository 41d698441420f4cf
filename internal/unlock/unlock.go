// Package unlock decides which content a user may access.
//
// The rule is a pure function of the catalog and a completion set; nothing
// here reads storage, so results can be cached per completion set and
// tested exhaustively.
package unlock

import (
	"github.com/roach88/hackpath/internal/content"
	"github.com/roach88/hackpath/internal/progress"
)

// IsUnlocked reports whether node is accessible.
//
// A node is unlocked iff it has no parent level or its parent level is
// unlocked, and every prerequisite id is present in satisfied.
func IsUnlocked(node content.Node, satisfied content.Set, parentUnlocked bool) bool {
	if node.HasParent() && !parentUnlocked {
		return false
	}
	for _, p := range node.Prerequisites {
		if !satisfied.Has(p) {
			return false
		}
	}
	return true
}

// Evaluator applies IsUnlocked across a catalog.
//
// Evaluator is immutable and safe for concurrent use.
type Evaluator struct {
	catalog *content.Catalog
}

// NewEvaluator returns an evaluator over catalog.
func NewEvaluator(catalog *content.Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// LevelCompleted reports whether every required hack of levelID is in
// completed. A level with no required hacks is never completed.
func (e *Evaluator) LevelCompleted(levelID string, completed content.Set) bool {
	level, ok := e.catalog.Node(levelID)
	if !ok || level.Kind != content.KindLevel {
		return false
	}
	return progress.ComputeLevelProgress(level, e.catalog.HacksOf(level.ID), completed).IsCompleted
}

// Satisfied returns the ids that count as done for prerequisite checks:
// the completion set itself, every completed level, and every dangling
// prerequisite id (unknown ids never block unlocking). Level ids stored in
// completed are ignored; a level is done only through its required hacks.
func (e *Evaluator) Satisfied(completed content.Set) content.Set {
	out := completed.Clone()
	for _, level := range e.catalog.NodesOfKind(content.KindLevel) {
		if e.LevelCompleted(level.ID, completed) {
			out[level.ID] = struct{}{}
		} else {
			delete(out, level.ID)
		}
	}
	for _, n := range e.catalog.Nodes() {
		for _, p := range n.Prerequisites {
			if !e.catalog.Has(p) {
				out[p] = struct{}{}
			}
		}
	}
	return out
}

// IsUnlocked evaluates a single node. The second result is false when id
// names no node.
func (e *Evaluator) IsUnlocked(id string, completed content.Set) (unlocked, known bool) {
	if !e.catalog.Has(id) {
		return false, false
	}
	states := e.States(completed)
	return states[content.NormalizeID(id)], true
}

// States evaluates every node in one pass.
func (e *Evaluator) States(completed content.Set) map[string]bool {
	satisfied := e.Satisfied(completed)
	states := make(map[string]bool)
	visiting := make(map[string]bool)

	var eval func(id string) bool
	eval = func(id string) bool {
		if v, ok := states[id]; ok {
			return v
		}
		node, ok := e.catalog.Node(id)
		if !ok {
			// A parent that does not exist cannot gate its children.
			return true
		}
		if visiting[id] {
			// Parent chains that loop back never unlock.
			return false
		}
		visiting[id] = true
		parentUnlocked := true
		if node.HasParent() {
			parentUnlocked = eval(node.ParentLevelID)
		}
		delete(visiting, id)

		v := IsUnlocked(node, satisfied, parentUnlocked)
		states[id] = v
		return v
	}

	for _, n := range e.catalog.Nodes() {
		eval(n.ID)
	}
	return states
}

// UnlockedSet returns the ids of every unlocked node.
func (e *Evaluator) UnlockedSet(completed content.Set) content.Set {
	out := make(content.Set)
	for id, ok := range e.States(completed) {
		if ok {
			out[id] = struct{}{}
		}
	}
	return out
}
