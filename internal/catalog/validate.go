package catalog

import (
	"fmt"

	"github.com/roach88/hackpath/internal/content"
)

// validate checks the structural rules of a catalog. Findings are returned
// in declaration order.
func validate(src *source) []*LoadError {
	var out []*LoadError

	nodes := make(map[string]content.Node, len(src.nodes))
	for _, d := range src.nodes {
		id := content.NormalizeID(d.node.ID)
		if id == "" {
			out = append(out, d.errorf(ErrCodeEmptyID, "", "node without id"))
			continue
		}
		if _, dup := nodes[id]; dup {
			out = append(out, d.errorf(ErrCodeDuplicateID, id, fmt.Sprintf("node %q declared twice", id)))
			continue
		}
		nodes[id] = d.node
	}

	for _, d := range src.nodes {
		n := d.node
		id := content.NormalizeID(n.ID)
		if id == "" {
			continue
		}
		for _, ref := range content.NormalizeIDs(n.Prerequisites) {
			if ref == id {
				out = append(out, d.errorf(ErrCodeSelfReference, id, fmt.Sprintf("%s %q requires itself", n.Kind, id)))
				continue
			}
			if _, ok := nodes[ref]; !ok {
				f := d.errorf(ErrCodeDanglingRequire, id, fmt.Sprintf("%s %q requires unknown node %q; treated as satisfied", n.Kind, id, ref))
				f.Warning = true
				out = append(out, f)
			}
		}
		if n.Kind != content.KindHack || !n.HasParent() {
			continue
		}
		parentID := content.NormalizeID(n.ParentLevelID)
		parent, ok := nodes[parentID]
		switch {
		case !ok:
			out = append(out, d.errorf(ErrCodeUnknownParent, id, fmt.Sprintf("hack %q belongs to unknown level %q", id, parentID)))
		case parent.Kind != content.KindLevel:
			out = append(out, d.errorf(ErrCodeParentNotLevel, id, fmt.Sprintf("hack %q belongs to %q, which is not a level", id, parentID)))
		}
	}

	routines := make(map[string]bool, len(src.routines))
	for _, d := range src.routines {
		r := d.routine
		id := content.NormalizeID(r.ID)
		if id == "" {
			out = append(out, d.errorf(ErrCodeEmptyID, "", "routine without id"))
			continue
		}
		if routines[id] {
			out = append(out, d.errorf(ErrCodeDuplicateID, id, fmt.Sprintf("routine %q declared twice", id)))
			continue
		}
		routines[id] = true
		if len(content.NormalizeIDs(r.Steps)) == 0 {
			out = append(out, d.errorf(ErrCodeEmptyRoutine, id, fmt.Sprintf("routine %q has no steps", id)))
			continue
		}
		seen := make(content.Set, len(r.Steps))
		for _, step := range r.Steps {
			stepID := content.NormalizeID(step)
			if stepID == "" {
				continue
			}
			if seen.Has(stepID) {
				out = append(out, d.errorf(ErrCodeRepeatedStep, id, fmt.Sprintf("routine %q lists step %q more than once", id, stepID)))
				continue
			}
			seen.Add(stepID)
			n, ok := nodes[stepID]
			if !ok || n.Kind != content.KindHack {
				out = append(out, d.errorf(ErrCodeUnknownStep, id, fmt.Sprintf("routine %q step %q is not a known hack", id, step)))
			}
		}
	}
	return out
}
