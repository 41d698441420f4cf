package graph

import "fmt"

// Layering is the result of resolving a graph into unlock-order layers.
type Layering struct {
	// Layers holds node ids per layer, sorted within each layer. Every
	// node's known prerequisites lie in strictly earlier layers.
	Layers [][]string

	// Unplaced lists nodes excluded from every layer, sorted.
	Unplaced []string

	// Cycles lists each cycle found among the unplaced nodes.
	Cycles [][]string

	// Blocked lists unplaced nodes that are not on a cycle themselves.
	Blocked []string

	// Issues carries graph-building findings plus cycle/blocked reports.
	Issues []Issue
}

// Err returns an *IntegrityError when any node was excluded, nil otherwise.
// Dangling references alone are warnings and do not produce an error.
func (l Layering) Err() error {
	if len(l.Unplaced) == 0 {
		return nil
	}
	return &IntegrityError{
		Cycles:  l.Cycles,
		Blocked: l.Blocked,
		Issues:  l.Issues,
	}
}

// LayerOf returns the layer index of id.
func (l Layering) LayerOf(id string) (int, bool) {
	for i, layer := range l.Layers {
		for _, n := range layer {
			if n == id {
				return i, true
			}
		}
	}
	return 0, false
}

// Placed returns the number of nodes assigned to a layer.
func (l Layering) Placed() int {
	n := 0
	for _, layer := range l.Layers {
		n += len(layer)
	}
	return n
}

// Layers resolves the graph by iterative peeling.
//
// The loop stops on the first pass that places no node, so cyclic input
// costs at most one wasted pass.
func (g *Graph) Layers() Layering {
	placed := make(map[string]bool, len(g.ids))
	remaining := g.Nodes()

	var layers [][]string
	for len(remaining) > 0 {
		var layer, next []string
		for _, id := range remaining {
			if g.ready(id, placed) {
				layer = append(layer, id)
			} else {
				next = append(next, id)
			}
		}
		if len(layer) == 0 {
			break
		}
		// Mark after the pass: a node never shares a layer with its prerequisite.
		for _, id := range layer {
			placed[id] = true
		}
		layers = append(layers, layer)
		remaining = next
	}

	result := Layering{
		Layers: layers,
		Issues: g.Issues(),
	}
	if len(remaining) == 0 {
		return result
	}

	result.Unplaced = remaining
	result.Cycles = g.cyclesAmong(remaining)

	onCycle := make(map[string]bool)
	for _, c := range result.Cycles {
		for _, id := range c {
			onCycle[id] = true
		}
		result.Issues = append(result.Issues, Issue{
			Code:    CodeCycle,
			NodeID:  c[0],
			Path:    c,
			Message: fmt.Sprintf("prerequisite cycle: %s", formatPath(c)),
			Level:   "error",
		})
	}
	for _, id := range remaining {
		if onCycle[id] {
			continue
		}
		result.Blocked = append(result.Blocked, id)
		result.Issues = append(result.Issues, Issue{
			Code:    CodeBlocked,
			NodeID:  id,
			Message: fmt.Sprintf("node %s depends on a prerequisite cycle", id),
			Level:   "error",
		})
	}
	return result
}

// ready reports whether every known prerequisite of id has been placed.
func (g *Graph) ready(id string, placed map[string]bool) bool {
	for _, p := range g.prereqs[id] {
		if !placed[p] {
			return false
		}
	}
	return true
}
