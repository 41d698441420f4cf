package content

import (
	"fmt"
	"sort"
)

// Catalog is an immutable index over the authored content.
type Catalog struct {
	nodes    map[string]Node
	order    []string // node ids in authored order
	children map[string][]string
	routines map[string]Routine
	rorder   []string
}

// NewCatalog normalizes and indexes nodes and routines.
//
// Duplicate ids and unknown kinds are rejected. Dangling references are
// accepted here; they are the graph resolver's business.
func NewCatalog(nodes []Node, routines []Routine) (*Catalog, error) {
	c := &Catalog{
		nodes:    make(map[string]Node, len(nodes)),
		children: make(map[string][]string),
		routines: make(map[string]Routine, len(routines)),
	}

	for _, n := range nodes {
		n.ID = NormalizeID(n.ID)
		if n.ID == "" {
			return nil, fmt.Errorf("catalog: node with empty id")
		}
		if !n.Kind.Valid() {
			return nil, fmt.Errorf("catalog: node %q has unknown kind %q", n.ID, n.Kind)
		}
		if _, dup := c.nodes[n.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate node id %q", n.ID)
		}
		n.Prerequisites = NormalizeIDs(n.Prerequisites)
		n.ParentLevelID = NormalizeID(n.ParentLevelID)
		c.nodes[n.ID] = n
		c.order = append(c.order, n.ID)
		if n.ParentLevelID != "" {
			c.children[n.ParentLevelID] = append(c.children[n.ParentLevelID], n.ID)
		}
	}

	for _, r := range routines {
		r.ID = NormalizeID(r.ID)
		if r.ID == "" {
			return nil, fmt.Errorf("catalog: routine with empty id")
		}
		if _, dup := c.routines[r.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate routine id %q", r.ID)
		}
		steps := make([]string, 0, len(r.Steps))
		seen := make(Set, len(r.Steps))
		for _, s := range r.Steps {
			if s = NormalizeID(s); s == "" {
				continue
			}
			if seen.Has(s) {
				return nil, fmt.Errorf("catalog: routine %q repeats step %q", r.ID, s)
			}
			seen.Add(s)
			steps = append(steps, s)
		}
		r.Steps = steps
		c.routines[r.ID] = r
		c.rorder = append(c.rorder, r.ID)
	}

	return c, nil
}

// Node returns the node with the given id.
func (c *Catalog) Node(id string) (Node, bool) {
	n, ok := c.nodes[NormalizeID(id)]
	return n, ok
}

// Has reports whether id names a known node.
func (c *Catalog) Has(id string) bool {
	_, ok := c.nodes[NormalizeID(id)]
	return ok
}

// Nodes returns every node in authored order.
func (c *Catalog) Nodes() []Node {
	out := make([]Node, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.nodes[id])
	}
	return out
}

// NodesOfKind returns the nodes of one kind in authored order.
func (c *Catalog) NodesOfKind(kind Kind) []Node {
	var out []Node
	for _, id := range c.order {
		if n := c.nodes[id]; n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// HacksOf returns the hacks whose parent is levelID, in authored order.
func (c *Catalog) HacksOf(levelID string) []Node {
	ids := c.children[NormalizeID(levelID)]
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.nodes[id])
	}
	return out
}

// Routine returns the routine with the given id.
func (c *Catalog) Routine(id string) (Routine, bool) {
	r, ok := c.routines[NormalizeID(id)]
	return r, ok
}

// Routines returns every routine in authored order.
func (c *Catalog) Routines() []Routine {
	out := make([]Routine, 0, len(c.rorder))
	for _, id := range c.rorder {
		out = append(out, c.routines[id])
	}
	return out
}

// IDs returns every node id, sorted.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	sort.Strings(out)
	return out
}
