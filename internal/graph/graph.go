package graph

import (
	"fmt"
	"sort"

	"github.com/roach88/hackpath/internal/content"
)

// Graph maps each node to its prerequisites.
//
// Only edges between known nodes are kept in prereqs; references to unknown
// ids live in dangling so they never hold a node back.
type Graph struct {
	ids      []string            // sorted node ids
	known    map[string]bool
	prereqs  map[string][]string // node -> known prerequisites (sorted)
	dangling map[string][]string // node -> unknown prerequisites (sorted)
	issues   []Issue
}

// Build constructs a graph from catalog nodes.
func Build(nodes []content.Node) *Graph {
	edges := make([]edgeList, 0, len(nodes))
	for _, n := range nodes {
		edges = append(edges, edgeList{id: n.ID, prereqs: n.Prerequisites})
	}
	return build(edges)
}

type edgeList struct {
	id      string
	prereqs []string
}

func build(nodes []edgeList) *Graph {
	g := &Graph{
		known:    make(map[string]bool, len(nodes)),
		prereqs:  make(map[string][]string, len(nodes)),
		dangling: make(map[string][]string),
	}

	// First pass: register ids so forward references resolve.
	var accepted []edgeList
	for _, n := range nodes {
		id := content.NormalizeID(n.id)
		if id == "" {
			continue
		}
		if g.known[id] {
			g.issues = append(g.issues, Issue{
				Code:    CodeDuplicateNode,
				NodeID:  id,
				Message: fmt.Sprintf("node %s supplied more than once; first definition kept", id),
				Level:   "warning",
			})
			continue
		}
		g.known[id] = true
		g.ids = append(g.ids, id)
		accepted = append(accepted, edgeList{id: id, prereqs: n.prereqs})
	}
	sort.Strings(g.ids)

	// Second pass: split edges into known and dangling.
	for _, n := range accepted {
		var known, dangling []string
		for _, p := range content.NormalizeIDs(n.prereqs) {
			switch {
			case p == n.id:
				g.issues = append(g.issues, Issue{
					Code:    CodeSelfReference,
					NodeID:  n.id,
					Ref:     p,
					Message: fmt.Sprintf("node %s lists itself as a prerequisite", n.id),
					Level:   "error",
				})
				known = append(known, p)
			case g.known[p]:
				known = append(known, p)
			default:
				g.issues = append(g.issues, Issue{
					Code:    CodeDanglingReference,
					NodeID:  n.id,
					Ref:     p,
					Message: fmt.Sprintf("node %s requires unknown node %s; treated as satisfied", n.id, p),
					Level:   "warning",
				})
				dangling = append(dangling, p)
			}
		}
		sort.Strings(known)
		sort.Strings(dangling)
		g.prereqs[n.id] = known
		if len(dangling) > 0 {
			g.dangling[n.id] = dangling
		}
	}

	sortIssues(g.issues)
	return g
}

// Nodes returns every node id, sorted.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	return g.known[content.NormalizeID(id)]
}

// Prerequisites returns the known prerequisites of id, sorted.
func (g *Graph) Prerequisites(id string) []string {
	return g.prereqs[content.NormalizeID(id)]
}

// DanglingReferences returns the unknown prerequisite ids of id, sorted.
func (g *Graph) DanglingReferences(id string) []string {
	return g.dangling[content.NormalizeID(id)]
}

// Issues returns the findings recorded while building the graph.
func (g *Graph) Issues() []Issue {
	out := make([]Issue, len(g.issues))
	copy(out, g.issues)
	return out
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].NodeID != issues[j].NodeID {
			return issues[i].NodeID < issues[j].NodeID
		}
		if issues[i].Code != issues[j].Code {
			return issues[i].Code < issues[j].Code
		}
		return issues[i].Ref < issues[j].Ref
	})
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
