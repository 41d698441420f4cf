package graph

import (
	"sort"
	"strings"
)

// cyclesAmong finds the cycles within the given (unplaced) nodes.
//
// Tarjan's algorithm runs on the subgraph induced by ids. Every SCC with
// more than one member, or a single member with a self-loop, is a cycle.
// Results are deterministic: nodes and successors are visited in sorted
// order and each path starts at the smallest id of its component.
func (g *Graph) cyclesAmong(ids []string) [][]string {
	in := make(map[string]bool, len(ids))
	for _, id := range ids {
		in[id] = true
	}
	sub := make(map[string][]string, len(ids))
	for _, id := range ids {
		for _, p := range g.prereqs[id] {
			if in[p] {
				sub[id] = append(sub[id], p)
			}
		}
	}

	var cycles [][]string
	for _, scc := range tarjanSCC(ids, sub) {
		if len(scc) > 1 || hasSelfLoop(scc[0], sub) {
			cycles = append(cycles, reconstructCyclePath(scc, sub))
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func hasSelfLoop(node string, edges map[string][]string) bool {
	for _, n := range edges[node] {
		if n == node {
			return true
		}
	}
	return false
}

// tarjanSCC returns the strongly connected components of the graph.
func tarjanSCC(nodes []string, edges map[string][]string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// reconstructCyclePath walks edges inside the SCC from its smallest member
// until it returns to the start. A self-loop yields [id, id].
func reconstructCyclePath(scc []string, edges map[string][]string) []string {
	start := scc[0]
	if len(scc) == 1 {
		return []string{start, start}
	}

	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, n := range edges[current] {
			if n == start && len(path) > 1 {
				next = n
				break
			}
			if member[n] && !visited[n] && next == "" {
				next = n
			}
		}
		if next == "" {
			// Dead end inside the SCC; close the loop on the start node.
			path = append(path, start)
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}
	return path
}

func formatPath(path []string) string {
	return strings.Join(path, " → ")
}
