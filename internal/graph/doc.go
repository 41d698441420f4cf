// Package graph builds the prerequisite graph and resolves it into unlock
// layers.
//
// Layering is an iterative peeling (a Kahn variant): layer 0 holds nodes with
// no known prerequisites, each following pass holds the nodes whose known
// prerequisites were all placed by earlier passes, and resolution stops on
// the first pass that places nothing. Termination is guaranteed because
// every productive pass shrinks the unplaced set.
//
// Malformed input never blocks or panics the caller:
//   - A prerequisite id that names no node is treated as satisfied and
//     reported as a DANGLING_REFERENCE warning.
//   - Nodes on a cycle (including a node listing itself) and nodes that
//     depend on them are left out of every layer and reported through an
//     *IntegrityError. Cycles are located with Tarjan's algorithm so the
//     report names the actual loop, not just the stalled nodes.
package graph
