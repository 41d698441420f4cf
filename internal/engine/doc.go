// Package engine is the progression facade consumed by presentation code.
//
// An Engine binds an immutable content catalog to a tracker.Session and
// answers the questions a UI asks: which nodes are unlocked, how far along a
// level or routine is, and what to persist when the user completes or
// navigates something. It renders nothing and authenticates nobody.
//
// DATA INTEGRITY:
//
// A malformed prerequisite graph never fails a call. Layering excludes the
// offending nodes, the *graph.IntegrityError is logged once per layering
// and returned next to the usable result.
//
// Thread-safety: an Engine is safe for concurrent use. State lives in the
// session; the catalog and its evaluator are read-only.
package engine
