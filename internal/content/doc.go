// Package content defines the hackpath data model.
//
// Content is authored outside the engine and is read-only here:
//   - Node: a hack or a level with its prerequisite ids
//   - Routine: an ordered sequence of hacks played back in order
//   - Catalog: an indexed, immutable view over nodes and routines
//
// Progress is keyed by Identity and carried around as a Snapshot:
//   - CompletionRecord: one per (identity, node), never deleted, only migrated
//   - RoutinePosition: the persisted playback position of a routine
//
// # Identifiers
//
// Every id crossing a package boundary goes through NormalizeID (trim + NFC),
// so "café" typed on two different keyboards names the same node.
//
// # Merging
//
// Merge is the single conflict-resolution rule for anonymous and
// authenticated progress. It is commutative and idempotent:
//
//	Merge(Merge(a, b), b) == Merge(a, b)
//
// which is what makes re-running a failed sign-in reconciliation safe.
package content
