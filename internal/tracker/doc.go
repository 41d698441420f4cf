// Package tracker unifies device-local and account progress behind one
// interface and performs the one-shot reconciliation at sign-in.
//
// # Backends
//
//   - LocalTracker: Anonymous identity. The in-memory snapshot is
//     authoritative for the session and written synchronously to the device
//     KV store as a single JSON blob. A failed write is reported as a
//     *PersistenceWriteError; the in-memory update stands.
//   - RemoteTracker: Authenticated identity. Updates are applied in memory
//     first (optimistic) and then written to the remote service through the
//     injected retry.Policy. Exhausted retries surface as *RemoteSyncError.
//
// # Reconciliation
//
// Session is the reconciling decorator callers depend on. SignIn merges the
// anonymous snapshot into the account (content.Merge: union of completions,
// max position per routine), writes the merged result to the remote, and
// clears the anonymous snapshot only once that write is confirmed. If the
// write fails the anonymous snapshot stays in the KV store and RetryPending
// can re-run the merge later; Merge being idempotent makes that safe.
//
// Duplicate sign-in events for the same transition share a single in-flight
// reconciliation (singleflight), and a finished transition is not re-run.
package tracker
