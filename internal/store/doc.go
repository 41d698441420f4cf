// Package store provides the SQLite-backed device key-value store.
//
// Values are opaque JSON blobs addressed by string keys (tracker.KV). All
// calls are synchronous: a Set returns only after SQLite committed it.
//
// # Single Writer
//
// A device has exactly one writer. Open takes an exclusive advisory lock
// on "<path>.lock" (gofrs/flock) and fails with ErrLocked when another
// process holds it, so two CLI invocations never interleave writes to the
// same progress blob.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - PRAGMA user_version tracks the schema version
package store
