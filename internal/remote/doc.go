// Package remote is the account progress service: a SQL database reached
// through jmoiron/sqlx, either SQLite (mattn/go-sqlite3) or PostgreSQL
// (lib/pq). It implements tracker.Remote.
//
// Upserts carry the merge rules so that replaying a write is harmless:
//
//   - completions keep the earliest completed_at and the highest view_count
//   - routine positions ignore a write older than the stored updated_at
//
// Timestamps are stored as unix milliseconds in both dialects.
//
// Every call runs in an OpenTelemetry span named "remote.<operation>".
package remote
