// Package store provides SQLite-backed durable storage for playlists
// and runs.
//
// Playlists are content-addressed: the key is the fingerprint digest of
// the canonical wire encoding, so saving the same playlist twice is a
// no-op and two names may share one blob. Runs reference their playlist
// by digest and carry the lifecycle outcome; per-label results and the
// run's event trace hang off the run row.
//
// Ordering never depends on wall time: results are keyed (run_id,
// label) and read back sorted by label, trace events by their run
// sequence number, so replay comparisons are deterministic.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//   - single connection: SQLite allows one writer at a time
package store
