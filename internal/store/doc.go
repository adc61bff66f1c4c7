// Package store provides SQLite-backed storage for OCED instances,
// their violations and search runs.
//
// Instances are stored as flat tables (instants, objects, events,
// observes) keyed by the instance's content hash, so saving the same
// instance twice is a no-op. Instants are stored by position; names live
// in the instants table. Attributes are stored as RFC 8785 canonical JSON.
//
// Listing queries order by seq, the insertion counter, and never by wall
// time, so results are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Analyze runs the analytical queries (activity frequency, object
// interactions, temporal patterns, process variants) over a stored
// instance.
package store
