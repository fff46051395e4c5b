// Package store provides SQLite-backed storage for enumeration runs.
//
// A run records which model was enumerated (name and content hash) and
// with which settings (graph type, worklist order, seed, path quota). Each
// completed path is stored with its weight, its discrete assignment and
// every site of its trace:
//   - runs: one row per enumeration, status running → completed | failed
//   - paths: keyed by (run_id, id), where id content-addresses the
//     discrete assignment under the model hash
//   - sites: the trace of each path in execution order
//
// # Patterns
//
// Idempotent writes
//   - WritePath inserts a path and its sites in one transaction and is a
//     no-op when (run_id, id) already exists
//
// Logical time
//   - Runs and paths are ordered by seq, never by wall time
//
// Deterministic query results
//   - Every list query uses ORDER BY seq ASC, id COLLATE BINARY ASC
//
// Batched weights
//   - A scalar weight goes in the weight column; a batched weight is stored
//     as a JSON array in weight_batch and weight is NULL
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
