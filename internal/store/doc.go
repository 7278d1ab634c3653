// Package store provides the SQLite-backed tree.Backend.
//
// The database holds two tables:
//   - nodes: id, name, parent_id (NULL for roots) and the denormalized path
//   - properties: id, node_id, key and a REAL value
//
// # Invariants
//
//   - nodes.path is UNIQUE; duplicate creates fail with a PathConflict error
//   - UNIQUE(node_id, key) makes property writes an in-place upsert
//   - parent_id and node_id are foreign keys, enforced with foreign_keys=ON
//
// # Ordering
//
// Children are returned ORDER BY name COLLATE BINARY and properties ORDER BY
// key COLLATE BINARY, so results are byte-wise and independent of insertion
// order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Two drivers are supported: mattn/go-sqlite3 ("sqlite3", cgo) and
// modernc.org/sqlite ("sqlite", pure Go). Both see the same schema.
package store
