// Package catalog persists movie records, their field items, and pending
// contributions in SQLite.
//
// The Store manages database connections and schema initialization and serves
// read-only projections directly from the connection pool. All mutations go
// through WithTx, which runs the supplied function inside a single SQLite
// transaction and retries it when a concurrent writer invalidates an
// optimistic guard. Staging state, that is pending shadow items, lock flags,
// and entity versions, lives entirely in this package; callers observe it only
// through the item and contribution models.
//
// Treat this package as the single source of truth for catalog semantics; when
// you add new statuses or columns, update schema.sql and bump schemaVersion.
package catalog
