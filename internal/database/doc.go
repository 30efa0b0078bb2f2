// Package database provides SQLite-based storage for hybridscan.
//
// This package implements two stores over one database file:
//   - The job store: every submitted scan job and its lifecycle state
//   - The result sink: the latest result per target, one table per kind
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external service - the database is a single file that survives restarts
// 2. CGO-free implementation allows easy cross-compilation
// 3. A partial unique index gives an atomic "create unless an active job
//    exists" without a separate lock service
// 4. WAL mode lets the HTTP API read while the worker writes
package database
