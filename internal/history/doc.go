// Package history provides SQLite-based storage for completed scan reports.
//
// This package implements the Store, which keeps:
//   - One row per finished scan with target, timing, and summary counts
//   - The full report JSON for later inspection
//   - A digest of the open-port fingerprints for fast comparison
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Only completed reports are archived. A running scan never checkpoints
// into the store, so interrupting a scan leaves no partial rows behind.
package history
