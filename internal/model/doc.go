// Package model defines the core data structures shared across the
// scanner, the report writers, and the history store.
//
// The central type is ScanReport, the serializable result of one scan
// against one target. Its JSON form is intentionally minimal and stable;
// display-only and storage-only metadata ride along unserialized.
//
// Design decision: We separate models into their own package to avoid
// circular dependencies. Multiple packages (report, history, cmd) need
// these types, so centralizing them prevents import cycles.
package model
