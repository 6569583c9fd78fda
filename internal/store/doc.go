// Package store provides durable storage for pairsort engine snapshots.
//
// A snapshot is keyed by ir.ItemSetKey of the normalized, ordered item list,
// so re-running on the same files resumes and a different file set never
// collides with an unrelated sort. The store does not interpret engine
// internals beyond (de)serializing them; structural validation happens in
// engine.Restore.
//
// Two backends share one method set (Save, Load, Delete, List):
//
//   - Store: SQLite, one row per key. Save is a single upsert transaction,
//     so a crash mid-write leaves the previous row intact.
//   - FileStore: one JSON file per key. Save writes a temp file in the same
//     directory, fsyncs it, and renames it over the target. Files are
//     checked against the embedded record.schema.json on Load.
//
// # Critical Patterns
//
// Atomic Replace:
//   - A reader never observes a partially written snapshot
//   - An interrupted Save loses at most that one save
//
// Round Trip:
//   - Load returns exactly what the last successful Save wrote
//   - JSON without omitempty on slices keeps nil and empty distinct
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=FULL: every committed snapshot survives power loss
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Concurrent saves to the same key from multiple processes are out of scope.
package store
