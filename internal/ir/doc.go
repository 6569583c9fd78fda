// Package ir provides the shared leaf layer for pairsort.
//
// All other internal packages may import ir; ir imports nothing internal.
// It owns the pieces every layer must agree on byte-for-byte:
//   - Item identifier normalization (NFC, cleaned paths)
//   - RFC 8785 canonical JSON for hashing and golden traces
//   - Domain-separated SHA-256 keys for item sets
//   - Snapshot format and engine version constants
//
// Key design constraints:
//   - NO float types in canonical JSON, use int64 for numbers
//   - Map keys are ordered by UTF-16 code units, never by Go string order
//   - JSON tags use snake_case
package ir
