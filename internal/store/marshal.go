package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/pairsort/internal/engine"
)

// marshalSnapshot converts a snapshot to JSON TEXT for storage.
// HTML escaping is disabled so file names with < > & are stored verbatim.
func marshalSnapshot(snap engine.Snapshot) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return string(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

// unmarshalSnapshot parses stored JSON TEXT.
// Undecodable data is reported as a corrupt snapshot, never as an I/O error,
// so callers can fall back to a fresh sort.
func unmarshalSnapshot(data string) (engine.Snapshot, error) {
	var snap engine.Snapshot
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return engine.Snapshot{}, engine.NewCorruptSnapshotError("decode snapshot: %v", err)
	}
	if dec.More() {
		return engine.Snapshot{}, engine.NewCorruptSnapshotError("decode snapshot: trailing data")
	}
	return snap, nil
}

// progressOf extracts the summary counters stored next to the snapshot.
func progressOf(snap engine.Snapshot) (items, decisions int, done bool) {
	return len(snap.Items), len(snap.Log), snap.Done
}
