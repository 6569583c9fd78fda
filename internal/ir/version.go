package ir

// Version constants for the snapshot format and engine.
const (
	// SnapshotVersion is the persisted snapshot schema version.
	// Restoring a snapshot with a different version is treated as corrupt.
	SnapshotVersion = 1

	// EngineVersion is the pairsort engine version.
	EngineVersion = "0.1.0"
)
