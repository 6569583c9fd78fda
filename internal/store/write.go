package store

import (
	"context"
	"fmt"

	"github.com/roach88/pairsort/internal/ir"
)

// Save writes entry under entry.Key, replacing any previous snapshot.
//
// The upsert runs in a single transaction: either the whole new row is
// committed or the previous row stays in place. Revision is incremented
// on every save and entry.Revision is ignored.
//
// Safe to call repeatedly with the same key.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	if entry.Key == "" {
		return fmt.Errorf("save snapshot: empty key")
	}

	state, err := marshalSnapshot(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	items, decisions, done := progressOf(entry.Snapshot)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(key, session_id, item_count, decisions, done, state, engine_version, revision)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET
			session_id     = excluded.session_id,
			item_count     = excluded.item_count,
			decisions      = excluded.decisions,
			done           = excluded.done,
			state          = excluded.state,
			engine_version = excluded.engine_version,
			revision       = snapshots.revision + 1
	`,
		entry.Key,
		entry.SessionID,
		items,
		decisions,
		done,
		state,
		ir.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}

// Delete removes the snapshot stored under key.
// Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
