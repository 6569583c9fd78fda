package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Load returns the snapshot stored under key.
//
// Returns ok=false with a nil error if no snapshot exists. A row whose
// state cannot be decoded yields an engine CORRUPT_SNAPSHOT error.
func (s *Store) Load(ctx context.Context, key string) (Entry, bool, error) {
	var (
		entry Entry
		state string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT key, session_id, state, revision
		FROM snapshots
		WHERE key = ?
	`, key).Scan(&entry.Key, &entry.SessionID, &state, &entry.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	snap, err := unmarshalSnapshot(state)
	if err != nil {
		return Entry{}, false, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	entry.Snapshot = snap
	return entry, true, nil
}

// List returns a summary of every stored snapshot.
// Results are ordered by key (COLLATE BINARY) for deterministic output.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	return s.querySummaries(ctx, "", nil)
}

// FindSession returns the summaries written by the given session, ordered
// like List. Served by idx_snapshots_session.
func (s *Store) FindSession(ctx context.Context, sessionID string) ([]Summary, error) {
	return s.querySummaries(ctx, "WHERE session_id = ?", []any{sessionID})
}

func (s *Store) querySummaries(ctx context.Context, where string, args []any) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, session_id, item_count, decisions, done, engine_version, revision
		FROM snapshots
		`+where+`
		ORDER BY key COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(
			&sum.Key,
			&sum.SessionID,
			&sum.Items,
			&sum.Decisions,
			&sum.Done,
			&sum.EngineVersion,
			&sum.Revision,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return summaries, nil
}
