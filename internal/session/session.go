package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/pairsort/internal/engine"
	"github.com/roach88/pairsort/internal/ir"
	"github.com/roach88/pairsort/internal/store"
)

// SnapshotStore is the persistence the session needs.
// Both store.Store and store.FileStore satisfy it.
type SnapshotStore interface {
	Save(ctx context.Context, entry store.Entry) error
	Load(ctx context.Context, key string) (store.Entry, bool, error)
	Delete(ctx context.Context, key string) error
}

// IDGenerator produces session ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 session ids.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
// Panics only if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

type options struct {
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithIDGenerator overrides the session id source (for testing).
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Session is one resumable sort of a fixed item set.
//
// Thread-safety: none. Calls must be serialized, like the engine's.
type Session struct {
	st     SnapshotStore
	eng    *engine.Engine
	key    string
	id     string
	logger *slog.Logger

	resumed   bool
	recovered bool
}

// Open resumes the saved sort for items, or starts a new one.
//
// The engine sorts items exactly as given, so results name the caller's
// files byte for byte. Only the key is normalized (ir.ItemSetKey), which
// lets a snapshot saved under another spelling of the same list resume; see
// RestoreEngine. A stored snapshot that is corrupt or does not match items
// is discarded with a warning and the sort starts over. A fresh sort is
// saved immediately so status can see it.
//
// Store I/O errors and duplicate items are returned as errors.
func Open(ctx context.Context, st SnapshotStore, items []string, opts ...Option) (*Session, error) {
	o := options{ids: UUIDv7Generator{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	key, err := ir.ItemSetKey(items)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	s := &Session{st: st, key: key, logger: o.logger}

	entry, ok, err := st.Load(ctx, key)
	switch {
	case err != nil && engine.IsCorruptSnapshot(err):
		s.discard(err)
	case err != nil:
		return nil, fmt.Errorf("open session: %w", err)
	case ok:
		eng, err := RestoreEngine(items, entry.Snapshot)
		if err != nil {
			if !engine.IsCorruptSnapshot(err) {
				return nil, fmt.Errorf("open session: %w", err)
			}
			s.discard(err)
			break
		}
		s.eng = eng
		s.id = entry.SessionID
		s.resumed = true
	}

	if s.eng == nil {
		eng, err := engine.New(items)
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
		s.eng = eng
		s.id = o.ids.Generate()
		if err := s.Save(ctx); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("session", s.id)
	p := s.eng.Progress()
	s.logger.Info("session opened",
		"key", key,
		"items", p.Items,
		"resumed", s.resumed,
		"decisions", p.Decisions,
		"done", p.Done,
	)
	return s, nil
}

// RestoreEngine restores snap for items. When the snapshot was saved under
// a different spelling of the same list (NFC or path cleaning), it is
// relabeled to items first.
func RestoreEngine(items []string, snap engine.Snapshot) (*engine.Engine, error) {
	if !slices.Equal(items, snap.Items) &&
		snap.Items != nil && slices.Equal(ir.NormalizeItems(items), ir.NormalizeItems(snap.Items)) {
		relabeled, err := snap.Relabel(items)
		if err != nil {
			return nil, err
		}
		snap = relabeled
	}
	return engine.Restore(items, snap)
}

func (s *Session) discard(err error) {
	s.recovered = true
	s.logger.Warn("discarding unusable snapshot, starting over",
		"key", s.key,
		"error", err,
	)
}

// ID returns the session id, stable across resumes.
func (s *Session) ID() string { return s.id }

// Key returns the store key of the item set.
func (s *Session) Key() string { return s.key }

// Resumed reports whether the session continued a saved sort.
func (s *Session) Resumed() bool { return s.resumed }

// Recovered reports whether an unusable snapshot was discarded on Open.
func (s *Session) Recovered() bool { return s.recovered }

// Items returns the item list being sorted, as given to Open.
func (s *Session) Items() []string { return s.eng.Items() }

// Next returns the pair awaiting a decision, or false when done.
func (s *Session) Next() (engine.Pair, bool) { return s.eng.NextComparison() }

// Progress reports engine progress.
func (s *Session) Progress() engine.Progress { return s.eng.Progress() }

// IsDone reports whether the sort has finished.
func (s *Session) IsDone() bool { return s.eng.IsDone() }

// CanUndo reports whether there is a decision to undo.
func (s *Session) CanUndo() bool { return s.eng.CanUndo() }

// Result returns the final order. Fails with NOT_DONE before the sort finishes.
func (s *Session) Result() ([]string, error) { return s.eng.Result() }

// Decide applies winner and persists the new state.
//
// An INVALID_DECISION error leaves both the engine and the store untouched.
// If the save fails the decision stays applied in memory; a later
// successful save (or Decide) persists it.
func (s *Session) Decide(ctx context.Context, winner string) error {
	if err := s.eng.ApplyDecision(winner); err != nil {
		return err
	}
	s.logger.Debug("decision applied", "winner", winner, "done", s.eng.IsDone())
	return s.Save(ctx)
}

// Undo reverts the most recent decision and persists the new state.
// Fails with NOTHING_TO_UNDO when there is nothing to revert.
func (s *Session) Undo(ctx context.Context) error {
	if err := s.eng.Undo(); err != nil {
		return err
	}
	s.logger.Debug("decision undone", "decisions", s.eng.Progress().Decisions)
	return s.Save(ctx)
}

// Save writes the current engine state to the store.
func (s *Session) Save(ctx context.Context) error {
	err := s.st.Save(ctx, store.Entry{
		Key:       s.key,
		SessionID: s.id,
		Snapshot:  s.eng.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.id, err)
	}
	return nil
}

// Finish returns the final order and deletes the saved snapshot.
// Fails with NOT_DONE (and deletes nothing) before the sort finishes.
func (s *Session) Finish(ctx context.Context) ([]string, error) {
	result, err := s.eng.Result()
	if err != nil {
		return nil, err
	}
	if err := s.st.Delete(ctx, s.key); err != nil {
		return nil, fmt.Errorf("finish session %s: %w", s.id, err)
	}
	s.logger.Info("session finished", "items", len(result))
	return result, nil
}
