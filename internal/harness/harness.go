package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/afero"

	"github.com/roach88/pairsort/internal/engine"
	"github.com/roach88/pairsort/internal/session"
	"github.com/roach88/pairsort/internal/store"
	"github.com/roach88/pairsort/internal/testutil"
)

// Harness is the scenario execution context.
// It holds the store and session of one run.
type Harness struct {
	store  *store.FileStore
	sess   *session.Session
	ids    *testutil.FixedIDGenerator
	logger *slog.Logger
	items  []string
}

// Run executes a scenario and returns the result.
//
// Each run uses a fresh in-memory filesystem for isolation. Step
// expectation and assertion failures are reported in Result.Errors;
// the returned error is reserved for failures of the harness itself.
//
// Execution flow:
// 1. Open a session for the scenario items
// 2. Execute steps, recording one trace event each
// 3. Finish with the preference chooser, if any
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.NewFileStore(afero.NewMemMapFs(), "/state")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	h := &Harness{
		store:  st,
		ids:    testutil.NewFixedIDGenerator(sessionID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		items:  scenario.Items,
	}
	if err := h.open(ctx); err != nil {
		return nil, err
	}

	result := NewResult()
	result.SessionID = h.sess.ID()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	if scenario.Preference != nil {
		if err := h.finish(ctx, scenario.Preference, result); err != nil {
			return nil, fmt.Errorf("preference: %w", err)
		}
	}

	result.Done = h.sess.IsDone()
	result.Decisions = h.sess.Progress().Decisions
	if result.Done {
		order, err := h.sess.Result()
		if err != nil {
			return nil, err
		}
		result.Order = order
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) open(ctx context.Context) error {
	sess, err := session.Open(ctx, h.store, h.items,
		session.WithIDGenerator(h.ids),
		session.WithLogger(h.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	h.sess = sess
	return nil
}

// executeStep runs one scripted action and records it.
// Engine errors are expected outcomes and go into the trace; anything
// else aborts the run.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	ev := TraceEvent{Action: step.Action}
	pair, ok := h.sess.Next()
	if ok {
		ev.Pair = []string{pair.Left, pair.Right}
	}
	if step.ExpectPair != nil && !slices.Equal(step.ExpectPair, ev.Pair) {
		result.AddError(fmt.Sprintf("steps[%d]: expected pair %v, offered %v", index, step.ExpectPair, ev.Pair))
	}

	var err error
	switch step.Action {
	case ActionLeft:
		ev.Winner = pair.Left
		err = h.sess.Decide(ctx, ev.Winner)
	case ActionRight:
		ev.Winner = pair.Right
		err = h.sess.Decide(ctx, ev.Winner)
	case ActionChoose:
		ev.Winner = step.Winner
		err = h.sess.Decide(ctx, ev.Winner)
	case ActionUndo:
		err = h.sess.Undo(ctx)
	case ActionRestore:
		if err := h.open(ctx); err != nil {
			return err
		}
		if !h.sess.Resumed() {
			result.AddError(fmt.Sprintf("steps[%d]: restore did not resume the saved sort", index))
		}
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}

	code, err := engineErrorCode(err)
	if err != nil {
		return err
	}
	ev.Error = code
	if code != step.ExpectError {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %q, got %q", index, step.Action, step.ExpectError, code))
	}

	ev.Decisions = h.sess.Progress().Decisions
	result.addEvent(ev)
	return nil
}

// finish drives the sort to completion with a consistent chooser.
func (h *Harness) finish(ctx context.Context, preference []string, result *Result) error {
	oracle := testutil.NewRankOracle(preference)
	for {
		pair, ok := h.sess.Next()
		if !ok {
			return nil
		}
		winner := oracle.Choose(pair.Left, pair.Right)
		if err := h.sess.Decide(ctx, winner); err != nil {
			return err
		}
		result.addEvent(TraceEvent{
			Action:    ActionPrefer,
			Pair:      []string{pair.Left, pair.Right},
			Winner:    winner,
			Decisions: h.sess.Progress().Decisions,
		})
	}
}

// engineErrorCode splits err into an engine error code and any other error.
func engineErrorCode(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	var ee *engine.Error
	if errors.As(err, &ee) {
		return string(ee.Code), nil
	}
	return "", err
}
