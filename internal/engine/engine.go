package engine

import (
	"fmt"
	"log/slog"
	"slices"
)

// Engine is a resumable bottom-up merge sort driven by an external comparator.
//
// The engine is always in one of two observable states:
//   - AwaitingDecision: NextComparison returns the heads of the active task
//   - Done: NextComparison returns false and Result returns the final order
//
// Applying a decision is a transient step between them.
//
// Thread-safety: none. The caller serializes every call.
//
// INVARIANTS:
//   - items never changes after construction
//   - tasks[:active] are sealed, tasks[active] awaits a decision, tasks[active+1:] are untouched
//   - every item appears exactly once across the current pass (task runs plus carry)
//   - len(log) equals the number of applied, not-undone decisions
type Engine struct {
	items []string

	pass   int
	tasks  []MergeTask
	active int
	carry  Run

	done   bool
	result Run

	log []Decision
}

// New creates an engine for the given items in their input order.
//
// The items slice is copied. Identifiers must be distinct; a repeated
// identifier fails with DUPLICATE_ITEM. With zero or one item the engine
// is Done immediately and no comparison is ever offered.
func New(items []string) (*Engine, error) {
	if err := checkDistinct(items); err != nil {
		return nil, err
	}

	e := &Engine{items: slices.Clone(items)}
	if e.items == nil {
		e.items = []string{}
	}

	if len(e.items) <= 1 {
		e.done = true
		e.result = cloneRun(e.items)
		return e, nil
	}

	runs := make([]Run, len(e.items))
	for i, item := range e.items {
		runs[i] = Run{item}
	}
	e.tasks, e.carry = planPass(runs)

	slog.Debug("merge plan created",
		"items", len(e.items),
		"tasks", len(e.tasks),
		"passes", passesFor(len(e.items)),
	)
	return e, nil
}

func checkDistinct(items []string) error {
	seen := make(map[string]int, len(items))
	for i, item := range items {
		if first, ok := seen[item]; ok {
			return NewDuplicateItemError(item, first, i)
		}
		seen[item] = i
	}
	return nil
}

// Items returns a copy of the input list the engine was built from.
func (e *Engine) Items() []string {
	return slices.Clone(e.items)
}

// NextComparison returns the pair awaiting a decision.
//
// Returns false only when the engine is Done. Calling it never mutates
// state, so it may be called any number of times.
func (e *Engine) NextComparison() (Pair, bool) {
	if e.done {
		return Pair{}, false
	}
	return e.tasks[e.active].pair(), true
}

// ApplyDecision records winner as the preferred item of the current pair.
//
// winner must be one of the two items returned by NextComparison. Any
// other value, or any call once the engine is Done, fails with
// INVALID_DECISION and changes nothing.
//
// Effects, in order:
//  1. log an undo entry for the current state
//  2. append winner to the active task and advance its cursor
//  3. if a run is exhausted, append the other run's tail and seal the task
//  4. if the pass is complete, either finish (one run left) or plan the next pass
func (e *Engine) ApplyDecision(winner string) error {
	pair, ok := e.NextComparison()
	if !ok {
		return NewInvalidDecisionError(winner, "sort is already done")
	}

	var fromLeft bool
	switch winner {
	case pair.Left:
		fromLeft = true
	case pair.Right:
		fromLeft = false
	default:
		return NewInvalidDecisionError(winner,
			fmt.Sprintf("winner must be %q or %q", pair.Left, pair.Right))
	}

	task := &e.tasks[e.active]
	d := Decision{
		Winner:     winner,
		Pass:       e.pass,
		Active:     e.active,
		LeftIndex:  task.LeftIndex,
		RightIndex: task.RightIndex,
	}

	if task.take(fromLeft) {
		e.active++
		if e.active == len(e.tasks) {
			d.Previous = e.completePass()
		}
	}

	e.log = append(e.log, d)
	return nil
}

// completePass is called once every task of the current pass is sealed.
// It either finishes the sort or plans the next pass, returning the
// finished pass so the decision that triggered it can be undone.
func (e *Engine) completePass() *PassState {
	runs := nextRuns(e.tasks, e.carry)
	if len(runs) == 1 {
		e.done = true
		e.result = runs[0]
		slog.Debug("sort complete", "items", len(e.items), "decisions", len(e.log)+1)
		return nil
	}

	prev := &PassState{Pass: e.pass, Tasks: e.tasks, Carry: e.carry}
	e.tasks, e.carry = planPass(runs)
	e.pass++
	e.active = 0

	slog.Debug("merge pass planned",
		"pass", e.pass,
		"tasks", len(e.tasks),
		"carry", len(e.carry),
	)
	return prev
}

// IsDone reports whether the final order is available.
func (e *Engine) IsDone() bool {
	return e.done
}

// Result returns a copy of the final order, most-preferred first.
// Fails with NOT_DONE until the engine is Done.
func (e *Engine) Result() ([]string, error) {
	if !e.done {
		return nil, NewNotDoneError(e.Progress().Remaining)
	}
	return slices.Clone([]string(e.result)), nil
}

// Progress summarizes how far the sort has come.
type Progress struct {
	// Items is the number of items being sorted.
	Items int `json:"items"`

	// Decisions is the number of applied, not-undone decisions.
	Decisions int `json:"decisions"`

	// Pass is the zero-based index of the current pass.
	Pass int `json:"pass"`

	// Passes is the total number of passes the sort needs.
	Passes int `json:"passes"`

	// Remaining is the worst-case number of decisions still needed.
	Remaining int `json:"remaining"`

	// Done mirrors IsDone.
	Done bool `json:"done"`
}

// Progress returns counters for status displays. It never mutates state.
func (e *Engine) Progress() Progress {
	p := Progress{
		Items:     len(e.items),
		Decisions: len(e.log),
		Pass:      e.pass,
		Passes:    passesFor(len(e.items)),
		Done:      e.done,
	}
	if e.done {
		p.Pass = p.Passes
		return p
	}

	// Decisions left in the current pass, then a simulation of the rest.
	lengths := make([]int, 0, len(e.tasks)+1)
	for i := range e.tasks {
		t := &e.tasks[i]
		p.Remaining += t.remaining()
		lengths = append(lengths, len(t.Left)+len(t.Right))
	}
	if e.carry != nil {
		lengths = append(lengths, len(e.carry))
	}
	p.Remaining += worstCase(lengths)
	return p
}
