package engine

// Decision is one DecisionLog entry: everything needed to rewind exactly
// one applied decision.
//
// A decision only ever touches the active task's cursors and output, plus
// at most one pass transition. The entry therefore records the active
// task's cursors before the decision (the output length follows from them)
// and, when the decision completed a pass and planned the next one, the
// whole finished pass. Sealed runs are immutable, so sharing them between
// the entry and the live plan is safe.
type Decision struct {
	Winner     string `json:"winner"`
	Pass       int    `json:"pass"`
	Active     int    `json:"active"`
	LeftIndex  int    `json:"left_index"`
	RightIndex int    `json:"right_index"`

	// Previous is the pass that this decision completed, set only when the
	// decision caused a new pass to be planned.
	Previous *PassState `json:"previous,omitempty"`
}

// PassState is a complete merge pass: its tasks and its carried run.
type PassState struct {
	Pass  int         `json:"pass"`
	Tasks []MergeTask `json:"tasks"`
	Carry Run         `json:"carry"`
}

// CanUndo reports whether there is a decision to undo.
func (e *Engine) CanUndo() bool {
	return len(e.log) > 0
}

// Undo rewinds the most recent decision.
//
// Fails with NOTHING_TO_UNDO when the log is empty. Otherwise the plan,
// runs, cursors and buffers return to exactly their pre-decision state and
// the engine awaits a decision again, even if it had reached Done.
func (e *Engine) Undo() error {
	if len(e.log) == 0 {
		return NewNothingToUndoError()
	}

	last := len(e.log) - 1
	d := e.log[last]
	e.log[last] = Decision{} // release the entry's references
	e.log = e.log[:last]
	if last == 0 {
		e.log = nil
	}

	if d.Previous != nil {
		e.pass = d.Previous.Pass
		e.tasks = d.Previous.Tasks
		e.carry = d.Previous.Carry
	}
	e.done = false
	e.result = nil
	e.active = d.Active

	task := &e.tasks[e.active]
	task.LeftIndex = d.LeftIndex
	task.RightIndex = d.RightIndex
	// Cap the output at its length so the next append reallocates instead
	// of overwriting items still referenced by the discarded runs.
	n := d.LeftIndex + d.RightIndex
	task.Output = task.Output[:n:n]

	return nil
}
