package harness

// Trace event actions. Step actions are recorded as written in the
// scenario; the harness adds ActionPrefer for decisions made by the
// preference chooser.
const (
	ActionLeft    = "left"
	ActionRight   = "right"
	ActionChoose  = "choose"
	ActionUndo    = "undo"
	ActionRestore = "restore"
	ActionPrefer  = "prefer"
)

// TraceEvent records one step of a scenario run.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Action string `json:"action"`

	// Pair is the comparison offered before the step, nil when the sort was done.
	Pair []string `json:"pair,omitempty"`

	// Winner is the item submitted by left, right, choose or prefer.
	Winner string `json:"winner,omitempty"`

	// Error is the engine error code the step failed with, if any.
	Error string `json:"error,omitempty"`

	// Decisions is the number of applied decisions after the step.
	Decisions int `json:"decisions"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, then one per preference decision.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	SessionID string `json:"session_id"`
	Done      bool   `json:"done"`

	// Order is the final order, nil unless Done.
	Order []string `json:"order,omitempty"`

	Decisions int `json:"decisions"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends ev with the next sequence number.
func (r *Result) addEvent(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}
