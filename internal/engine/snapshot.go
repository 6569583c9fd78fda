package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/pairsort/internal/ir"
)

// Snapshot is a plain-data capture of the full engine state: the merge
// plan with cursors and buffers, the final order if any, and the whole
// decision log. It is the only thing persisted between sessions.
//
// Restore(items, s.Snapshot()) behaves identically to s for every
// subsequent operation. Slices keep their nil-ness through JSON, so a
// snapshot survives a JSON round trip unchanged.
type Snapshot struct {
	Version int         `json:"version"`
	Items   []string    `json:"items"`
	Pass    int         `json:"pass"`
	Tasks   []MergeTask `json:"tasks"`
	Active  int         `json:"active"`
	Carry   Run         `json:"carry"`
	Done    bool        `json:"done"`
	Result  Run         `json:"result"`
	Log     []Decision  `json:"log"`
}

// Snapshot returns a deep copy of the engine state.
// The engine may keep running; the snapshot never changes afterwards.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Version: ir.SnapshotVersion,
		Items:   slices.Clone(e.items),
		Pass:    e.pass,
		Tasks:   cloneTasks(e.tasks),
		Active:  e.active,
		Carry:   cloneRun(e.carry),
		Done:    e.done,
		Result:  cloneRun(e.result),
		Log:     cloneLog(e.log),
	}
}

// Restore rebuilds an engine from a snapshot.
//
// items is the caller's current identifier list; it must match the
// snapshot's list exactly. Any mismatch or structural problem fails with
// CORRUPT_SNAPSHOT, and the caller should fall back to New.
func Restore(items []string, s Snapshot) (*Engine, error) {
	if err := validateSnapshot(items, &s); err != nil {
		return nil, err
	}

	e := &Engine{
		items:  slices.Clone(s.Items),
		pass:   s.Pass,
		tasks:  cloneTasks(s.Tasks),
		active: s.Active,
		carry:  cloneRun(s.Carry),
		done:   s.Done,
		result: cloneRun(s.Result),
		log:    cloneLog(s.Log),
	}
	return e, nil
}

// Relabel returns a deep copy of s with every identifier replaced by the
// one at the same position in items. A snapshot saved under one spelling
// of an item list can then resume under another spelling of the same list.
//
// items must be distinct (DUPLICATE_ITEM) and as long as the snapshot's
// list (CORRUPT_SNAPSHOT). Identifiers not in the snapshot's list are kept
// as they are and left for Restore to reject.
func (s Snapshot) Relabel(items []string) (Snapshot, error) {
	if err := checkDistinct(items); err != nil {
		return Snapshot{}, err
	}
	if len(items) != len(s.Items) {
		return Snapshot{}, NewCorruptSnapshotError("item set mismatch: snapshot has %d items, caller has %d",
			len(s.Items), len(items))
	}
	if err := checkDistinct(s.Items); err != nil {
		return Snapshot{}, NewCorruptSnapshotError("snapshot item list: %v", err)
	}

	m := make(map[string]string, len(items))
	for i, id := range s.Items {
		m[id] = items[i]
	}
	relabel := func(id string) string {
		if to, ok := m[id]; ok {
			return to
		}
		return id
	}
	run := func(r Run) Run {
		if r == nil {
			return nil
		}
		out := make(Run, len(r))
		for i, id := range r {
			out[i] = relabel(id)
		}
		return out
	}
	tasks := func(ts []MergeTask) []MergeTask {
		out := cloneTasks(ts)
		for i := range out {
			out[i].Left = run(out[i].Left)
			out[i].Right = run(out[i].Right)
			out[i].Output = run(out[i].Output)
		}
		return out
	}

	out := s
	out.Items = append([]string{}, items...)
	out.Tasks = tasks(s.Tasks)
	out.Carry = run(s.Carry)
	out.Result = run(s.Result)
	out.Log = cloneLog(s.Log)
	for i := range out.Log {
		d := &out.Log[i]
		d.Winner = relabel(d.Winner)
		if d.Previous != nil {
			d.Previous.Tasks = tasks(d.Previous.Tasks)
			d.Previous.Carry = run(d.Previous.Carry)
		}
	}
	return out, nil
}

func cloneLog(log []Decision) []Decision {
	if log == nil {
		return nil
	}
	out := make([]Decision, len(log))
	for i, d := range log {
		out[i] = d
		if d.Previous != nil {
			out[i].Previous = &PassState{
				Pass:  d.Previous.Pass,
				Tasks: cloneTasks(d.Previous.Tasks),
				Carry: cloneRun(d.Previous.Carry),
			}
		}
	}
	return out
}

func validateSnapshot(items []string, s *Snapshot) error {
	if s.Version != ir.SnapshotVersion {
		return NewCorruptSnapshotError("snapshot version %d, want %d", s.Version, ir.SnapshotVersion)
	}
	if s.Items == nil {
		return NewCorruptSnapshotError("snapshot has no item list")
	}
	if !slices.Equal(items, s.Items) {
		return NewCorruptSnapshotError("item set mismatch: snapshot has %d items, caller has %d",
			len(s.Items), len(items))
	}
	if err := checkDistinct(s.Items); err != nil {
		return NewCorruptSnapshotError("snapshot item list: %v", err)
	}

	if len(s.Items) <= 1 {
		if !s.Done || len(s.Tasks) != 0 || len(s.Log) != 0 {
			return NewCorruptSnapshotError("trivial item list must be done with no plan")
		}
		return checkPermutation("result", s.Items, s.Result)
	}

	if s.Pass < 0 || s.Pass >= passesFor(len(s.Items)) {
		return NewCorruptSnapshotError("pass %d out of range", s.Pass)
	}
	if err := validatePass("plan", s.Items, s.Tasks, s.Carry); err != nil {
		return err
	}

	if s.Done {
		if s.Active != len(s.Tasks) || s.Carry != nil {
			return NewCorruptSnapshotError("done snapshot has pending tasks")
		}
		if len(s.Tasks) != 1 || !s.Tasks[0].Sealed() {
			return NewCorruptSnapshotError("done snapshot must end with a single sealed merge")
		}
		if !slices.Equal(s.Result, s.Tasks[0].Output) {
			return NewCorruptSnapshotError("result does not match final merge output")
		}
	} else {
		if s.Result != nil {
			return NewCorruptSnapshotError("unfinished snapshot has a result")
		}
		if s.Active < 0 || s.Active >= len(s.Tasks) {
			return NewCorruptSnapshotError("active task %d out of range [0,%d)", s.Active, len(s.Tasks))
		}
		for i := range s.Tasks {
			t := &s.Tasks[i]
			switch {
			case i < s.Active && !t.Sealed():
				return NewCorruptSnapshotError("task %d precedes the active task but is not sealed", i)
			case i == s.Active && (t.LeftIndex >= len(t.Left) || t.RightIndex >= len(t.Right)):
				return NewCorruptSnapshotError("active task %d has no pending comparison", i)
			case i > s.Active && (t.LeftIndex != 0 || t.RightIndex != 0):
				return NewCorruptSnapshotError("task %d follows the active task but has progress", i)
			}
		}
	}

	return validateLog(s)
}

// validatePass checks one pass: every task satisfies the cursor invariants
// and every item appears exactly once across the task runs and the carry.
func validatePass(where string, items []string, tasks []MergeTask, carry Run) error {
	if len(tasks) == 0 {
		return NewCorruptSnapshotError("%s: no merge tasks", where)
	}
	all := make([]string, 0, len(items))
	for i := range tasks {
		t := &tasks[i]
		if len(t.Left) == 0 || len(t.Right) == 0 {
			return NewCorruptSnapshotError("%s: task %d has an empty run", where, i)
		}
		if t.LeftIndex < 0 || t.LeftIndex > len(t.Left) || t.RightIndex < 0 || t.RightIndex > len(t.Right) {
			return NewCorruptSnapshotError("%s: task %d cursors out of range", where, i)
		}
		if !isMerge(t.Output, t.Left[:t.LeftIndex], t.Right[:t.RightIndex]) {
			return NewCorruptSnapshotError("%s: task %d output is not a merge of its consumed runs", where, i)
		}
		all = append(all, t.Left...)
		all = append(all, t.Right...)
	}
	if carry != nil {
		if len(carry) == 0 {
			return NewCorruptSnapshotError("%s: empty carried run", where)
		}
		all = append(all, carry...)
	}
	return checkPermutation(where, items, all)
}

// isMerge reports whether out interleaves left and right, each in order.
// Items are distinct, so a greedy walk decides it.
func isMerge(out, left, right Run) bool {
	if len(out) != len(left)+len(right) {
		return false
	}
	li, ri := 0, 0
	for _, item := range out {
		switch {
		case li < len(left) && item == left[li]:
			li++
		case ri < len(right) && item == right[ri]:
			ri++
		default:
			return false
		}
	}
	return true
}

func checkPermutation(where string, items []string, got []string) error {
	if len(got) != len(items) {
		return NewCorruptSnapshotError("%s: holds %d items, want %d", where, len(got), len(items))
	}
	want := make(map[string]bool, len(items))
	for _, item := range items {
		want[item] = true
	}
	for _, item := range got {
		if !want[item] {
			return NewCorruptSnapshotError("%s: unknown or repeated item %q", where, item)
		}
		delete(want, item)
	}
	return nil
}

// validateLog rewinds the decision log on a scratch copy of the plan.
// Every entry must be the exact inverse of a decision the engine could have
// applied to the state it rewinds to, and the full rewind must end at the
// plan New builds for the same items. Undo can then never step outside the
// plan.
func validateLog(s *Snapshot) error {
	cur := rewindState{
		pass:   s.Pass,
		tasks:  cloneTasks(s.Tasks),
		active: s.Active,
		carry:  cloneRun(s.Carry),
		done:   s.Done,
	}
	for i := len(s.Log) - 1; i >= 0; i-- {
		if err := cur.rewind(s.Items, &s.Log[i]); err != nil {
			return NewCorruptSnapshotError("log entry %d: %v", i, err)
		}
	}

	runs := make([]Run, len(s.Items))
	for i, item := range s.Items {
		runs[i] = Run{item}
	}
	tasks, carry := planPass(runs)
	if cur.pass != 0 || cur.active != 0 || !tasksEqual(cur.tasks, tasks) || !slices.Equal(cur.carry, carry) {
		return NewCorruptSnapshotError("log does not rewind to the initial plan")
	}
	return nil
}

// rewindState is the part of the engine a log entry rewinds.
type rewindState struct {
	pass   int
	tasks  []MergeTask
	active int
	carry  Run
	done   bool
}

func (r *rewindState) rewind(items []string, d *Decision) error {
	if d.Previous != nil {
		if err := r.reopenPass(items, d); err != nil {
			return err
		}
	} else if d.Pass != r.pass {
		return fmt.Errorf("pass %d, plan is at pass %d", d.Pass, r.pass)
	}

	if d.Active < 0 || d.Active >= len(r.tasks) {
		return fmt.Errorf("active task %d out of range [0,%d)", d.Active, len(r.tasks))
	}
	task := &r.tasks[d.Active]
	l, rt := d.LeftIndex, d.RightIndex
	if l < 0 || l >= len(task.Left) || rt < 0 || rt >= len(task.Right) {
		return fmt.Errorf("cursors (%d,%d) leave no comparison in task %d", l, rt, d.Active)
	}
	if l > task.LeftIndex || rt > task.RightIndex {
		return fmt.Errorf("cursors (%d,%d) are past task %d at (%d,%d)",
			l, rt, d.Active, task.LeftIndex, task.RightIndex)
	}

	// Replay the decision from the rewound cursors; it must reproduce the
	// task as it stands now.
	replay := MergeTask{
		Left:       task.Left,
		Right:      task.Right,
		LeftIndex:  l,
		RightIndex: rt,
		Output:     cloneRun(task.Output[:l+rt]),
	}
	var fromLeft bool
	switch d.Winner {
	case task.Left[l]:
		fromLeft = true
	case task.Right[rt]:
	default:
		return fmt.Errorf("winner %q was not offered", d.Winner)
	}
	sealed := replay.take(fromLeft)
	if replay.LeftIndex != task.LeftIndex || replay.RightIndex != task.RightIndex ||
		!slices.Equal(replay.Output, task.Output) {
		return fmt.Errorf("winner %q does not reproduce task %d", d.Winner, d.Active)
	}
	wantActive := d.Active
	if sealed {
		wantActive++
	}
	if r.active != wantActive {
		return fmt.Errorf("active task %d, want %d", r.active, wantActive)
	}

	task.LeftIndex, task.RightIndex = l, rt
	task.Output = task.Output[:l+rt]
	r.active = d.Active
	r.done = false
	return nil
}

// reopenPass undoes the planning step of a decision that completed a pass:
// the current state must be the untouched plan built from the stored pass,
// which then becomes current with every task sealed.
func (r *rewindState) reopenPass(items []string, d *Decision) error {
	prev := d.Previous
	if r.done {
		return fmt.Errorf("the finishing decision cannot plan a pass")
	}
	if prev.Pass != d.Pass || r.pass != d.Pass+1 {
		return fmt.Errorf("stores pass %d for decision in pass %d, plan is at pass %d", prev.Pass, d.Pass, r.pass)
	}
	if err := validatePass("stored pass", items, prev.Tasks, prev.Carry); err != nil {
		var ee *Error
		if errors.As(err, &ee) {
			return errors.New(ee.Message)
		}
		return err
	}
	for i := range prev.Tasks {
		if !prev.Tasks[i].Sealed() {
			return fmt.Errorf("stored pass task %d is not sealed", i)
		}
	}
	tasks, carry := planPass(nextRuns(prev.Tasks, prev.Carry))
	if r.active != 0 || !tasksEqual(r.tasks, tasks) || !slices.Equal(r.carry, carry) {
		return fmt.Errorf("plan was not built from the stored pass")
	}

	r.pass = prev.Pass
	r.tasks = cloneTasks(prev.Tasks)
	r.carry = cloneRun(prev.Carry)
	r.active = len(r.tasks)
	return nil
}

func tasksEqual(a, b []MergeTask) bool {
	return slices.EqualFunc(a, b, func(x, y MergeTask) bool {
		return x.LeftIndex == y.LeftIndex && x.RightIndex == y.RightIndex &&
			slices.Equal(x.Left, y.Left) && slices.Equal(x.Right, y.Right) &&
			slices.Equal(x.Output, y.Output)
	})
}
