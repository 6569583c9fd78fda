package engine

// Run is an ordered sequence of items already known to be correctly sorted
// relative to each other, most-preferred first. A sealed run is never
// reordered.
type Run []string

// Pair is the comparison the engine is waiting on.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// MergeTask interleaves two runs into one, driven by one decision per step.
//
// INVARIANTS:
//   - 0 <= LeftIndex <= len(Left), 0 <= RightIndex <= len(Right)
//   - len(Output) == LeftIndex + RightIndex
//   - Output is a merge of Left[:LeftIndex] and Right[:RightIndex]
//
// The task is sealed when both cursors reach the end of their runs; its
// Output is then the new run.
type MergeTask struct {
	Left       Run `json:"left"`
	Right      Run `json:"right"`
	LeftIndex  int `json:"left_index"`
	RightIndex int `json:"right_index"`
	Output     Run `json:"output"`
}

// Sealed reports whether every item of both runs has been consumed.
func (t *MergeTask) Sealed() bool {
	return t.LeftIndex == len(t.Left) && t.RightIndex == len(t.Right)
}

func (t *MergeTask) pair() Pair {
	return Pair{Left: t.Left[t.LeftIndex], Right: t.Right[t.RightIndex]}
}

// take appends the head of the chosen run to the output and advances its
// cursor. When either run is exhausted the other run's tail is appended in
// bulk, since its internal order is already fixed. Returns true if the task
// sealed.
func (t *MergeTask) take(fromLeft bool) bool {
	if fromLeft {
		t.Output = append(t.Output, t.Left[t.LeftIndex])
		t.LeftIndex++
	} else {
		t.Output = append(t.Output, t.Right[t.RightIndex])
		t.RightIndex++
	}

	switch {
	case t.LeftIndex == len(t.Left):
		t.Output = append(t.Output, t.Right[t.RightIndex:]...)
		t.RightIndex = len(t.Right)
	case t.RightIndex == len(t.Right):
		t.Output = append(t.Output, t.Left[t.LeftIndex:]...)
		t.LeftIndex = len(t.Left)
	default:
		return false
	}
	return true
}

// remaining returns the worst-case number of decisions left in this task.
func (t *MergeTask) remaining() int {
	l, r := len(t.Left)-t.LeftIndex, len(t.Right)-t.RightIndex
	if l == 0 || r == 0 {
		return 0
	}
	return l + r - 1
}

// planPass pairs runs consecutively in their current order. An odd run out
// is returned as carry and goes to the end of the next pass's run list.
func planPass(runs []Run) (tasks []MergeTask, carry Run) {
	tasks = make([]MergeTask, 0, len(runs)/2)
	for i := 0; i+1 < len(runs); i += 2 {
		left, right := runs[i], runs[i+1]
		tasks = append(tasks, MergeTask{
			Left:   left,
			Right:  right,
			Output: make(Run, 0, len(left)+len(right)),
		})
	}
	if len(runs)%2 == 1 {
		carry = runs[len(runs)-1]
	}
	return tasks, carry
}

// nextRuns collects the runs a finished pass hands to the next one: every
// task output in order, then the carried run.
func nextRuns(tasks []MergeTask, carry Run) []Run {
	runs := make([]Run, 0, len(tasks)+1)
	for i := range tasks {
		runs = append(runs, tasks[i].Output)
	}
	if carry != nil {
		runs = append(runs, carry)
	}
	return runs
}

// passesFor returns the number of merge passes needed for n items.
func passesFor(n int) int {
	passes := 0
	for n > 1 {
		n = (n + 1) / 2
		passes++
	}
	return passes
}

// worstCase returns the worst-case number of decisions needed to merge
// runs of the given lengths down to one run with the pass structure above.
func worstCase(lengths []int) int {
	total := 0
	for len(lengths) > 1 {
		next := make([]int, 0, (len(lengths)+1)/2)
		for i := 0; i+1 < len(lengths); i += 2 {
			total += lengths[i] + lengths[i+1] - 1
			next = append(next, lengths[i]+lengths[i+1])
		}
		if len(lengths)%2 == 1 {
			next = append(next, lengths[len(lengths)-1])
		}
		lengths = next
	}
	return total
}

func cloneRun(r Run) Run {
	if r == nil {
		return nil
	}
	out := make(Run, len(r))
	copy(out, r)
	return out
}

func cloneTasks(tasks []MergeTask) []MergeTask {
	if tasks == nil {
		return nil
	}
	out := make([]MergeTask, len(tasks))
	for i, t := range tasks {
		out[i] = MergeTask{
			Left:       cloneRun(t.Left),
			Right:      cloneRun(t.Right),
			LeftIndex:  t.LeftIndex,
			RightIndex: t.RightIndex,
			Output:     cloneRun(t.Output),
		}
	}
	return out
}
