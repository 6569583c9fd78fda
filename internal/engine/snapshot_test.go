package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pairsort/internal/ir"
	"github.com/roach88/pairsort/internal/testutil"
)

func jsonRoundTrip(t *testing.T, s Snapshot) Snapshot {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	var out Snapshot
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestSnapshot_JSONRoundTripAtEveryStep(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 9} {
		e, err := New(testutil.Items(n))
		require.NoError(t, err)
		oracle := testutil.NewCoinOracle(uint64(n + 100))

		for {
			s := e.Snapshot()
			assert.Equal(t, s, jsonRoundTrip(t, s), "n=%d", n)

			pair, ok := e.NextComparison()
			if !ok {
				break
			}
			require.NoError(t, e.ApplyDecision(oracle.Choose(pair.Left, pair.Right)))
		}
	}
}

func TestRestore_ResumeEquivalence(t *testing.T) {
	// Restore at every step and continue both engines with the same choices.
	items := testutil.Items(13)
	bound := 13 * ceilLog2(13)

	reference, err := New(items)
	require.NoError(t, err)
	refOracle := testutil.NewCoinOracle(11)
	var choices []bool // true = left
	for {
		pair, ok := reference.NextComparison()
		if !ok {
			break
		}
		w := refOracle.Choose(pair.Left, pair.Right)
		choices = append(choices, w == pair.Left)
		require.NoError(t, reference.ApplyDecision(w))
	}
	want, err := reference.Result()
	require.NoError(t, err)
	require.LessOrEqual(t, len(choices), bound)

	for cut := 0; cut <= len(choices); cut++ {
		e, err := New(items)
		require.NoError(t, err)
		for _, left := range choices[:cut] {
			pair, _ := e.NextComparison()
			require.NoError(t, e.ApplyDecision(pick(pair, left)))
		}

		restored, err := Restore(items, jsonRoundTrip(t, e.Snapshot()))
		require.NoError(t, err, "cut=%d", cut)
		assert.Equal(t, e.Snapshot(), restored.Snapshot())
		assert.Equal(t, e.Progress(), restored.Progress())

		for _, left := range choices[cut:] {
			p1, ok1 := e.NextComparison()
			p2, ok2 := restored.NextComparison()
			require.Equal(t, ok1, ok2)
			require.Equal(t, p1, p2)
			require.NoError(t, e.ApplyDecision(pick(p1, left)))
			require.NoError(t, restored.ApplyDecision(pick(p2, left)))
		}

		got, err := restored.Result()
		require.NoError(t, err)
		assert.Equal(t, want, got, "cut=%d", cut)
	}
}

func pick(p Pair, left bool) string {
	if left {
		return p.Left
	}
	return p.Right
}

func TestRestore_UndoSurvivesRestore(t *testing.T) {
	items := []string{"A", "B", "C", "D"}
	e, err := New(items)
	require.NoError(t, err)
	for _, w := range []string{"A", "C", "A", "B"} {
		require.NoError(t, e.ApplyDecision(w))
	}
	require.True(t, e.IsDone())

	restored, err := Restore(items, jsonRoundTrip(t, e.Snapshot()))
	require.NoError(t, err)
	require.True(t, restored.IsDone())

	for i := 0; i < 4; i++ {
		require.NoError(t, restored.Undo())
	}
	initial, err := New(items)
	require.NoError(t, err)
	assert.Equal(t, initial.Snapshot(), restored.Snapshot())
}

func TestRestore_TrivialSnapshots(t *testing.T) {
	for _, items := range [][]string{{}, {"x"}} {
		e, err := New(items)
		require.NoError(t, err)
		restored, err := Restore(items, jsonRoundTrip(t, e.Snapshot()))
		require.NoError(t, err)
		assert.True(t, restored.IsDone())
	}
}

func TestRestore_RejectsCorruptSnapshots(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	e, err := New(items)
	require.NoError(t, err)
	require.NoError(t, e.ApplyDecision("a"))
	require.NoError(t, e.ApplyDecision("d"))
	require.NoError(t, e.ApplyDecision("a"))
	good := e.Snapshot()

	_, err = Restore(items, good)
	require.NoError(t, err, "baseline snapshot must restore")

	tests := []struct {
		name   string
		items  []string
		mutate func(s *Snapshot)
	}{
		{"version mismatch", items, func(s *Snapshot) { s.Version = ir.SnapshotVersion + 1 }},
		{"missing item list", items, func(s *Snapshot) { s.Items = nil }},
		{"item added since save", append(append([]string{}, items...), "f"), func(s *Snapshot) {}},
		{"item renamed since save", []string{"a", "b", "c", "d", "z"}, func(s *Snapshot) {}},
		{"cursor past end", items, func(s *Snapshot) { s.Tasks[s.Active].LeftIndex = 99 }},
		{"negative cursor", items, func(s *Snapshot) { s.Tasks[s.Active].RightIndex = -1 }},
		{"output length mismatch", items, func(s *Snapshot) { s.Tasks[s.Active].Output = append(s.Tasks[s.Active].Output, "zz") }},
		{"active out of range", items, func(s *Snapshot) { s.Active = len(s.Tasks) }},
		{"item lost from plan", items, func(s *Snapshot) { s.Carry = nil }},
		{"item duplicated in plan", items, func(s *Snapshot) { s.Carry = Run{"a"} }},
		{"done without result", items, func(s *Snapshot) { s.Done = true }},
		{"result while pending", items, func(s *Snapshot) { s.Result = Run{"a"} }},
		{"log entry without winner", items, func(s *Snapshot) { s.Log[0].Winner = "" }},
		{"log truncated", items, func(s *Snapshot) { s.Log = s.Log[2:] }},
		{"pass out of range", items, func(s *Snapshot) { s.Pass = 7 }},
		{"log active out of range", items, func(s *Snapshot) { s.Log[0].Active = 7 }},
		{"log cursor past task", items, func(s *Snapshot) { s.Log[2].RightIndex = 1 }},
		{"log cursor past run", items, func(s *Snapshot) { s.Log[2].LeftIndex = 5 }},
		{"log winner disagrees with output", items, func(s *Snapshot) { s.Log[0].Winner = "b" }},
		{"log winner not offered", items, func(s *Snapshot) { s.Log[2].Winner = "e" }},
		{"log stored pass not sealed", items, func(s *Snapshot) { s.Log[1].Previous.Tasks[0].RightIndex = 0; s.Log[1].Previous.Tasks[0].Output = Run{"a"} }},
		{"log stored pass does not build plan", items, func(s *Snapshot) {
			p := s.Log[1].Previous
			p.Tasks[0], p.Tasks[1] = p.Tasks[1], p.Tasks[0]
		}},
		{"log misses a decision", items, func(s *Snapshot) { s.Log = append(s.Log[:0:0], s.Log[1:]...) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := jsonRoundTrip(t, good) // deep copy
			tt.mutate(&s)
			_, err := Restore(tt.items, s)
			require.Error(t, err)
			assert.True(t, IsCorruptSnapshot(err), "got %v", err)
		})
	}
}

func TestRestore_RejectedLogNeverReachesUndo(t *testing.T) {
	items := []string{"A", "B", "C", "D"}
	e, err := New(items)
	require.NoError(t, err)
	require.NoError(t, e.ApplyDecision("A"))

	s := e.Snapshot()
	s.Log[0].Active = 7
	_, err = Restore(items, s)
	require.Error(t, err)
	assert.True(t, IsCorruptSnapshot(err), "got %v", err)

	require.NoError(t, e.ApplyDecision("C"))
	s = e.Snapshot()
	s.Log[1].LeftIndex = 5
	_, err = Restore(items, s)
	require.Error(t, err)
	assert.True(t, IsCorruptSnapshot(err), "got %v", err)

	// The untouched snapshot still rewinds all the way.
	restored, err := Restore(items, e.Snapshot())
	require.NoError(t, err)
	require.NoError(t, restored.Undo())
	require.NoError(t, restored.Undo())
	assert.False(t, restored.CanUndo())
}

func TestSnapshot_Relabel(t *testing.T) {
	e, err := New([]string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	for _, w := range []string{"b", "d", "b"} {
		require.NoError(t, e.ApplyDecision(w))
	}
	s := e.Snapshot()
	frozen := jsonRoundTrip(t, s)

	upper := []string{"A", "B", "C", "D", "E"}
	relabeled, err := s.Relabel(upper)
	require.NoError(t, err)
	assert.Equal(t, frozen, s, "relabeling copies")

	restored, err := Restore(upper, relabeled)
	require.NoError(t, err)
	pair, ok := restored.NextComparison()
	require.True(t, ok)
	assert.Equal(t, Pair{Left: "A", Right: "D"}, pair)

	for restored.CanUndo() {
		require.NoError(t, restored.Undo())
	}
	initial, err := New(upper)
	require.NoError(t, err)
	assert.Equal(t, initial.Snapshot(), restored.Snapshot())

	_, err = s.Relabel([]string{"A", "B"})
	assert.True(t, IsCorruptSnapshot(err), "got %v", err)
	_, err = s.Relabel([]string{"A", "A", "C", "D", "E"})
	assert.True(t, IsDuplicateItem(err), "got %v", err)
}

func TestSnapshot_IsIndependentOfEngine(t *testing.T) {
	e, err := New([]string{"a", "b", "c"})
	require.NoError(t, err)
	s := e.Snapshot()
	frozen := jsonRoundTrip(t, s)

	require.NoError(t, e.ApplyDecision("a"))
	require.NoError(t, e.ApplyDecision("c"))
	assert.Equal(t, frozen, s, "snapshot must not change when the engine moves on")
}
