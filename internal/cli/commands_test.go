package cli

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pairsort/internal/engine"
	"github.com/roach88/pairsort/internal/ir"
	"github.com/roach88/pairsort/internal/store"
)

var fourImages = []string{"a.png", "b.png", "c.png", "d.png"}

// jsonLine is one CLIResponse with its payload left undecoded.
type jsonLine struct {
	Status    string          `json:"status"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
	Error     *CLIError       `json:"error"`
}

func decodeLines(t *testing.T, out string) []jsonLine {
	t.Helper()
	var lines []jsonLine
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var l jsonLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l), "line: %s", sc.Text())
		lines = append(lines, l)
	}
	return lines
}

func decodeData[T any](t *testing.T, l jsonLine) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(l.Data, &v))
	return v
}

func TestSort_AnswersToCompletion(t *testing.T) {
	env := newTestEnv(t, append(fourImages, "notes.txt")...)

	out := env.mustRun("1\n1\n1\n1\n", "sort")

	assert.Contains(t, out, "Starting a new sort of 4 items.")
	assert.Contains(t, out, "Comparison 1 (pass 1 of 2, at most 5 left)\n  1) a.png\n  2) b.png\n")
	assert.Contains(t, out, "Sorted 4 items in 4 decisions:\n1. a.png\n2. b.png\n3. c.png\n4. d.png\n")
	assert.NotContains(t, out, "notes.txt")
	assert.NotContains(t, out, "Prefer [", "prompts are only shown on a terminal")
}

func TestSort_QuitAndResume(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	out := env.mustRun("1\nq\n", "sort")
	assert.Contains(t, out, "Progress saved after 1 decisions.")

	out = env.mustRun("1\n1\n1\n", "sort")
	assert.Contains(t, out, "Resuming sort of 4 items (1 decisions so far).")
	assert.Contains(t, out, "Comparison 2 (pass 1 of 2")
	assert.Contains(t, out, "Sorted 4 items in 4 decisions:\n1. a.png\n2. b.png\n3. c.png\n4. d.png\n")
}

func TestSort_EndOfInputSavesProgress(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	out := env.mustRun("2\n", "sort")
	assert.Contains(t, out, "Progress saved after 1 decisions.")

	out = env.mustRun("", "sort")
	assert.Contains(t, out, "Resuming sort of 4 items (1 decisions so far).")
	assert.Contains(t, out, "  1) c.png\n  2) d.png\n")
}

func TestSort_Undo(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	out := env.mustRun("u\n2\nu\n1\n1\n1\n1\n", "sort")

	assert.Contains(t, out, "NOTHING_TO_UNDO: no decisions to undo")
	assert.Contains(t, out, "Sorted 4 items in 4 decisions:\n1. a.png\n2. b.png\n3. c.png\n4. d.png\n")
}

func TestSort_RejectsUnknownInput(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	out := env.mustRun("maybe\n\nq\n", "sort")

	assert.Contains(t, out, `unrecognized input "maybe"`)
	assert.Contains(t, out, "Progress saved after 0 decisions.")
}

func TestSort_AcceptsItemName(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	env.mustRun("b.png\nq\n", "sort")

	out := env.mustRun("", "--format", "json", "status")
	view := decodeData[statusView](t, decodeLines(t, out)[0])
	require.NotNil(t, view.Progress)
	assert.Equal(t, 1, view.Progress.Decisions)
	assert.Equal(t, &engine.Pair{Left: "c.png", Right: "d.png"}, view.Next)
}

func TestSort_JSON(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	out := env.mustRun("2\n2\n2\n2\n", "--format", "json", "sort")
	lines := decodeLines(t, out)
	require.Len(t, lines, 5)

	wantPairs := []engine.Pair{
		{Left: "a.png", Right: "b.png"},
		{Left: "c.png", Right: "d.png"},
		{Left: "b.png", Right: "d.png"},
		{Left: "b.png", Right: "c.png"},
	}
	sessionID := lines[0].SessionID
	require.NotEmpty(t, sessionID)
	for i, want := range wantPairs {
		assert.Equal(t, "ok", lines[i].Status)
		assert.Equal(t, sessionID, lines[i].SessionID)
		view := decodeData[comparisonView](t, lines[i])
		assert.Equal(t, "comparison", view.Event)
		assert.Equal(t, want, view.Pair, "comparison %d", i)
		assert.Equal(t, i, view.Progress.Decisions)
	}

	final := decodeData[sortView](t, lines[4])
	assert.Equal(t, "finished", final.Event)
	assert.Equal(t, ir.MustItemSetKey(fourImages), final.Key)
	assert.False(t, final.Resumed)
	assert.Equal(t, []string{"d.png", "c.png", "b.png", "a.png"}, final.Order)
	assert.Equal(t, 4, final.Progress.Decisions)
}

func TestSort_JSONReportsRejectedInput(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	out := env.mustRun("u\nq\n", "--format", "json", "sort")
	lines := decodeLines(t, out)
	require.Len(t, lines, 4, "comparison, rejection, the same comparison again, summary")

	assert.Equal(t, "error", lines[1].Status)
	require.NotNil(t, lines[1].Error)
	assert.Equal(t, "NOTHING_TO_UNDO", lines[1].Error.Code)
	assert.Equal(t,
		decodeData[comparisonView](t, lines[0]).Pair,
		decodeData[comparisonView](t, lines[2]).Pair)

	final := decodeData[sortView](t, lines[3])
	assert.Equal(t, "paused", final.Event)
	assert.Empty(t, final.Order)
}

func TestSort_TrivialItemSets(t *testing.T) {
	env := newTestEnv(t, "only.png")

	out := env.mustRun("", "sort")
	assert.Contains(t, out, "Sorted 1 items in 0 decisions:\n1. only.png\n")

	require.NoError(t, env.fs.MkdirAll("/work/empty", 0o755))
	out = env.mustRun("", "sort", "empty")
	assert.Contains(t, out, "Sorted 0 items in 0 decisions:")
}

func TestSort_MissingPath(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	_, err := env.run("", "sort", "missing.png")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSort_DiscardsCorruptProgress(t *testing.T) {
	env := newTestEnv(t, fourImages...)
	env.mustRun("1\nq\n", "sort")

	path := filepath.Join("/work/.state", ir.MustItemSetKey(fourImages)+".json")
	require.NoError(t, afero.WriteFile(env.fs, path, []byte("{not json"), 0o644))

	out := env.mustRun("", "--format", "json", "status")
	view := decodeData[statusView](t, decodeLines(t, out)[0])
	assert.Equal(t, "corrupt", view.State)
	assert.Contains(t, view.Error, "CORRUPT_SNAPSHOT")

	out = env.mustRun("q\n", "sort")
	assert.Contains(t, out, "Saved progress for these items was unusable and has been discarded.")
	assert.Contains(t, out, "Starting a new sort of 4 items.")
}

func TestSort_ConfigExtensions(t *testing.T) {
	env := newTestEnv(t, "a.txt", "b.txt", "c.png")
	require.NoError(t, afero.WriteFile(env.fs, "/work/.pairsort.yaml",
		[]byte("extensions: [.txt]\n"), 0o644))

	out := env.mustRun("2\n", "sort")
	assert.Contains(t, out, "Starting a new sort of 2 items.")
	assert.Contains(t, out, "1. b.txt\n2. a.txt\n")

	// --all-files overrides the configured extensions.
	out = env.mustRun("q\n", "sort", "--all-files")
	assert.Contains(t, out, "Starting a new sort of 3 items.")
}

func TestSort_ExtAndAllFilesConflict(t *testing.T) {
	env := newTestEnv(t, "a.txt", "b.png")

	_, err := env.run("", "sort", "--ext", ".txt", "--all-files")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "all-files")

	out := env.mustRun("", "status", "--all")
	assert.Contains(t, out, "No saved sorts.", "a rejected command opens no session")
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	out := env.mustRun("", "status")
	assert.Contains(t, out, "No saved progress for these 4 items.")

	env.mustRun("1\n1\nq\n", "sort")
	out = env.mustRun("", "status")
	assert.Contains(t, out, "Sort of 4 items in progress")
	assert.Contains(t, out, "  Decisions: 2\n")
	assert.Contains(t, out, "  Pass:      2 of 2\n")
	assert.Contains(t, out, "  Next:      a.png vs c.png\n")

	env.mustRun("1\n1\n", "sort")
	out = env.mustRun("", "status")
	assert.Contains(t, out, "Sort of 4 items is finished after 4 decisions")
}

func TestStatus_DoesNotCreateSession(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	env.mustRun("", "status")

	out := env.mustRun("", "--format", "json", "status", "--all")
	lines := decodeLines(t, out)
	require.Len(t, lines, 1)
	assert.JSONEq(t, "[]", string(lines[0].Data))
}

func TestStatus_All(t *testing.T) {
	env := newTestEnv(t, fourImages...)
	env.mustRun("q\n", "sort")
	env.mustRun("1\n", "sort", "a.png", "b.png")

	out := env.mustRun("", "--format", "json", "status", "--all")
	summaries := decodeData[[]store.Summary](t, decodeLines(t, out)[0])
	require.Len(t, summaries, 2)

	byItems := map[int]store.Summary{}
	for _, s := range summaries {
		byItems[s.Items] = s
	}
	assert.False(t, byItems[4].Done)
	assert.Equal(t, 0, byItems[4].Decisions)
	assert.True(t, byItems[2].Done)
	assert.Equal(t, 1, byItems[2].Decisions)

	out = env.mustRun("", "status", "--all")
	assert.Contains(t, out, "in progress")
	assert.Contains(t, out, "done")
}

func TestStatus_Session(t *testing.T) {
	env := newTestEnv(t, fourImages...)
	out := env.mustRun("1\nq\n", "--format", "json", "sort")
	sessionID := decodeLines(t, out)[0].SessionID
	require.NotEmpty(t, sessionID)
	env.mustRun("q\n", "sort", "a.png", "b.png")

	out = env.mustRun("", "--format", "json", "status", "--session", sessionID)
	lines := decodeLines(t, out)
	require.Len(t, lines, 1)
	assert.Equal(t, sessionID, lines[0].SessionID)
	summaries := decodeData[[]store.Summary](t, lines[0])
	require.Len(t, summaries, 1)
	assert.Equal(t, ir.MustItemSetKey(fourImages), summaries[0].Key)
	assert.Equal(t, 1, summaries[0].Decisions)

	out = env.mustRun("", "status", "--session", "no-such-session")
	assert.Contains(t, out, "No saved sorts.")

	_, err := env.run("", "status", "--all", "--session", sessionID)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOrder(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	_, err := env.run("", "order")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "no saved sort")

	env.mustRun("1\nq\n", "sort")
	_, err = env.run("", "order")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, engine.IsNotDone(err))

	env.mustRun("2\n2\n2\n", "sort")
	out := env.mustRun("", "order")
	assert.Equal(t, "1. d.png\n2. c.png\n3. a.png\n4. b.png\n", out)

	out = env.mustRun("", "--format", "json", "order")
	view := decodeData[orderView](t, decodeLines(t, out)[0])
	want := []string{"d.png", "c.png", "a.png", "b.png"}
	assert.Equal(t, want, view.Order)
	digest, err := ir.Digest(want)
	require.NoError(t, err)
	assert.Equal(t, digest, view.Digest)
}

func TestOrder_Rename(t *testing.T) {
	env := newTestEnv(t, fourImages...)
	env.mustRun("1\n1\n1\n1\n", "sort")

	out := env.mustRun("", "order", "--rename", "--dry-run")
	assert.Contains(t, out, "a.png -> 1_a.png\n")
	assert.Contains(t, out, "d.png -> 4_d.png\n")
	assert.Contains(t, out, "Would rename 4 files.")
	for _, f := range fourImages {
		exists, err := afero.Exists(env.fs, "/work/"+f)
		require.NoError(t, err)
		assert.True(t, exists, "dry run must not rename %s", f)
	}

	out = env.mustRun("", "order", "--rename")
	assert.Contains(t, out, "Renamed 4 files.")
	for i, f := range fourImages {
		exists, err := afero.Exists(env.fs, "/work/"+f)
		require.NoError(t, err)
		assert.False(t, exists)
		exists, err = afero.Exists(env.fs, "/work/"+string(rune('1'+i))+"_"+f)
		require.NoError(t, err)
		assert.True(t, exists)
	}

	out = env.mustRun("", "status", "--all")
	assert.Contains(t, out, "No saved sorts.")
}

func TestOrder_RenameRefusesToOverwrite(t *testing.T) {
	env := newTestEnv(t, fourImages...)
	env.mustRun("1\n", "sort", "a.png", "b.png")
	require.NoError(t, afero.WriteFile(env.fs, "/work/1_a.png", []byte("x"), 0o644))

	_, err := env.run("", "order", "--rename", "a.png", "b.png")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "already exists")

	exists, err := afero.Exists(env.fs, "/work/b.png")
	require.NoError(t, err)
	assert.True(t, exists)

	out := env.mustRun("", "order", "a.png", "b.png")
	assert.Equal(t, "1. a.png\n2. b.png\n", out, "saved order survives a refused rename")
}

func TestOrder_RenameDecomposedNames(t *testing.T) {
	nfd := "cafe\u0301.png"
	env := newTestEnv(t, nfd, "b.png")

	out := env.mustRun("2\n", "sort")
	assert.Contains(t, out, "1. "+nfd+"\n2. b.png\n")

	out = env.mustRun("", "order", "--rename")
	assert.Contains(t, out, "Renamed 2 files.")
	for _, name := range []string{"1_" + nfd, "2_b.png"} {
		exists, err := afero.Exists(env.fs, "/work/"+name)
		require.NoError(t, err)
		assert.True(t, exists, "%q", name)
	}
}

func TestSort_NamesDifferingOnlyInNormalization(t *testing.T) {
	nfd, nfc := "cafe\u0301.png", "caf\u00e9.png"
	env := newTestEnv(t, nfd, nfc)

	out := env.mustRun("1\n", "sort")
	assert.Contains(t, out, "Starting a new sort of 2 items.")
	assert.Contains(t, out, "1. "+nfd+"\n2. "+nfc+"\n")
}

func TestReset(t *testing.T) {
	env := newTestEnv(t, fourImages...)

	out := env.mustRun("", "reset")
	assert.Contains(t, out, "Nothing to reset.")

	env.mustRun("1\nq\n", "sort")
	out = env.mustRun("", "reset")
	assert.Contains(t, out, "Discarded 1 saved sort.")

	out = env.mustRun("", "status")
	assert.Contains(t, out, "No saved progress")

	env.mustRun("q\n", "sort")
	env.mustRun("q\n", "sort", "a.png", "b.png", "c.png")
	out = env.mustRun("", "--format", "json", "reset", "--all")
	view := decodeData[resetView](t, decodeLines(t, out)[0])
	assert.Len(t, view.Removed, 2)

	out = env.mustRun("", "status", "--all")
	assert.Contains(t, out, "No saved sorts.")
}

func TestSQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	for _, f := range fourImages {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(f), 0o644))
	}

	run := func(stdin string, args ...string) string {
		t.Helper()
		cmd := newRootCommand(&RootOptions{FS: afero.NewOsFs(), WorkDir: dir})
		var stdout, stderr strings.Builder
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute(), "stderr:\n%s", stderr.String())
		return stdout.String()
	}

	out := run("1\n1\nq\n", "sort")
	assert.Contains(t, out, "Progress saved after 2 decisions.")
	_, err := os.Stat(filepath.Join(dir, DefaultDatabase))
	require.NoError(t, err, "database is created in the working directory")

	out = run("1\n1\n", "sort")
	assert.Contains(t, out, "Resuming sort of 4 items (2 decisions so far).")
	assert.Contains(t, out, "1. a.png\n2. b.png\n3. c.png\n4. d.png\n")

	out = run("", "--db", "other.db", "status")
	assert.Contains(t, out, "No saved progress")

	out = run("", "order")
	assert.Equal(t, "1. a.png\n2. b.png\n3. c.png\n4. d.png\n", out)
}
