package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pairsort/internal/engine"
	"github.com/roach88/pairsort/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Items   ItemFlags
	All     bool
	Session string
}

// statusView describes saved progress for one item set.
type statusView struct {
	Key       string           `json:"key"`
	State     string           `json:"state"` // "none", "in_progress", "done" or "corrupt"
	SessionID string           `json:"session_id,omitempty"`
	Revision  int64            `json:"revision,omitempty"`
	Progress  *engine.Progress `json:"progress,omitempty"`
	Next      *engine.Pair     `json:"next,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status [paths...]",
		Short: "Show saved progress without starting a sort",
		Long: `Show how far the sort of the given files has progressed.

With --all, list every saved sort in the store instead. With --session,
list the saved sorts written by that session id.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts, args)
		},
	}

	addItemFlags(cmd, &opts.Items)
	cmd.Flags().BoolVar(&opts.All, "all", false, "list every saved sort")
	cmd.Flags().StringVar(&opts.Session, "session", "", "list the saved sorts of one session id")
	cmd.MarkFlagsMutuallyExclusive("all", "session")

	return cmd
}

func runStatus(cmd *cobra.Command, opts *StatusOptions, args []string) error {
	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := commandContext(cmd)
	out := newFormatter(cmd, opts.RootOptions)

	if opts.All || opts.Session != "" {
		var summaries []store.Summary
		if opts.Session != "" {
			summaries, err = st.FindSession(ctx, opts.Session)
		} else {
			summaries, err = st.List(ctx)
		}
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list saved sorts", err)
		}
		if out.JSON() {
			return out.SessionSuccess(opts.Session, summaries)
		}
		printSummaries(out.Writer, summaries)
		return nil
	}

	list, err := collectItems(cmd, opts.RootOptions, &opts.Items, args)
	if err != nil {
		return err
	}
	saved, err := inspect(ctx, st, list)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load saved progress", err)
	}

	view := newStatusView(saved)
	if out.JSON() {
		return out.SessionSuccess(view.SessionID, view)
	}
	printStatus(out.Writer, len(saved.Items), view)
	return nil
}

func newStatusView(saved *savedSort) statusView {
	view := statusView{Key: saved.Key, State: "none"}
	switch {
	case !saved.Found:
	case saved.Corrupt != nil:
		view.State = "corrupt"
		view.Error = saved.Corrupt.Error()
	default:
		progress := saved.Engine.Progress()
		view.SessionID = saved.Entry.SessionID
		view.Revision = saved.Entry.Revision
		view.Progress = &progress
		view.State = "in_progress"
		if progress.Done {
			view.State = "done"
		}
		if pair, ok := saved.Engine.NextComparison(); ok {
			view.Next = &pair
		}
	}
	return view
}

func printStatus(w io.Writer, items int, view statusView) {
	switch view.State {
	case "none":
		fmt.Fprintf(w, "No saved progress for these %d items.\n", items)
	case "corrupt":
		fmt.Fprintf(w, "Saved progress for these %d items is unusable and will be discarded by the next sort.\n", items)
		fmt.Fprintf(w, "  %s\n", view.Error)
	case "done":
		fmt.Fprintf(w, "Sort of %d items is finished after %d decisions (session %s).\n",
			items, view.Progress.Decisions, view.SessionID)
		fmt.Fprintln(w, "Run 'pairsort order' to see the result.")
	default:
		p := view.Progress
		fmt.Fprintf(w, "Sort of %d items in progress (session %s).\n", items, view.SessionID)
		fmt.Fprintf(w, "  Decisions: %d\n", p.Decisions)
		fmt.Fprintf(w, "  Pass:      %d of %d\n", p.Pass+1, p.Passes)
		fmt.Fprintf(w, "  Remaining: at most %d\n", p.Remaining)
		if view.Next != nil {
			fmt.Fprintf(w, "  Next:      %s vs %s\n", view.Next.Left, view.Next.Right)
		}
	}
}

func printSummaries(w io.Writer, summaries []store.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No saved sorts.")
		return
	}
	for _, s := range summaries {
		state := "in progress"
		if s.Done {
			state = "done"
		}
		fmt.Fprintf(w, "%s  %-11s  %d items, %d decisions  (session %s, revision %d)\n",
			shortKey(s.Key), state, s.Items, s.Decisions, s.SessionID, s.Revision)
	}
}

// shortKey trims a store key for display.
func shortKey(key string) string {
	const n = 12
	if len(key) <= n {
		return key
	}
	return key[:n]
}
