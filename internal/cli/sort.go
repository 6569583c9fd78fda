package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/pairsort/internal/engine"
	"github.com/roach88/pairsort/internal/session"
)

// SortOptions holds flags for the sort command.
type SortOptions struct {
	*RootOptions
	Items ItemFlags
}

// comparisonView is one offered comparison in JSON output.
type comparisonView struct {
	Event    string          `json:"event"`
	Pair     engine.Pair     `json:"pair"`
	Progress engine.Progress `json:"progress"`
}

// sortView is the closing summary of a sort command.
type sortView struct {
	Event     string          `json:"event"` // "finished" or "paused"
	Key       string          `json:"key"`
	Resumed   bool            `json:"resumed"`
	Recovered bool            `json:"recovered"`
	Progress  engine.Progress `json:"progress"`
	Order     []string        `json:"order,omitempty"`
}

// NewSortCommand creates the sort command.
func NewSortCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SortOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sort [paths...]",
		Short: "Sort files by answering pairwise comparisons",
		Long: `Start or resume an interactive sort of the given files and directories.
With no paths, the working directory is used.

Each step shows two items. Answer with:
  1, l or left     prefer the first item
  2, r or right    prefer the second item
  u or undo        revert the previous answer
  q or quit        stop; progress is already saved

Answers are read one per line from standard input, so a sort can also be
driven by a script. End of input behaves like quit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, opts, args)
		},
	}

	addItemFlags(cmd, &opts.Items)

	return cmd
}

func runSort(cmd *cobra.Command, opts *SortOptions, args []string) error {
	list, err := collectItems(cmd, opts.RootOptions, &opts.Items, args)
	if err != nil {
		return err
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := commandContext(cmd)
	sess, err := session.Open(ctx, st, list)
	if err != nil {
		if engine.IsDuplicateItem(err) {
			return WrapExitError(ExitCommandError, "item list contains duplicates", err)
		}
		return WrapExitError(ExitFailure, "failed to open session", err)
	}

	out := newFormatter(cmd, opts.RootOptions)
	out.VerboseLog("session %s, key %s, %d items", sess.ID(), shortKey(sess.Key()), len(list))
	if !out.JSON() {
		printSessionBanner(out.Writer, sess)
	}

	p := &prompter{
		in:          bufio.NewScanner(cmd.InOrStdin()),
		out:         out,
		interactive: isTerminal(cmd.InOrStdin()),
	}
	finished, err := p.loop(cmd, sess)
	if err != nil {
		return err
	}

	view := sortView{
		Event:     "paused",
		Key:       sess.Key(),
		Resumed:   sess.Resumed(),
		Recovered: sess.Recovered(),
		Progress:  sess.Progress(),
	}
	if finished {
		order, err := sess.Result()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read result", err)
		}
		view.Event = "finished"
		view.Order = order
	}

	if out.JSON() {
		return out.SessionSuccess(sess.ID(), view)
	}
	printSortSummary(out.Writer, view)
	return nil
}

// prompter reads answers and feeds them to a session.
type prompter struct {
	in          *bufio.Scanner
	out         *OutputFormatter
	interactive bool
}

// loop runs until the sort finishes (true) or the user quits (false).
func (p *prompter) loop(cmd *cobra.Command, sess *session.Session) (bool, error) {
	ctx := commandContext(cmd)
	for {
		pair, ok := sess.Next()
		if !ok {
			return true, nil
		}
		if err := p.show(sess, pair); err != nil {
			return false, err
		}

		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return false, WrapExitError(ExitFailure, "failed to read input", err)
			}
			return false, nil
		}

		answer := strings.TrimSpace(p.in.Text())
		var err error
		switch strings.ToLower(answer) {
		case "":
			continue
		case "1", "l", "left":
			err = sess.Decide(ctx, pair.Left)
		case "2", "r", "right":
			err = sess.Decide(ctx, pair.Right)
		case "u", "undo":
			err = sess.Undo(ctx)
		case "q", "quit":
			return false, nil
		default:
			// The item itself is accepted too.
			if answer == pair.Left || answer == pair.Right {
				err = sess.Decide(ctx, answer)
				break
			}
			if err := p.reject("UNRECOGNIZED_INPUT", fmt.Sprintf("unrecognized input %q", answer)); err != nil {
				return false, err
			}
			continue
		}

		switch {
		case err == nil:
		case engine.IsNothingToUndo(err), engine.IsInvalidDecision(err):
			if err := p.reject(ErrorCode(err), err.Error()); err != nil {
				return false, err
			}
		default:
			return false, WrapExitError(ExitFailure, "failed to save progress", err)
		}
	}
}

func (p *prompter) show(sess *session.Session, pair engine.Pair) error {
	progress := sess.Progress()
	if p.out.JSON() {
		return p.out.SessionSuccess(sess.ID(), comparisonView{
			Event:    "comparison",
			Pair:     pair,
			Progress: progress,
		})
	}

	w := p.out.Writer
	fmt.Fprintf(w, "\nComparison %d (pass %d of %d, at most %d left)\n",
		progress.Decisions+1, progress.Pass+1, progress.Passes, progress.Remaining)
	fmt.Fprintf(w, "  1) %s\n", pair.Left)
	fmt.Fprintf(w, "  2) %s\n", pair.Right)
	if p.interactive {
		hint := "1/2"
		if sess.CanUndo() {
			hint += ", u to undo"
		}
		fmt.Fprintf(w, "Prefer [%s, q to quit]: ", hint)
	}
	return nil
}

func (p *prompter) reject(code, message string) error {
	if p.out.JSON() {
		return p.out.Error(code, message, nil)
	}
	fmt.Fprintln(p.out.Writer, message)
	return nil
}

func printSessionBanner(w io.Writer, sess *session.Session) {
	progress := sess.Progress()
	if sess.Recovered() {
		fmt.Fprintln(w, "Saved progress for these items was unusable and has been discarded.")
	}
	if sess.Resumed() {
		fmt.Fprintf(w, "Resuming sort of %d items (%d decisions so far).\n", progress.Items, progress.Decisions)
		return
	}
	fmt.Fprintf(w, "Starting a new sort of %d items.\n", progress.Items)
}

func printSortSummary(w io.Writer, view sortView) {
	if view.Event == "finished" {
		fmt.Fprintf(w, "\nSorted %d items in %d decisions:\n", view.Progress.Items, view.Progress.Decisions)
		printOrder(w, view.Order)
		return
	}
	fmt.Fprintf(w, "\nProgress saved after %d decisions. Run the same command again to resume.\n",
		view.Progress.Decisions)
}

func printOrder(w io.Writer, order []string) {
	width := len(fmt.Sprint(len(order)))
	for i, item := range order {
		fmt.Fprintf(w, "%*d. %s\n", width, i+1, item)
	}
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
