package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/pairsort/internal/ir"
	"github.com/roach88/pairsort/internal/items"
)

// OrderOptions holds flags for the order command.
type OrderOptions struct {
	*RootOptions
	Items  ItemFlags
	Rename bool
	DryRun bool
}

// orderView is the finished order and, with --rename, the moves.
type orderView struct {
	Key       string       `json:"key"`
	SessionID string       `json:"session_id"`
	Digest    string       `json:"digest"`
	Order     []string     `json:"order"`
	Renames   []items.Move `json:"renames,omitempty"`
	Renamed   int          `json:"renamed"`
	DryRun    bool         `json:"dry_run,omitempty"`
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "order [paths...]",
		Short: "Print the finished order, optionally renaming files by rank",
		Long: `Print the final order of a finished sort, best first.

With --rename, each file is renamed with a zero-padded rank prefix
(001_name.png, 002_name.png, ...) and the saved progress is removed, since
the renamed files form a different item set. Nothing is renamed if any
target already exists. Use --dry-run to see the renames first.

Exit codes:
  0 - Success
  1 - Sort missing or not finished, or a rename failed
  2 - Command error (invalid paths, store unavailable)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(cmd, opts, args)
		},
	}

	addItemFlags(cmd, &opts.Items)
	cmd.Flags().BoolVar(&opts.Rename, "rename", false, "rename files with a rank prefix")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "with --rename, show the renames without performing them")

	return cmd
}

func runOrder(cmd *cobra.Command, opts *OrderOptions, args []string) error {
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
	saved, err := inspect(ctx, st, list)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load saved progress", err)
	}
	switch {
	case !saved.Found:
		return NewExitError(ExitFailure, fmt.Sprintf("no saved sort for these %d items", len(list)))
	case saved.Corrupt != nil:
		return WrapExitError(ExitFailure, "saved progress is unusable", saved.Corrupt)
	}

	order, err := saved.Engine.Result()
	if err != nil {
		return WrapExitError(ExitFailure, "sort is not finished", err)
	}
	digest, err := ir.Digest(order)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fingerprint order", err)
	}

	view := orderView{
		Key:       saved.Key,
		SessionID: saved.Entry.SessionID,
		Digest:    digest,
		Order:     order,
		DryRun:    opts.DryRun,
	}

	if opts.Rename {
		collector := items.NewCollector(opts.FS, opts.WorkDir)
		moves, err := collector.PlanRenames(order)
		if err != nil {
			return WrapExitError(ExitFailure, "refusing to rename", err)
		}
		view.Renames = moves

		if !opts.DryRun {
			n, err := collector.ApplyRenames(moves)
			view.Renamed = n
			if err != nil {
				slog.Error("rename stopped part way", "renamed", n, "total", len(moves))
				return WrapExitError(ExitFailure, fmt.Sprintf("renamed %d of %d files", n, len(moves)), err)
			}
			if err := st.Delete(ctx, saved.Key); err != nil {
				return WrapExitError(ExitFailure, "files renamed but saved progress could not be removed", err)
			}
			slog.Info("files renamed", "count", n, "session", saved.Entry.SessionID)
		}
	}

	out := newFormatter(cmd, opts.RootOptions)
	if out.JSON() {
		return out.SessionSuccess(view.SessionID, view)
	}
	printOrderView(out.Writer, view)
	return nil
}

func printOrderView(w io.Writer, view orderView) {
	if len(view.Renames) == 0 {
		printOrder(w, view.Order)
		return
	}
	verb := "Renamed"
	if view.DryRun {
		verb = "Would rename"
	}
	for _, m := range view.Renames {
		fmt.Fprintf(w, "%s -> %s\n", m.From, m.To)
	}
	count := view.Renamed
	if view.DryRun {
		count = len(view.Renames)
	}
	fmt.Fprintf(w, "%s %d files.\n", verb, count)
}
