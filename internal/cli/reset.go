package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Items ItemFlags
	All   bool
}

type resetView struct {
	Removed []string `json:"removed"`
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset [paths...]",
		Short: "Discard saved progress",
		Long: `Discard the saved progress for the given files so the next sort starts
over. With --all, discard every saved sort in the store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, opts, args)
		},
	}

	addItemFlags(cmd, &opts.Items)
	cmd.Flags().BoolVar(&opts.All, "all", false, "discard every saved sort")

	return cmd
}

func runReset(cmd *cobra.Command, opts *ResetOptions, args []string) error {
	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := commandContext(cmd)
	var keys []string
	if opts.All {
		summaries, err := st.List(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list saved sorts", err)
		}
		for _, s := range summaries {
			keys = append(keys, s.Key)
		}
	} else {
		list, err := collectItems(cmd, opts.RootOptions, &opts.Items, args)
		if err != nil {
			return err
		}
		saved, err := inspect(ctx, st, list)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to load saved progress", err)
		}
		if saved.Found {
			keys = append(keys, saved.Key)
		}
	}

	removed := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := st.Delete(ctx, key); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to discard %s", shortKey(key)), err)
		}
		removed = append(removed, key)
	}

	out := newFormatter(cmd, opts.RootOptions)
	if out.JSON() {
		return out.Success(resetView{Removed: removed})
	}
	switch len(removed) {
	case 0:
		fmt.Fprintln(out.Writer, "Nothing to reset.")
	case 1:
		fmt.Fprintln(out.Writer, "Discarded 1 saved sort.")
	default:
		fmt.Fprintf(out.Writer, "Discarded %d saved sorts.\n", len(removed))
	}
	return nil
}
