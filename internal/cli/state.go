package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/pairsort/internal/engine"
	"github.com/roach88/pairsort/internal/ir"
	"github.com/roach88/pairsort/internal/items"
	"github.com/roach88/pairsort/internal/session"
	"github.com/roach88/pairsort/internal/store"
)

// snapshotStore is what commands need from either store backend.
type snapshotStore interface {
	session.SnapshotStore
	List(ctx context.Context) ([]store.Summary, error)
	FindSession(ctx context.Context, sessionID string) ([]store.Summary, error)
	Close() error
}

// ItemFlags select the files to sort. Shared by every command that
// addresses one item set.
type ItemFlags struct {
	BatchFile      string
	IncludeSubdirs bool
	Extensions     []string
	AllFiles       bool
}

func addItemFlags(cmd *cobra.Command, f *ItemFlags) {
	cmd.Flags().StringVarP(&f.BatchFile, "batch-file", "b", "", "text file listing paths to sort, one per line")
	cmd.Flags().BoolVarP(&f.IncludeSubdirs, "include-subdirs", "i", false, "include files in subdirectories")
	cmd.Flags().StringSliceVar(&f.Extensions, "ext", nil, "file extensions to collect from directories (default: common image types)")
	cmd.Flags().BoolVar(&f.AllFiles, "all-files", false, "collect every file from directories, ignoring extensions")
	cmd.MarkFlagsMutuallyExclusive("ext", "all-files")
}

// collectItems expands args and item flags into the item list.
// Unset flags fall back to the loaded config.
func collectItems(cmd *cobra.Command, opts *RootOptions, f *ItemFlags, args []string) ([]string, error) {
	o := items.Options{
		Paths:          args,
		BatchFile:      f.BatchFile,
		IncludeSubdirs: f.IncludeSubdirs,
		Extensions:     f.Extensions,
	}
	if !cmd.Flags().Changed("include-subdirs") {
		o.IncludeSubdirs = opts.config.IncludeSubdirs
	}
	switch {
	case f.AllFiles:
		o.Extensions = []string{}
	case !cmd.Flags().Changed("ext"):
		o.Extensions = opts.config.Extensions
	}

	list, err := items.NewCollector(opts.FS, opts.WorkDir).Collect(o)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to collect items", err)
	}
	slog.Debug("items collected", "count", len(list))
	return list, nil
}

// openStore opens the configured backend: the file store when a state
// directory is set, SQLite otherwise.
func openStore(opts *RootOptions) (snapshotStore, error) {
	if opts.StateDir != "" {
		dir := opts.resolve(opts.StateDir)
		slog.Debug("opening file store", "dir", dir)
		st, err := store.NewFileStore(opts.FS, dir)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open state directory", err)
		}
		return st, nil
	}

	path := opts.resolve(opts.Database)
	slog.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st snapshotStore) {
	if err := st.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// savedSort is a read-only view of the stored progress for one item set.
type savedSort struct {
	Key   string
	Items []string
	Found bool

	// Entry and Engine are set when Found and the snapshot restored.
	Entry  store.Entry
	Engine *engine.Engine

	// Corrupt holds the CORRUPT_SNAPSHOT error when the stored state is unusable.
	Corrupt error
}

// inspect looks up saved progress for list without creating a session.
func inspect(ctx context.Context, st snapshotStore, list []string) (*savedSort, error) {
	key, err := ir.ItemSetKey(list)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	saved := &savedSort{Key: key, Items: list}

	entry, ok, err := st.Load(ctx, key)
	if err != nil {
		if engine.IsCorruptSnapshot(err) {
			saved.Found = true
			saved.Corrupt = err
			return saved, nil
		}
		return nil, err
	}
	if !ok {
		return saved, nil
	}
	saved.Found = true
	saved.Entry = entry

	eng, err := session.RestoreEngine(list, entry.Snapshot)
	if err != nil {
		if !engine.IsCorruptSnapshot(err) {
			return nil, err
		}
		saved.Corrupt = err
		return saved, nil
	}
	saved.Engine = eng
	return saved, nil
}
