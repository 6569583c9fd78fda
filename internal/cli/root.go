package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Database   string
	StateDir   string

	// FS and WorkDir default to the OS filesystem and the process working
	// directory. Tests replace them.
	FS      afero.Fs
	WorkDir string

	config Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the pairsort CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairsort",
		Short: "pairsort - sort files by pairwise preference",
		Long: `Sort a set of files (images by default) into a total order by answering
"which of these two do you prefer?" as few times as merge sort allows.

Progress is saved after every answer, keyed by the exact set of files, so an
interrupted sort resumes where it stopped. Finished orders can be applied by
renaming files with a rank prefix.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: .pairsort.yaml in the working directory)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", DefaultDatabase, "path to the SQLite progress database")
	cmd.PersistentFlags().StringVar(&opts.StateDir, "state-dir", "", "store progress as JSON files in this directory instead of SQLite")

	// Add subcommands
	cmd.AddCommand(NewSortCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))

	return cmd
}

// prepare validates global flags, configures logging and merges config.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	// cobra checks flag groups only after this hook, and as a plain error.
	if err := cmd.ValidateFlagGroups(); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	configureLogging(o.Verbose, cmd.ErrOrStderr())

	if o.FS == nil {
		o.FS = afero.NewOsFs()
	}
	if o.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to determine working directory", err)
		}
		o.WorkDir = wd
	}

	cfg, err := LoadConfig(o.FS, o.WorkDir, o.resolve(o.ConfigFile))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.config = cfg

	flags := cmd.Flags()
	if !flags.Changed("db") {
		o.Database = cfg.Database
	}
	if !flags.Changed("state-dir") {
		o.StateDir = cfg.StateDir
	}
	slog.Debug("configuration loaded",
		"work_dir", o.WorkDir,
		"db", o.Database,
		"state_dir", o.StateDir,
	)
	return nil
}

// resolve makes a relative path absolute against WorkDir. Empty stays empty.
func (o *RootOptions) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.WorkDir, p)
}

// configureLogging installs a slog text handler on w.
// Info by default, Debug with --verbose.
func configureLogging(verbose bool, w io.Writer) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
