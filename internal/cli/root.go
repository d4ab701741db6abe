package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ipcrm/napkin/internal/config"
	"github.com/ipcrm/napkin/internal/session"
	"github.com/ipcrm/napkin/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string // overrides config database when set
	Session    string // overrides config session when set

	// Config is loaded in PersistentPreRunE.
	Config *config.Config

	// Logger writes to the command's stderr.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the napkin-history CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "napkin-history",
		Short: "Version history for napkin canvases",
		Long: `Browse, restore and record the snapshot history of napkin whiteboard sessions.

Each session keeps a bounded sequence of snapshots: full baselines every few
checkpoints and per-tab deltas in between. Any retained snapshot can be
reconstructed exactly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVarP(&opts.Session, "session", "s", "", "session name (overrides config)")

	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewDiffCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the CLI with os.Args and returns the process exit code.
// Failures not already printed by a command are written to stderr, or to
// stdout as a JSON error envelope when --format json is set.
func Execute() int {
	cmd := NewRootCommand()
	return report(cmd, cmd.Execute())
}

func report(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}
	if !isReported(err) {
		format, _ := cmd.PersistentFlags().GetString("format")
		if format == "json" {
			f := &OutputFormatter{Format: format, Writer: cmd.OutOrStdout()}
			_ = f.Error(ErrorCode(err), err.Error(), nil)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
	return GetExitCode(err)
}

// load reads the config file, applies flag overrides and builds the logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Session != "" {
		cfg.Session = o.Session
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	o.Config = cfg
	return nil
}

// openStore opens the configured database.
func (o *RootOptions) openStore() (*store.Store, error) {
	st, err := store.Open(o.Config.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// openSession opens the configured database and session. Callers close the
// returned store.
func (o *RootOptions) openSession(ctx context.Context) (*store.Store, *session.Session, error) {
	st, err := o.openStore()
	if err != nil {
		return nil, nil, err
	}
	s, err := session.Open(ctx, st, o.Config.Session, o.Config, session.WithLogger(o.Logger))
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to open session", err)
	}
	return st, s, nil
}

// formatter returns an output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
