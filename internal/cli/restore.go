package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/history"
)

// RestoreOptions holds flags for the restore command.
type RestoreOptions struct {
	*RootOptions
	Output string // file to write; stdout if empty
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RestoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restore <index>",
		Short: "Reconstruct the collection at a snapshot",
		Long: `Reconstruct the full collection captured by a snapshot.

The history itself is not changed. Load the output into the editor; the
next checkpoint records it as a new snapshot. Negative indices count from
the newest snapshot (-1 is the newest).

Examples:
  napkin-history restore 3
  napkin-history restore -- -2
  napkin-history restore 0 -o board.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the collection to a file")

	return cmd
}

func runRestore(ctx context.Context, opts *RestoreOptions, arg string, cmd *cobra.Command) error {
	st, s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	index, err := parseIndex(arg, s.History().Len())
	if err != nil {
		return err
	}

	c, err := s.Restore(index)
	if err != nil {
		return indexError(err)
	}

	if opts.Output != "" {
		if err := writeCollection(opts.Output, c); err != nil {
			return WrapExitError(ExitCommandError, "failed to write collection", err)
		}
		if opts.Format == "json" {
			return opts.formatter(cmd).JSON(map[string]any{"index": index, "output": opts.Output})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Restored snapshot %d to %s\n", index, opts.Output)
		return nil
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).JSON(map[string]any{"index": index, "collection": c})
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// parseIndex parses a snapshot index. Negative values count from the end.
func parseIndex(arg string, count int) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid snapshot index %q", arg))
	}
	if i < 0 {
		i += count
	}
	return i, nil
}

// indexError maps history errors to exit codes: out-of-range indices are a
// usage problem, anything else means the history is damaged.
func indexError(err error) error {
	if history.IsRangeError(err) {
		return WrapExitError(ExitCommandError, "invalid snapshot index", err)
	}
	return WrapExitError(ExitFailure, "reconstruction failed", err)
}

func writeCollection(path string, c canvas.Collection) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
