package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ipcrm/napkin/internal/autosave"
	"github.com/ipcrm/napkin/internal/session"
)

// SnapshotOptions holds flags for the snapshot command.
type SnapshotOptions struct {
	*RootOptions
	Active int // -1 uses the file's active_index
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot <collection.json>",
		Short: "Checkpoint a collection file",
		Long: `Record a snapshot of a collection file in the session history.

If the collection matches the latest snapshot nothing is recorded.

Examples:
  napkin-history snapshot board.json
  napkin-history snapshot board.json --session design-review
  napkin-history snapshot board.json --active 2 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Active, "active", -1, "active tab index (default: the file's active_index)")

	return cmd
}

func runSnapshot(ctx context.Context, opts *SnapshotOptions, path string, cmd *cobra.Command) error {
	c, err := autosave.ReadCollection(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load collection", err)
	}

	st, s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	active := c.ActiveIndex
	if opts.Active >= 0 {
		active = opts.Active
	}

	res, err := s.Checkpoint(ctx, c, active)
	if err != nil {
		return WrapExitError(ExitFailure, "snapshot failed", err)
	}

	f := opts.formatter(cmd)
	if opts.Format == "json" {
		return f.JSON(res)
	}
	return outputSnapshotText(cmd, s.ID(), res)
}

func outputSnapshotText(cmd *cobra.Command, sessionID string, res session.Result) error {
	w := cmd.OutOrStdout()
	if !res.Changed {
		fmt.Fprintf(w, "No changes since %s (%d snapshot(s) in %s)\n", res.Snapshot.ID, res.Snapshots, sessionID)
		return nil
	}

	fmt.Fprintf(w, "✓ %s %s: %s\n", res.Snapshot.Kind(), res.Snapshot.ID, res.Snapshot.Summary)
	fmt.Fprintf(w, "  Session %s: %d snapshot(s)", sessionID, res.Snapshots)
	if res.Pruned > 0 {
		fmt.Fprintf(w, ", %d pruned", res.Pruned)
	}
	fmt.Fprintln(w)
	return nil
}
