package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipcrm/napkin/internal/store"
)

// NewSessionsCommand creates the sessions command and its rm subcommand.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Long: `List every session stored in the database.

Examples:
  napkin-history sessions
  napkin-history sessions rm old-board`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(cmd.Context(), rootOpts, cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "rm <session>",
		Short:         "Delete a session and its snapshots",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionRemove(cmd.Context(), rootOpts, args[0], cmd)
		},
	})

	return cmd
}

func runSessions(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	infos, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).JSON(infos)
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%-24s  %3d snapshot(s)  max %d, baseline every %d  updated %s\n",
			info.ID, info.Snapshots, info.MaxSnapshots, info.BaselineInterval,
			info.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func runSessionRemove(ctx context.Context, opts *RootOptions, id string, cmd *cobra.Command) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("no session %q", id), err)
		}
		return WrapExitError(ExitCommandError, "failed to delete session", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).JSON(map[string]string{"deleted": id})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted session %s\n", id)
	return nil
}
