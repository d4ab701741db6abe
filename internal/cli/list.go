package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipcrm/napkin/internal/session"
)

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Session   string         `json:"session"`
	Snapshots []session.Info `json:"snapshots"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List retained snapshots",
		Long: `List the retained snapshots of a session, oldest first.

Examples:
  napkin-history list
  napkin-history list --session design-review --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), rootOpts, cmd)
		},
	}
	return cmd
}

func runList(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	st, s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	result := ListResult{Session: s.ID(), Snapshots: s.Snapshots()}
	if opts.Format == "json" {
		return opts.formatter(cmd).JSON(result)
	}

	w := cmd.OutOrStdout()
	if len(result.Snapshots) == 0 {
		fmt.Fprintf(w, "No snapshots in session %s.\n", result.Session)
		return nil
	}

	fmt.Fprintf(w, "Session %s: %d snapshot(s)\n\n", result.Session, len(result.Snapshots))
	for _, info := range result.Snapshots {
		kind := "D"
		if info.Kind == "baseline" {
			kind = "B"
		}
		fmt.Fprintf(w, "%4d  %s  %s  %-36s  %s\n",
			info.Index, kind, info.Timestamp.UTC().Format(time.RFC3339), info.ID, info.Summary)
		if opts.Verbose {
			fmt.Fprintf(w, "      tabs: %s\n", strings.Join(info.Tabs, " | "))
		}
	}
	return nil
}
