package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ipcrm/napkin/internal/history"
	"github.com/ipcrm/napkin/internal/store"
)

// VerifySessionResult holds the verification result for a single session.
type VerifySessionResult struct {
	Session       string   `json:"session"`
	Snapshots     int      `json:"snapshots"`
	Baselines     int      `json:"baselines"`
	Valid         bool     `json:"valid"`
	Deterministic bool     `json:"deterministic"`
	Errors        []string `json:"errors,omitempty"`
}

// VerifyResult holds the overall verification result.
type VerifyResult struct {
	Sessions      []VerifySessionResult `json:"sessions"`
	TotalSessions int                   `json:"total_sessions"`
	AllValid      bool                  `json:"all_valid"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [session...]",
		Short: "Check stored histories for corruption",
		Long: `Verify that stored histories are structurally valid and reconstruct
deterministically.

For each session the stored history is checked with the same rules used
when snapshots are created (a baseline first, exactly one payload per
snapshot). Every retained snapshot is then reconstructed twice and the
results compared. With no arguments every session in the database is checked.

Exit codes:
  0 - All sessions verified
  1 - Verification failed (corrupt or non-deterministic history)
  2 - Command error (database not found, etc.)

Examples:
  napkin-history verify
  napkin-history verify design-review
  napkin-history verify --db ./napkin.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), rootOpts, args, cmd)
		},
	}
	return cmd
}

func runVerify(ctx context.Context, opts *RootOptions, sessionIDs []string, cmd *cobra.Command) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if len(sessionIDs) == 0 {
		infos, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, info := range infos {
			sessionIDs = append(sessionIDs, info.ID)
		}
	}

	result := VerifyResult{
		Sessions:      make([]VerifySessionResult, 0, len(sessionIDs)),
		TotalSessions: len(sessionIDs),
		AllValid:      true,
	}

	f := opts.formatter(cmd)
	for _, id := range sessionIDs {
		f.VerboseLog("verifying session %s", id)
		sessionResult, err := verifySession(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load session %s", id), err)
		}
		result.Sessions = append(result.Sessions, sessionResult)
		if !sessionResult.Valid || !sessionResult.Deterministic {
			result.AllValid = false
		}
	}

	if opts.Format == "json" {
		return outputVerifyJSON(opts, cmd, result)
	}
	return outputVerifyText(cmd, result, opts.Verbose)
}

// verifySession validates one stored history and reconstructs every snapshot twice.
func verifySession(ctx context.Context, st *store.Store, id string) (VerifySessionResult, error) {
	h, err := st.LoadHistory(ctx, id)
	if err != nil {
		return VerifySessionResult{}, err
	}

	res := VerifySessionResult{
		Session:       id,
		Snapshots:     h.Len(),
		Valid:         true,
		Deterministic: true,
	}
	for _, s := range h.Snapshots {
		if s.IsBaseline() {
			res.Baselines++
		}
	}

	if err := h.Validate(); err != nil {
		res.Valid = false
		res.Errors = append(res.Errors, err.Error())
		// reconstruction would fail the same way
		return res, nil
	}

	for i := range h.Snapshots {
		first, err := history.Reconstruct(h, i)
		if err != nil {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("snapshot %d: %v", i, err))
			continue
		}
		second, err := history.Reconstruct(h, i)
		if err != nil {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("snapshot %d: %v", i, err))
			continue
		}
		if !first.Equal(second) {
			res.Deterministic = false
			res.Errors = append(res.Errors, fmt.Sprintf("snapshot %d: reconstructions differ", i))
		}
	}

	return res, nil
}

// outputVerifyJSON outputs the verify result as JSON.
func outputVerifyJSON(opts *RootOptions, cmd *cobra.Command, result VerifyResult) error {
	f := opts.formatter(cmd)
	if result.AllValid {
		return f.JSON(result)
	}

	if err := f.Error("E_VERIFY", "history verification failed", result); err != nil {
		return err
	}
	return reportedFailure("history verification failed")
}

// outputVerifyText outputs the verify result as text.
func outputVerifyText(cmd *cobra.Command, result VerifyResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Verify Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range result.Sessions {
		status := "✓"
		if !s.Valid || !s.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s\n", status, s.Session)
		fmt.Fprintf(w, "  Snapshots: %d (%d baseline(s))\n", s.Snapshots, s.Baselines)
		if verbose || !s.Valid || !s.Deterministic {
			for _, e := range s.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		fmt.Fprintln(w)
	}

	if result.AllValid {
		fmt.Fprintln(w, "✓ All sessions verified")
		return nil
	}

	fmt.Fprintln(w, "✗ History verification failed")
	return reportedFailure("history verification failed")
}
