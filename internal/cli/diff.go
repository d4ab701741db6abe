package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/history"
)

// DiffResult is the JSON payload of the diff command.
type DiffResult struct {
	From   int                     `json:"from"`
	To     int                     `json:"to"`
	Deltas []history.DocumentDelta `json:"deltas"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <from> <to>",
		Short: "Compare two snapshots",
		Long: `Compare the collections reconstructed at two snapshots.

Text output is a line diff of the two collections as indented JSON.
JSON output lists the per-tab shape deltas that turn <from> into <to>.

Examples:
  napkin-history diff 0 4
  napkin-history diff 2 -- -1
  napkin-history diff 0 1 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runDiff(ctx context.Context, opts *RootOptions, fromArg, toArg string, cmd *cobra.Command) error {
	st, s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	n := s.History().Len()
	from, err := parseIndex(fromArg, n)
	if err != nil {
		return err
	}
	to, err := parseIndex(toArg, n)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		deltas, err := s.Diff(from, to)
		if err != nil {
			return indexError(err)
		}
		if deltas == nil {
			deltas = []history.DocumentDelta{}
		}
		return opts.formatter(cmd).JSON(DiffResult{From: from, To: to, Deltas: deltas})
	}

	a, err := s.Restore(from)
	if err != nil {
		return indexError(err)
	}
	b, err := s.Restore(to)
	if err != nil {
		return indexError(err)
	}
	return writeLineDiff(cmd.OutOrStdout(), from, to, a, b)
}

// writeLineDiff prints a line diff of two collections rendered as indented
// JSON. Unchanged lines are prefixed with two spaces.
func writeLineDiff(w io.Writer, from, to int, a, b canvas.Collection) error {
	left, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	right, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "--- snapshot %d\n+++ snapshot %d\n", from, to)
	if string(left) == string(right) {
		fmt.Fprintln(w, "(no differences)")
		return nil
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lines := dmp.DiffLinesToChars(string(left)+"\n", string(right)+"\n")
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)

	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprint(w, prefix+line)
		}
	}
	return nil
}
