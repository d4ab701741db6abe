package cli

import (
	"context"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/ipcrm/napkin/internal/autosave"
	"github.com/ipcrm/napkin/internal/mcpserver"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	MetricsAddr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the session history as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout.

Tools: list_snapshots, get_snapshot, checkpoint, diff_snapshots. All of
them operate on the configured session.

Examples:
  napkin-history serve --session design-review
  napkin-history serve --db ~/.napkin/history.db --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	st, s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.MetricsAddr != "" {
		reg := newRegistry()
		srv, err := serveMetrics(opts.MetricsAddr, autosave.Router(reg, st.Ping))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		defer shutdownServer(srv)
	}

	server := mcpserver.New(s, opts.Logger.With("session", s.ID()))
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(cmd.InOrStdin()),
		Writer: nopWriteCloser{cmd.OutOrStdout()},
	}
	if err := server.Run(ctx, transport); err != nil && ctx.Err() == nil {
		return WrapExitError(ExitCommandError, "mcp server failed", err)
	}
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
