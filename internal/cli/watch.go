package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ipcrm/napkin/internal/autosave"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	MetricsAddr string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <collection.json>",
		Short: "Checkpoint a collection file whenever it changes",
		Long: `Watch a collection file and record a snapshot after each burst of writes.

Writes are debounced (debounce_ms in the config). Saves that leave the
collection unchanged do not create snapshots. Stop with Ctrl-C; an
in-flight checkpoint finishes before exit.

With --metrics-addr, Prometheus metrics are served on /metrics and a
database health check on /healthz.

Examples:
  napkin-history watch board.json
  napkin-history watch board.json --session design-review --metrics-addr :9090`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, path string, cmd *cobra.Command) error {
	st, s, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := newRegistry()
	w, err := autosave.New(path, s, autosave.Options{
		Debounce: opts.Config.Debounce(),
		Metrics:  autosave.NewMetrics(reg),
		Logger:   opts.Logger.With("session", s.ID()),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create watcher", err)
	}

	if opts.MetricsAddr != "" {
		srv, err := serveMetrics(opts.MetricsAddr, autosave.Router(reg, st.Ping))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		defer shutdownServer(srv)
		opts.Logger.Info("serving metrics", "addr", opts.MetricsAddr)
	}

	if opts.Format != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (session %s)\n", path, s.ID())
	}

	if err := w.Run(ctx); err != nil {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}

// newRegistry returns a registry with the Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// serveMetrics starts an HTTP server for h on addr. The listener is bound
// before returning so address errors surface immediately.
func serveMetrics(addr string, h http.Handler) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	return srv, nil
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
