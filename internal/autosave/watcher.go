// Package autosave checkpoints a session whenever its collection file
// changes on disk.
//
// # Description
//
// The editor writes its open documents as a collection JSON file. The
// Watcher observes that file's directory, waits for writes to settle, then
// reads the file and calls Checkpoint on the session.
//
// # Coalescing
//
// At most one checkpoint runs at a time. A trigger that arrives while a
// checkpoint is running marks the watcher dirty; exactly one follow-up
// checkpoint runs when the current one finishes, however many triggers
// arrived meanwhile. This keeps snapshot creation strictly sequential.
package autosave

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/session"
)

// Checkpointer snapshots a collection. Implemented by *session.Session.
type Checkpointer interface {
	Checkpoint(ctx context.Context, c canvas.Collection, activeIndex int) (session.Result, error)
}

// Watcher checkpoints a collection file after it changes.
//
// # Thread Safety
//
// Safe for concurrent use. Trigger may be called from any goroutine.
type Watcher struct {
	path     string
	target   Checkpointer
	debounce time.Duration
	metrics  *Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	busy    bool
	pending bool
	wg      sync.WaitGroup
}

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last write before a checkpoint.
	// Zero checkpoints on every write.
	Debounce time.Duration

	// Metrics receives checkpoint outcomes. Nil disables metrics.
	Metrics *Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// New creates a watcher for the collection file at path.
func New(path string, target Checkpointer, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{
		path:     abs,
		target:   target,
		debounce: opts.Debounce,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}, nil
}

// Run watches until ctx is canceled. If the file already exists it is
// checkpointed once on start. Run waits for an in-flight checkpoint to
// finish before returning.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	defer w.Wait()

	if _, err := os.Stat(w.path); err == nil {
		w.Trigger(ctx)
	}

	w.logger.Info("autosave watching", "path", w.path, "debounce", w.debounce)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if w.debounce <= 0 {
				w.Trigger(ctx)
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.Trigger(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("autosave watcher error", "error", err)
		}
	}
}

// relevant reports whether an event touches the watched file's content.
// Editors that save atomically rename a temp file over the target, which
// surfaces as a Create.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Trigger requests a checkpoint. If one is already running the request is
// folded into a single follow-up run.
//
// The checkpoint runs detached from ctx's cancellation so that a save in
// progress is never cut short; ctx values are preserved.
func (w *Watcher) Trigger(ctx context.Context) {
	w.mu.Lock()
	if w.busy {
		w.pending = true
		w.mu.Unlock()
		if w.metrics != nil {
			w.metrics.coalesced.Inc()
		}
		return
	}
	w.busy = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.drain(context.WithoutCancel(ctx))
}

// Wait blocks until no checkpoint is running or pending.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) drain(ctx context.Context) {
	defer w.wg.Done()
	for {
		_, _ = w.CheckpointNow(ctx)

		w.mu.Lock()
		if !w.pending {
			w.busy = false
			w.mu.Unlock()
			return
		}
		w.pending = false
		w.mu.Unlock()
	}
}

// CheckpointNow reads the collection file and checkpoints it synchronously,
// recording the outcome in the metrics. Callers must not run it
// concurrently with Trigger-driven checkpoints of the same session unless
// the Checkpointer serializes calls itself (session.Session does).
func (w *Watcher) CheckpointNow(ctx context.Context) (session.Result, error) {
	start := time.Now()
	res, err := w.checkpoint(ctx)
	if w.metrics != nil {
		w.metrics.duration.Observe(time.Since(start).Seconds())
	}

	switch {
	case err != nil:
		w.record(ResultError)
		w.logger.Warn("autosave checkpoint failed", "path", w.path, "error", err)
	case res.Changed:
		w.record(ResultSaved)
		w.logger.Debug("autosave checkpoint saved",
			"snapshot", res.Snapshot.ID,
			"summary", res.Snapshot.Summary)
	default:
		w.record(ResultUnchanged)
	}

	if err == nil && w.metrics != nil {
		w.metrics.snapshots.Set(float64(res.Snapshots))
	}
	return res, err
}

func (w *Watcher) checkpoint(ctx context.Context) (session.Result, error) {
	c, err := ReadCollection(w.path)
	if err != nil {
		return session.Result{}, err
	}
	return w.target.Checkpoint(ctx, c, c.ActiveIndex)
}

func (w *Watcher) record(result string) {
	if w.metrics != nil {
		w.metrics.checkpoints.WithLabelValues(result).Inc()
	}
}

// ReadCollection loads a collection JSON file.
func ReadCollection(path string) (canvas.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return canvas.Collection{}, fmt.Errorf("read collection: %w", err)
	}
	var c canvas.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return canvas.Collection{}, fmt.Errorf("parse collection %s: %w", path, err)
	}
	return c, nil
}
