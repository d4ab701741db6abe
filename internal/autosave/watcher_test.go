package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/config"
	"github.com/ipcrm/napkin/internal/history"
	"github.com/ipcrm/napkin/internal/session"
	"github.com/ipcrm/napkin/internal/store"
	"github.com/ipcrm/napkin/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// blockingCheckpointer records calls and blocks each one until released.
type blockingCheckpointer struct {
	mu      sync.Mutex
	calls   int
	active  int
	overlap bool
	started chan struct{}
	release chan struct{}
}

func newBlockingCheckpointer() *blockingCheckpointer {
	return &blockingCheckpointer{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingCheckpointer) Checkpoint(ctx context.Context, c canvas.Collection, active int) (session.Result, error) {
	b.mu.Lock()
	b.calls++
	b.active++
	if b.active > 1 {
		b.overlap = true
	}
	b.mu.Unlock()

	b.started <- struct{}{}
	<-b.release

	b.mu.Lock()
	b.active--
	b.mu.Unlock()
	return session.Result{Changed: true, Snapshots: 1}, nil
}

func (b *blockingCheckpointer) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func writeCollection(t *testing.T, path string, c canvas.Collection) {
	t.Helper()
	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func openSession(t *testing.T) *session.Session {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := discardLogger()
	s, err := session.Open(context.Background(), st, "board", config.Default(),
		session.WithLogger(logger),
		session.WithBuilder(history.NewBuilder(
			history.WithIDGenerator(testutil.NewSequentialIDGenerator("snap")),
			history.WithClock(testutil.NewStepClock(time.Second)),
			history.WithLogger(logger),
		)))
	require.NoError(t, err)
	return s
}

func TestCheckpointNow_RecordsOutcomes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "board.json")
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	s := openSession(t)
	w, err := New(path, s, Options{Metrics: metrics, Logger: discardLogger()})
	require.NoError(t, err)

	// missing file
	_, err = w.CheckpointNow(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	live := testutil.Collection(testutil.Doc("Board", testutil.Rect("s1", 0, 0)))
	writeCollection(t, path, live)
	res, err := w.CheckpointNow(ctx)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	res, err = w.CheckpointNow(ctx)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.checkpoints.WithLabelValues(ResultError)))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.checkpoints.WithLabelValues(ResultSaved)))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.checkpoints.WithLabelValues(ResultUnchanged)))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.snapshots))
}

func TestCheckpointNow_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	w, err := New(path, newBlockingCheckpointer(), Options{Logger: discardLogger()})
	require.NoError(t, err)

	_, err = w.CheckpointNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse collection")
}

func TestCheckpointNow_UsesActiveIndexFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	s := openSession(t)
	w, err := New(path, s, Options{Logger: discardLogger()})
	require.NoError(t, err)

	live := testutil.Collection(testutil.Doc("A"), testutil.Doc("B"))
	live.ActiveIndex = 1
	writeCollection(t, path, live)

	res, err := w.CheckpointNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Snapshot.ActiveIndex)
}

func TestTrigger_CoalescesWhileBusy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	writeCollection(t, path, testutil.Collection(testutil.Doc("Board")))

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	target := newBlockingCheckpointer()
	w, err := New(path, target, Options{Metrics: metrics, Logger: discardLogger()})
	require.NoError(t, err)

	ctx := context.Background()
	w.Trigger(ctx)
	<-target.started

	// five triggers while the first checkpoint is blocked fold into one
	for i := 0; i < 5; i++ {
		w.Trigger(ctx)
	}

	target.release <- struct{}{}
	<-target.started
	target.release <- struct{}{}
	w.Wait()

	assert.Equal(t, 2, target.callCount())
	assert.False(t, target.overlap)
	assert.Equal(t, 5.0, promtest.ToFloat64(metrics.coalesced))
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.checkpoints.WithLabelValues(ResultSaved)))
}

func TestTrigger_SurvivesCanceledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	writeCollection(t, path, testutil.Collection(testutil.Doc("Board")))

	target := newBlockingCheckpointer()
	w, err := New(path, target, Options{Logger: discardLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w.Trigger(ctx)
	<-target.started
	cancel()
	target.release <- struct{}{}
	w.Wait()

	assert.Equal(t, 1, target.callCount())
}

func TestRun_CheckpointsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.json")
	s := openSession(t)

	w, err := New(path, s, Options{Debounce: 20 * time.Millisecond, Logger: discardLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	live := testutil.Collection(testutil.Doc("Board", testutil.Rect("s1", 0, 0)))
	data, err := json.Marshal(live)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		// keep writing until the watcher is registered and picks one up
		_ = os.WriteFile(path, data, 0o644)
		return s.History().Len() == 1
	}, 5*time.Second, 50*time.Millisecond)

	// an unrelated file in the same directory is ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))

	live.Documents[0].Shapes = append(live.Documents[0].Shapes, testutil.Rect("s2", 5, 5))
	writeCollection(t, path, live)
	require.Eventually(t, func() bool {
		return s.History().Len() == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	got, err := s.Restore(1)
	require.NoError(t, err)
	assert.True(t, live.Equal(got))
}

func TestRun_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "board.json")
	w, err := New(path, newBlockingCheckpointer(), Options{Logger: discardLogger()})
	require.NoError(t, err)

	err = w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch")
}

func TestReadCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"documents": [{"title": "Board", "shapes": [{"id": "s1", "type": "rectangle", "x": 1}],
		               "viewport": {"x": 0, "y": 0, "zoom": 1}}],
		"active_index": 0
	}`), 0o644))

	c, err := ReadCollection(path)
	require.NoError(t, err)
	require.Len(t, c.Documents, 1)
	assert.Equal(t, "Board", c.Documents[0].Title)
	require.Len(t, c.Documents[0].Shapes, 1)
	assert.Equal(t, "s1", c.Documents[0].Shapes[0].ID)

	_, err = ReadCollection(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
