package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/testutil"
)

func TestPrune_UnderCap(t *testing.T) {
	snaps := []Snapshot{baselineSnapshot("b1", testutil.Collection(testutil.Doc("A")))}

	got, err := Prune(snaps, 3)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = Prune(snaps, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPrune_KeepsBaselineHead(t *testing.T) {
	c := testutil.Collection(testutil.Doc("A"))
	snaps := []Snapshot{
		baselineSnapshot("b1", c),
		baselineSnapshot("b2", c),
		deltaSnapshot("d1", []string{"A"}),
	}

	got, err := Prune(snaps, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b2", got[0].ID)
	assert.Equal(t, "d1", got[1].ID)
}

func TestPrune_PromotesDeltaHead(t *testing.T) {
	c := testutil.Collection(testutil.Doc("A", testutil.Rect("a", 0, 0)))
	snaps := []Snapshot{
		baselineSnapshot("b1", c),
		deltaSnapshot("d1", []string{"A"}, DocumentDelta{Added: []canvas.Shape{testutil.Rect("b", 0, 0)}}),
		deltaSnapshot("d2", []string{"A"}, DocumentDelta{Removed: []string{"a"}}),
	}

	got, err := Prune(snaps, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	head := got[0]
	assert.Equal(t, "d1", head.ID)
	require.True(t, head.IsBaseline())
	assert.Nil(t, head.Deltas)
	assert.Equal(t, []string{"a", "b"}, shapeIDs(head.FullState.Documents[0]))

	// input untouched
	assert.False(t, snaps[1].IsBaseline())
	assert.Len(t, snaps, 3)

	h := &History{MaxSnapshots: 2, Snapshots: got}
	require.NoError(t, h.Validate())
	assert.Equal(t, []string{"b"}, shapeIDs(mustReconstruct(t, h, 1).Documents[0]))
}

func TestPrune_BrokenChain(t *testing.T) {
	snaps := []Snapshot{
		deltaSnapshot("d1", []string{"A"}),
		deltaSnapshot("d2", []string{"A"}),
	}
	_, err := Prune(snaps, 1)
	require.Error(t, err)
	assert.True(t, IsInvariantError(err))
}

func TestHistoryValidate(t *testing.T) {
	c := testutil.Collection(testutil.Doc("A"))
	full := c.Clone()

	tests := []struct {
		name    string
		history *History
		wantErr bool
	}{
		{"nil", nil, false},
		{"empty", New(3, 3), false},
		{"baseline head", &History{MaxSnapshots: 3, Snapshots: []Snapshot{baselineSnapshot("b", c)}}, false},
		{"delta head", &History{MaxSnapshots: 3, Snapshots: []Snapshot{deltaSnapshot("d", []string{"A"})}}, true},
		{"over cap", &History{MaxSnapshots: 1, Snapshots: []Snapshot{baselineSnapshot("b", c), baselineSnapshot("c", c)}}, true},
		{"both payloads", &History{MaxSnapshots: 3, Snapshots: []Snapshot{{ID: "x", FullState: &full, Deltas: []DocumentDelta{}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.history.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsInvariantError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	h := New(0, -1)
	assert.Equal(t, DefaultMaxSnapshots, h.MaxSnapshots)
	assert.Equal(t, DefaultBaselineInterval, h.BaselineInterval)
	assert.NotNil(t, h.Snapshots)
	assert.Equal(t, 0, h.Len())
}
