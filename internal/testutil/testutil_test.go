package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepClock_StartsAtEpoch(t *testing.T) {
	clock := NewStepClock(time.Minute)
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Minute), clock.Now())
}

func TestStepClock_DefaultStep(t *testing.T) {
	clock := NewStepClock(0)
	clock.Now()
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(time.Second)
	clock.Now()
	clock.Now()
	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestSequentialIDGenerator(t *testing.T) {
	gen := NewSequentialIDGenerator("")
	assert.Equal(t, "snap-1", gen.Generate())
	assert.Equal(t, "snap-2", gen.Generate())

	custom := NewSequentialIDGenerator("s")
	assert.Equal(t, "s-1", custom.Generate())
}

func TestSequentialIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDGenerator("x")
	const numGoroutines = 20
	const callsPerGoroutine = 50

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}

func TestFixedIDGenerator(t *testing.T) {
	gen := NewFixedIDGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	require.Panics(t, func() { gen.Generate() })
}

func TestCanvasBuilders(t *testing.T) {
	c := Collection(Doc("Board", Rect("s1", 10, 20)))
	require.Len(t, c.Documents, 1)
	assert.Equal(t, "Board", c.Documents[0].Title)
	assert.Equal(t, 1.0, c.Documents[0].Viewport.Zoom)

	v, ok := c.Documents[0].Shapes[0].Get("x")
	require.True(t, ok)
	assert.Equal(t, 10.0, v)
}
