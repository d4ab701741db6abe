package testutil

import (
	"sync"
	"time"
)

// Epoch is the first timestamp returned by a StepClock.
var Epoch = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a deterministic clock for tests.
//
// Each call to Now returns the previous time plus a fixed step, starting at
// Epoch. The same scenario therefore produces byte-identical snapshot
// timestamps on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewStepClock creates a clock starting at Epoch. A non-positive step
// defaults to one second.
func NewStepClock(step time.Duration) *StepClock {
	if step <= 0 {
		step = time.Second
	}
	return &StepClock{next: Epoch, step: step}
}

// Now returns the current tick and advances the clock by one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Reset rewinds the clock to Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = Epoch
}
