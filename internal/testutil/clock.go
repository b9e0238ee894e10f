package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a thread-safe clock for tests: every Now() call
// advances a fixed epoch by one step, so timestamps in traces are unique,
// strictly increasing, and identical across runs.
//
// Unlike engine.SystemClock, DeterministicClock can be reset for test
// reuse, letting the same scenario produce identical golden traces.
type DeterministicClock struct {
	mu    sync.Mutex
	epoch time.Time
	step  time.Duration
	ticks int64
}

// NewDeterministicClock creates a clock anchored at a fixed epoch,
// advancing one second per Now() call.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{
		epoch: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		step:  time.Second,
	}
}

// Now returns the next tick of the clock.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.epoch.Add(time.Duration(c.ticks) * c.step)
}

// Reset rewinds the clock to its epoch. After Reset, the next Now()
// returns the same value as the first call ever did.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
