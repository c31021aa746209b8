package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a thread-safe test clock that starts at a fixed
// instant and advances by a fixed step on every read. Two runs of the
// same test see identical timestamps, which keeps stamped fields
// (createdAt, completedAt) and golden traces stable.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewDeterministicClock creates a clock starting at 2024-01-01T00:00:00Z
// that advances one second per Now() call.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		step: time.Second,
	}
}

// NewDeterministicClockAt creates a clock with an explicit start and step.
func NewDeterministicClockAt(start time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{now: start, step: step}
}

// Now returns the current instant and advances the clock by one step.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the instant the next Now() call will report, without
// advancing the clock.
func (c *DeterministicClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
