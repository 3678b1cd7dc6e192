// Package clock provides the nanosecond timestamp source for record
// created_at / updated_at fields.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock returns nanosecond timestamps.
type Clock interface {
	Now() uint64
}

// System reads wall time and never goes backwards: a reading that is not
// greater than the previous one is bumped to previous+1.
type System struct {
	last atomic.Uint64
}

// NewSystem creates a monotonic wall clock.
func NewSystem() *System {
	return &System{}
}

// Now returns the current time in nanoseconds since the Unix epoch.
func (c *System) Now() uint64 {
	for {
		prev := c.last.Load()
		now := uint64(time.Now().UnixNano())
		if now <= prev {
			now = prev + 1
		}
		if c.last.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// Manual is a test clock that advances by Step on every call.
type Manual struct {
	t    atomic.Uint64
	Step uint64
}

// NewManual creates a Manual clock whose first reading is start.
func NewManual(start, step uint64) *Manual {
	m := &Manual{Step: step}
	m.t.Store(start - step)
	return m
}

// Now advances the clock by Step and returns the new reading.
func (m *Manual) Now() uint64 {
	return m.t.Add(m.Step)
}
