package util

import (
	"sync/atomic"
	"time"
)

// Clock is the external time source for market gating.
// Values are opaque monotonically non-decreasing integers; deployments
// map them to block heights or unix seconds.
type Clock interface {
	Now() int64
}

// RealClock reads wall time as unix seconds.
type RealClock struct{}

func (RealClock) Now() int64 { return time.Now().Unix() }

// ManualClock is a settable clock for tests and devnet runs.
// It never moves backwards.
type ManualClock struct {
	now atomic.Int64
}

func NewManualClock(start int64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

func (c *ManualClock) Now() int64 { return c.now.Load() }

// Advance moves the clock forward by delta ticks.
func (c *ManualClock) Advance(delta int64) {
	if delta < 0 {
		return
	}
	c.now.Add(delta)
}

// Set jumps the clock to t, ignoring attempts to move backwards.
func (c *ManualClock) Set(t int64) {
	for {
		cur := c.now.Load()
		if t <= cur {
			return
		}
		if c.now.CompareAndSwap(cur, t) {
			return
		}
	}
}
