package state

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// NewID returns a random identifier for strokes and participants.
func NewID() string {
	return uuid.NewString()
}

// Clock hands out strictly increasing sequence numbers for one Log.
type Clock struct {
	counter atomic.Uint64
}

// Tick advances the clock and returns the new value.
func (c *Clock) Tick() uint64 {
	return c.counter.Add(1)
}

// Current returns the last value handed out, or zero.
func (c *Clock) Current() uint64 {
	return c.counter.Load()
}
