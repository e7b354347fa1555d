package engine

import "sync/atomic"

// suspensionClock stamps suspensions. Waiters woken by the same
// completion resume oldest first, whatever order the task map yields.
type suspensionClock struct {
	ticks atomic.Uint64
}

// tick advances the clock and returns the new time.
func (c *suspensionClock) tick() uint64 {
	return c.ticks.Add(1)
}

func (c *suspensionClock) now() uint64 {
	return c.ticks.Load()
}
