package pagetest

import (
	"sync"
	"time"
)

// Clock is a fake time source. Each call to Now moves time on by the
// step it was made with, so animations reach their end after a known
// number of frames.
type Clock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

// NewClock returns a clock that advances by step on every reading.
func NewClock(step time.Duration) *Clock {
	return &Clock{t: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), step: step}
}

// Now returns the current time and then advances it.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

// Advance moves time on by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
