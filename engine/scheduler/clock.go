package scheduler

import (
	"sync"
	"time"
)

// Clock is the time source of a Scheduler
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// RealClock returns the wall clock
func RealClock() Clock {
	return realClock{}
}

// FakeClock is a manually driven Clock
//
// After advances the clock by d and fires immediately, so a Scheduler driven by a FakeClock runs
// in virtual time as fast as it can.
type FakeClock struct {
	lock sync.Mutex
	now  time.Time
}

// NewFakeClock creates a FakeClock starting at start
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current virtual time
func (c *FakeClock) Now() time.Time {
	c.lock.Lock()
	now := c.now
	c.lock.Unlock()
	return now
}

// Advance moves the virtual time forward
func (c *FakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	c.now = c.now.Add(d)
	c.lock.Unlock()
}

// After advances the clock by d and returns a fired channel
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	if d > 0 {
		c.Advance(d)
	}
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}
