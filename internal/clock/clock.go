// Package clock abstracts time for the storage views so tests can pin
// timestamps deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock supplies millisecond-precision timestamps. Tool-call ordering within
// a session requires sub-second granularity, so milliseconds are the unit
// everywhere a timestamp is persisted.
type Clock interface {
	// NowMillis returns the current time as Unix milliseconds.
	NowMillis() int64
}

// Wall is the production clock.
type Wall struct{}

// NowMillis returns time.Now() as Unix milliseconds.
func (Wall) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Manual is a thread-safe controllable clock for tests.
//
// Unlike Wall, Manual only moves when told to, which makes durations and
// golden-file timestamps reproducible across runs.
type Manual struct {
	mu  sync.Mutex
	now int64
}

// NewManual creates a manual clock starting at the given Unix milliseconds.
func NewManual(start int64) *Manual {
	return &Manual{now: start}
}

// NowMillis returns the clock's current position.
func (c *Manual) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d milliseconds and returns the new
// position.
func (c *Manual) Advance(d int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}

// Set moves the clock to an absolute position.
func (c *Manual) Set(millis int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = millis
}
