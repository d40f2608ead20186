// SPDX-License-Identifier: MIT
package render

import (
	"sync"
	"time"
)

// Clock schedules frames. Start begins one run and returns its tick
// channel; Stop ends the run. A clock may be started again after Stop.
type Clock interface {
	Start() <-chan time.Time
	Stop()
}

// TickerClock ticks at a fixed frame rate using time.Ticker.
type TickerClock struct {
	interval time.Duration

	mu     sync.Mutex
	ticker *time.Ticker
}

// NewTickerClock returns a clock ticking fps times per second. A
// non-positive fps defaults to 60.
func NewTickerClock(fps int) *TickerClock {
	if fps <= 0 {
		fps = 60
	}
	return &TickerClock{interval: time.Second / time.Duration(fps)}
}

// Interval returns the time between ticks.
func (c *TickerClock) Interval() time.Duration { return c.interval }

func (c *TickerClock) Start() <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker != nil {
		c.ticker.Stop()
	}
	c.ticker = time.NewTicker(c.interval)
	return c.ticker.C
}

func (c *TickerClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

// ManualClock ticks only when told to. It is meant for tests.
type ManualClock struct {
	mu   sync.Mutex
	ch   chan time.Time
	done chan struct{}
}

// NewManualClock returns a stopped manual clock.
func NewManualClock() *ManualClock { return &ManualClock{} }

func (c *ManualClock) Start() <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ch = make(chan time.Time)
	c.done = make(chan struct{})
	return c.ch
}

func (c *ManualClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

// Tick delivers one tick and blocks until the loop receives it. It returns
// false if the clock is stopped, or stops while waiting.
func (c *ManualClock) Tick() bool {
	c.mu.Lock()
	ch, done := c.ch, c.done
	c.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case ch <- time.Now():
		return true
	case <-done:
		return false
	}
}
