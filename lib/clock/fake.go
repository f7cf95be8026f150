// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock that reads initial until Advance is called.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for tests.
//
// AfterFunc callbacks run synchronously on the goroutine calling
// Advance. A callback may call AfterFunc again (that is how periodic
// schedules re-arm) but must not call Advance or Sleep.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*waiter
	changed *sync.Cond
}

// waiter is one pending After, AfterFunc, Sleep, or ticker deadline.
type waiter struct {
	deadline time.Time

	// channel is set for After, Sleep, and tickers.
	channel chan time.Time

	// callback is set for AfterFunc.
	callback func()

	// period is non-zero for tickers, which are re-queued after firing.
	period time.Duration

	stopped bool
	fired   bool
}

func (w *waiter) active() bool { return !w.stopped && !w.fired }

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives once the clock has advanced d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.addLocked(&waiter{deadline: c.current.Add(d), channel: channel})
	return channel
}

// AfterFunc registers f to run once the clock has advanced d. If
// d <= 0, f runs before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{
			stop:  func() bool { return false },
			reset: func(time.Duration) bool { return false },
		}
	}

	c.mu.Lock()
	w := &waiter{deadline: c.current.Add(d), callback: f}
	c.addLocked(w)
	c.mu.Unlock()

	return &Timer{
		stop: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if !w.active() {
				return false
			}
			w.stopped = true
			c.changed.Broadcast()
			return true
		},
		reset: func(d time.Duration) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			wasActive := w.active()
			w.deadline = c.current.Add(d)
			w.stopped = false
			w.fired = false
			if !wasActive {
				c.addLocked(w)
			}
			return wasActive
		},
	}
}

// NewTicker returns a Ticker that fires every d of fake time.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	w := &waiter{deadline: c.current.Add(d), channel: channel, period: d}
	c.addLocked(w)

	return &Ticker{
		C: channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			w.stopped = true
			c.changed.Broadcast()
		},
		reset: func(d time.Duration) {
			c.mu.Lock()
			defer c.mu.Unlock()
			w.period = d
			w.deadline = c.current.Add(d)
			if w.stopped {
				w.stopped = false
				c.addLocked(w)
			}
		},
	}
}

// Sleep blocks until the clock has advanced d.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// Advance moves the clock forward by d. Pending deadlines inside the
// window fire one at a time in deadline order (registration order on
// ties), with Now set to each deadline while it fires. Deadlines
// registered by a firing callback are honoured if they fall inside the
// window. Channel sends never block; a full channel drops the tick.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()

	for {
		next := c.popExpired(target)
		if next == nil {
			break
		}
		if next.callback != nil {
			next.callback()
			continue
		}
		select {
		case next.channel <- next.deadline:
		default:
		}
	}

	c.mu.Lock()
	if target.After(c.current) {
		c.current = target
	}
	c.mu.Unlock()
}

// popExpired removes the earliest active waiter due at or before
// target, moves the clock to its deadline, and returns it. Tickers are
// re-queued one period later. Returns nil when nothing is due.
func (c *FakeClock) popExpired(target time.Time) *waiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := -1
	for i, w := range c.waiters {
		if !w.active() || w.deadline.After(target) {
			continue
		}
		if index < 0 || w.deadline.Before(c.waiters[index].deadline) {
			index = i
		}
	}
	if index < 0 {
		c.compactLocked()
		return nil
	}

	due := c.waiters[index]
	c.waiters = append(c.waiters[:index], c.waiters[index+1:]...)
	if due.deadline.After(c.current) {
		c.current = due.deadline
	}

	if due.period > 0 {
		fired := *due
		due.deadline = due.deadline.Add(due.period)
		c.waiters = append(c.waiters, due)
		return &fired
	}
	due.fired = true
	return due
}

// compactLocked drops stopped and fired waiters. Must hold c.mu.
func (c *FakeClock) compactLocked() {
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if w.active() {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}

// addLocked registers w and wakes WaitForTimers. A waiter that is
// still in the list (stopped but not yet compacted) is not added twice.
// Must hold c.mu.
func (c *FakeClock) addLocked(w *waiter) {
	for _, existing := range c.waiters {
		if existing == w {
			c.changed.Broadcast()
			return
		}
	}
	c.waiters = append(c.waiters, w)
	c.changed.Broadcast()
}

// WaitForTimers blocks until at least n waiters are pending. Use it
// before Advance when another goroutine is about to Sleep or register
// a timer, so the advance cannot race the registration.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of active waiters.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, w := range c.waiters {
		if w.active() {
			count++
		}
	}
	return count
}
