// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/holdq/holdq/lib/clock"
)

// Loop is the single coordinating execution context. See the package
// documentation for the threading rules.
type Loop struct {
	clock  clock.Clock
	logger *slog.Logger

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	// offloaded tracks work started with Go. RunPending waits for it
	// so that a Go function's follow-up Post is never missed.
	offloaded sync.WaitGroup
}

// NewLoop creates a Loop whose timers run on c.
func NewLoop(c clock.Clock, logger *slog.Logger) *Loop {
	return &Loop{
		clock:  c,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Clock returns the clock the Loop schedules against.
func (l *Loop) Clock() clock.Clock { return l.clock }

// Post queues fn to run on the Loop. It never blocks and may be called
// from any goroutine, including from a function the Loop is running.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do posts fn and waits for it to finish. Returns ctx.Err() if ctx is
// done first; fn may still run later in that case. Must not be called
// from the Loop itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go runs fn on a new goroutine, off the Loop.
func (l *Loop) Go(fn func()) {
	l.offloaded.Add(1)
	go func() {
		defer l.offloaded.Done()
		fn()
	}()
}

// Once runs fn on the Loop after delay.
func (l *Loop) Once(delay time.Duration, fn func()) *Handle {
	handle := &Handle{}
	timer := l.clock.AfterFunc(delay, func() {
		if handle.Cancelled() {
			return
		}
		l.Post(func() {
			if !handle.Cancelled() {
				fn()
			}
		})
	})
	handle.attach(timer, 0)
	return handle
}

// Repeating runs fn on the Loop after initialDelay and then every
// period. Panics if period <= 0.
//
// Firings are posted, not run, by the timer, so a slow Loop sees
// queued firings back to back rather than skipped ones.
func (l *Loop) Repeating(initialDelay, period time.Duration, fn func()) *Handle {
	if period <= 0 {
		panic(fmt.Sprintf("schedule: non-positive period %v", period))
	}

	handle := &Handle{}
	var arm func(delay time.Duration, sequence uint64)
	arm = func(delay time.Duration, sequence uint64) {
		timer := l.clock.AfterFunc(delay, func() {
			if handle.Cancelled() {
				return
			}
			l.Post(func() {
				if !handle.Cancelled() {
					fn()
				}
			})
			arm(period, sequence+1)
		})
		handle.attach(timer, sequence)
	}
	arm(initialDelay, 0)
	return handle
}

// Run executes posted functions until ctx is done. After Run returns
// the caller's goroutine is the coordinating context and may use
// RunPending to drain what remains.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if batch := l.take(); len(batch) > 0 {
			for _, fn := range batch {
				l.execute(fn)
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

// RunPending runs queued functions on the calling goroutine until the
// queue is empty and no Go work is outstanding. Returns the number of
// functions run.
func (l *Loop) RunPending() int {
	ran := 0
	for {
		l.offloaded.Wait()
		batch := l.take()
		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			l.execute(fn)
			ran++
		}
	}
}

// Pending returns the number of queued functions.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

// execute runs fn, containing a panic to the one callback so a single
// user's failure cannot take down the coordinating context.
func (l *Loop) execute(fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			l.logger.Error("coordinated callback panicked", "panic", recovered)
		}
	}()
	fn()
}
