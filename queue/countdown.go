// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"time"

	"github.com/holdq/holdq/feedback"
	"github.com/holdq/holdq/lib/schedule"
)

// startCountdown begins a fresh countdown of QueueTime seconds for
// record, cancelling any countdown it already had.
func (c *Controller) startCountdown(record *Record) {
	record.task.Cancel()
	c.store.update(func() {
		record.CountdownRemaining = c.options.QueueTime
		record.ticks = 0
		record.task = nil
	})

	if c.pool != nil {
		if handle, ok := c.startWorkerCountdown(record); ok {
			c.store.update(func() { record.task = handle })
			return
		}
	}

	tick := c.options.TickInterval
	handle := c.loop.Repeating(tick, tick, func() { c.onTick(record) })
	c.store.update(func() { record.task = handle })
	c.logger.Debug("countdown started", "user", record.User, "seconds", record.CountdownRemaining)
}

// onTick runs on every coordinator tick; every TicksPerSecond-th tick,
// starting with the first, is a countdown second.
func (c *Controller) onTick(record *Record) {
	if !c.current(record) {
		return
	}
	perSecond := max(c.options.TicksPerSecond, 1)
	second := record.ticks%perSecond == 0
	c.store.update(func() { record.ticks++ })
	if second {
		c.advance(record)
	}
}

// startWorkerCountdown paces the countdown on the worker pool. The
// worker only sleeps; each second is posted back to the loop. Reports
// false if the pool no longer accepts work.
func (c *Controller) startWorkerCountdown(record *Record) (*schedule.Handle, bool) {
	handle := schedule.NewHandle()
	seconds := record.CountdownRemaining
	clock := c.loop.Clock()

	err := c.pool.Submit(func() {
		for step := 0; step <= seconds; step++ {
			if handle.Cancelled() || !c.store.Held(record.User) {
				return
			}
			c.loop.Post(func() { c.onWorkerStep(record, handle) })
			if step < seconds {
				clock.Sleep(time.Second)
			}
		}
	})
	if err != nil {
		c.logger.Warn("worker pool rejected countdown, using loop ticks", "user", record.User, "error", err)
		return nil, false
	}
	c.logger.Debug("countdown started on worker pool", "user", record.User, "seconds", seconds)
	return handle, true
}

func (c *Controller) onWorkerStep(record *Record, handle *schedule.Handle) {
	if handle.Cancelled() || !c.current(record) || record.task != handle {
		return
	}
	c.advance(record)
}

// advance is one countdown second: show and cue the remaining time,
// or expire when none is left.
func (c *Controller) advance(record *Record) {
	if record.CountdownRemaining <= 0 {
		c.expire(record)
		return
	}
	c.notifier.ActionBar(record.User, feedback.Countdown, record.CountdownRemaining)
	c.cue(record.User)
	c.store.update(func() { record.CountdownRemaining-- })
}

// expire ends a countdown. With the admission policy on, the user's
// game mode is restored and the transfer protocol takes over while the
// user stays held; with it off, the user is released.
func (c *Controller) expire(record *Record) {
	record.task.Cancel()
	c.store.update(func() { record.task = nil })

	if !c.Enabled() {
		c.logger.Info("countdown expired with policy off, releasing", "user", record.User)
		c.Release(record.User)
		return
	}

	c.store.update(func() { record.State = TransferPending })
	c.restoreGameMode(record)
	if c.transfer == nil {
		c.logger.Warn("countdown expired with no transfer protocol attached", "user", record.User)
		return
	}
	c.logger.Info("countdown expired, requesting transfer", "user", record.User, "target", c.options.TargetServer)
	c.transfer.RequestTransfer(record.User, c.options.TargetServer)
}

// current reports whether record is still the user's live record.
func (c *Controller) current(record *Record) bool {
	return c.store.lookup(record.User) == record
}
