// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"time"

	"github.com/holdq/holdq/presence"
)

// Status is a point-in-time view of the Controller.
type Status struct {
	Enabled             bool          `json:"enabled"`
	QueueTime           int           `json:"queue_time"`
	TargetServer        string        `json:"target_server"`
	DisabledMessage     string        `json:"disabled_message"`
	ShowDisabledMessage bool          `json:"show_disabled_message"`
	WorkerPool          bool          `json:"worker_pool"`
	Held                []Entry       `json:"held"`
	Tier                presence.Tier `json:"tier"`
	Capabilities        []string      `json:"capabilities"`
}

// Status returns the Controller's current state.
func (c *Controller) Status() Status {
	var capabilities []string
	for _, capability := range c.adapter.Tier().Capabilities() {
		capabilities = append(capabilities, string(capability))
	}
	return Status{
		Enabled:             c.Enabled(),
		QueueTime:           c.options.QueueTime,
		TargetServer:        c.options.TargetServer,
		DisabledMessage:     c.options.DisabledMessage,
		ShowDisabledMessage: c.options.ShowDisabledMessage,
		WorkerPool:          c.pool != nil,
		Held:                c.store.Snapshot(),
		Tier:                c.adapter.Tier(),
		Capabilities:        capabilities,
	}
}

// startNotifications begins the periodic disabled notice, replacing
// any notice already running.
func (c *Controller) startNotifications() {
	c.stopNotifications()
	interval := c.options.NotificationInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	c.notification = c.loop.Repeating(time.Second, interval, c.notifyDisabled)
}

func (c *Controller) stopNotifications() {
	c.notification.Cancel()
	c.notification = nil
}

// notifyDisabled shows the disabled notice to every present user who
// is not privileged.
func (c *Controller) notifyDisabled() {
	if c.Enabled() {
		return
	}
	present, err := c.adapter.Present()
	if err != nil {
		c.check("list present users", presence.UserID{}, err)
		return
	}
	text := "&c" + c.options.DisabledMessage
	for _, user := range present {
		if user.Privileged {
			continue
		}
		c.notifier.ActionBarText(user.ID, text)
	}
}

// NotifyDisabled shows the disabled notice once, now.
func (c *Controller) NotifyDisabled() { c.notifyDisabled() }

// startThrottling begins the periodic region cap, replacing any cap
// already running. It only acts while someone is held and aggressive
// management is on.
func (c *Controller) startThrottling() {
	c.throttling.Cancel()
	c.throttling = nil
	interval := c.options.ChunkLimitInterval
	if !c.options.ChunkManagement || !c.options.AggressiveChunkManagement || interval <= 0 {
		return
	}
	c.throttling = c.loop.Repeating(5*time.Second, interval, func() {
		if c.store.Len() == 0 {
			return
		}
		c.throttler.Enforce(c.options.Reference, c.options.MaxLoadedChunks)
	})
}

// Throttler returns the Controller's region throttler.
func (c *Controller) Throttler() *Throttler { return c.throttler }
