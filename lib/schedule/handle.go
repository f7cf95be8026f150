// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"sync"
	"sync/atomic"

	"github.com/holdq/holdq/lib/clock"
)

// Handle is the cancellation token for scheduled work. The zero value
// is a valid, uncancelled handle with no timer attached, which is what
// cooperative workers use: they poll Cancelled between iterations.
type Handle struct {
	cancelled atomic.Bool

	mu       sync.Mutex
	timer    *clock.Timer
	sequence uint64
}

// NewHandle returns a handle not bound to any timer.
func NewHandle() *Handle { return &Handle{} }

// Cancel stops the pending timer, if any, and marks the handle so that
// firings already posted to the Loop are discarded. Safe to call more
// than once, from any goroutine, and on a nil handle.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.cancelled.Store(true)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
	}
}

// Cancelled reports whether Cancel has been called.
func (h *Handle) Cancelled() bool {
	return h != nil && h.cancelled.Load()
}

// attach records the timer armed for the given firing sequence. A
// periodic schedule re-arms from inside the timer callback, which can
// race the arming call returning, so only the newest timer is kept.
func (h *Handle) attach(timer *clock.Timer, sequence uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled.Load() {
		timer.Stop()
		return
	}
	if sequence >= h.sequence {
		h.timer = timer
		h.sequence = sequence
	}
}
