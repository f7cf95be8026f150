// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package schedule provides holdq's coordinating execution context.
//
// A [Loop] owns a FIFO of functions and runs them one at a time. Every
// mutation of shared queue state and every call into the host (presence
// adapter, handoff gateway) happens inside a function run by the Loop,
// so those structures need no lock for writes. Other goroutines hand
// work to the Loop with [Loop.Post] (fire and forget) or [Loop.Do]
// (wait for completion).
//
// Timed work is scheduled with [Loop.Once] and [Loop.Repeating]. The
// timers themselves live on the injected clock; when one fires it only
// posts the callback, so scheduled callbacks also run on the Loop.
// Each returns a [Handle] whose Cancel guarantees the callback will
// not run again, even if a firing is already queued.
//
// [Loop.Go] runs a function off the Loop. Work started with Go must
// re-enter the Loop through Post before touching shared state.
//
// Production calls [Loop.Run] on a dedicated goroutine. Tests drive the
// Loop from the test goroutine with [Loop.RunPending], which also waits
// for outstanding Go work so that its follow-up posts are included:
//
//	c.Advance(time.Second)
//	loop.RunPending()
package schedule
