// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source used by every holdq component
// that waits, schedules, or timestamps.
//
// Countdown ticks, the transfer timeout sweep, retry delays, and the
// region throttler all run against a Clock rather than the time
// package. Production wires Real(); tests wire Fake() and drive time
// explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	loop := schedule.NewLoop(c, logger)
//	// ... admit a user ...
//	c.Advance(10250 * time.Millisecond) // every tick in the window fires
//	loop.RunPending()                   // run what the ticks posted
//
// # Fake time
//
// FakeClock never moves on its own. Advance walks forward through the
// pending deadlines one at a time, setting Now to each deadline before
// firing it, so a callback that re-arms itself with AfterFunc sees the
// time it fired at and its next deadline is honoured within the same
// Advance. Use WaitForTimers when another goroutine must register a
// Sleep or timer before the test advances.
package clock
