// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package queue holds users in the lobby and counts them down to their
// transfer.
//
// The [Store] is the record of who is held. A user is held exactly
// when the Store has a [Record] for them. Each record carries the
// user's lifecycle [State], the countdown, the game mode and view
// distance saved on admission, and the handle of the one countdown
// task running for them.
//
// The [Controller] owns every write to the Store. It admits users
// (overriding game mode, view distance, and visibility, and teleporting
// them to the reference point), runs their countdown, hands expired
// users to the transfer protocol, and releases users by restoring what
// admission saved. Restoration happens at most once per admission
// because the record, and with it the saved values, is removed before
// anything is restored.
//
// The [Throttler] caps the number of loaded regions around the
// reference point while anyone is held.
//
// # Threading
//
// Every Controller and Throttler method runs on the coordinating
// schedule.Loop. Store reads (Held, State, Len, Snapshot) are safe from
// any goroutine; lobby event handlers use them to decide cancellation
// without a round trip through the loop.
//
// In dedicated-pool mode a countdown runs on a workerpool goroutine
// that only sleeps and posts: every visible step, and the expiry, is
// executed on the loop, after checking that the countdown has not
// been cancelled in the meantime.
package queue
