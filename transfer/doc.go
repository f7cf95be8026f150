// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package transfer moves a user to the target server and retries when
// the move fails.
//
// Each user with an outstanding move has one [Attempt]. An attempt is
// Attempting while a request is in flight and Retrying while it waits
// out the retry delay. Two things end an in-flight request: the
// gateway reporting a failure, or the periodic sweep finding the
// request older than the timeout. Both feed the same decision, and the
// first to arrive moves the attempt out of Attempting so the second
// finds nothing to do. After MaxRetries failed requests the attempt is
// dropped and the user goes back to the start of the queue.
//
// There is no success signal. A successful move shows up as the user
// leaving, which the lobby reports through [Protocol.Disconnect].
//
// All state changes happen on the coordinating [schedule.Loop].
// [Protocol.Outstanding] and [Protocol.Entries] may be called from any
// goroutine, and [Protocol.GatewayFailure] posts to the loop.
package transfer
