// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"fmt"
)

// ErrHandoffTimeout is the cause recorded when no outcome arrived
// within the attempt timeout.
var ErrHandoffTimeout = errors.New("transfer: handoff timed out")

// ErrMaxRetriesExceeded is logged when a user's transfer terminally
// fails.
var ErrMaxRetriesExceeded = errors.New("transfer: maximum attempts reached")

// SendError wraps a failure to issue the handoff request at all.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("transfer: sending handoff: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// RejectedError is a failure the gateway reported for an issued
// request.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "transfer: gateway rejected handoff: " + e.Reason
}

// userReason renders cause for the connection_error message.
func userReason(cause error) string {
	var rejected *RejectedError
	if errors.As(cause, &rejected) {
		return rejected.Reason
	}
	var send *SendError
	if errors.As(cause, &send) {
		return "Internal error: " + send.Err.Error()
	}
	return cause.Error()
}
