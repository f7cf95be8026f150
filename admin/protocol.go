// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package admin

import (
	"time"

	"github.com/holdq/holdq/presence"
	"github.com/holdq/holdq/queue"
	"github.com/holdq/holdq/transfer"
)

// Action names.
const (
	ActionStatus     = "status"
	ActionToggle     = "toggle"
	ActionSetTime    = "set-time"
	ActionSetMessage = "set-message"
	ActionNotify     = "notify"
	ActionSend       = "send"
	ActionRelease    = "release"
	ActionReload     = "reload"
)

// StatusResponse is the reply to status.
type StatusResponse struct {
	Queue      queue.Status     `cbor:"queue" json:"queue"`
	Transfers  []transfer.Entry `cbor:"transfers" json:"transfers"`
	Connection ConnectionStatus `cbor:"connection" json:"connection"`
	Metrics    map[string]int64 `cbor:"metrics" json:"metrics"`
	StartedAt  time.Time        `cbor:"started_at" json:"started_at"`
}

// ConnectionStatus summarises the handoff retry settings.
type ConnectionStatus struct {
	MaxRetries int           `cbor:"max_retries" json:"max_retries"`
	RetryDelay time.Duration `cbor:"retry_delay" json:"retry_delay"`
	Timeout    time.Duration `cbor:"timeout" json:"timeout"`
	Channel    string        `cbor:"channel" json:"channel"`
}

// ToggleRequest sets the admission policy. A nil Enabled flips it.
type ToggleRequest struct {
	Enabled *bool `cbor:"enabled,omitempty" json:"enabled,omitempty"`
}

// ToggleResponse reports the policy after a toggle.
type ToggleResponse struct {
	Enabled bool `cbor:"enabled" json:"enabled"`

	// Queued is the number of held users moved into the countdown.
	Queued int `cbor:"queued" json:"queued"`
}

// SetTimeRequest sets the countdown length.
type SetTimeRequest struct {
	Seconds int `cbor:"seconds" json:"seconds"`
}

// SetTimeResponse reports the stored length after clamping.
type SetTimeResponse struct {
	Seconds int `cbor:"seconds" json:"seconds"`
}

// SetMessageRequest replaces one message. An empty Key sets the
// disabled notice.
type SetMessageRequest struct {
	Key     string `cbor:"key,omitempty" json:"key,omitempty"`
	Message string `cbor:"message" json:"message"`
}

// NotifyRequest turns the disabled notice on or off. A nil Show flips
// it.
type NotifyRequest struct {
	Show *bool `cbor:"show,omitempty" json:"show,omitempty"`
}

// NotifyResponse reports the notice setting.
type NotifyResponse struct {
	Show bool `cbor:"show" json:"show"`
}

// UserRequest names a user by UUID or by name.
type UserRequest struct {
	User string `cbor:"user" json:"user"`
}

// SendResponse reports a manual transfer.
type SendResponse struct {
	User   presence.UserID `cbor:"user" json:"user"`
	Name   string          `cbor:"name,omitempty" json:"name,omitempty"`
	Target string          `cbor:"target" json:"target"`
}

// ReleaseResponse reports a manual release.
type ReleaseResponse struct {
	User     presence.UserID `cbor:"user" json:"user"`
	Released bool            `cbor:"released" json:"released"`
}

// ReloadResponse reports a reload.
type ReloadResponse struct {
	// Adjustments are the values clamped while loading.
	Adjustments []string `cbor:"adjustments,omitempty" json:"adjustments,omitempty"`
}
