// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package hostlink

import "github.com/holdq/holdq/presence"

// EventType names something that happened to a user on the host.
type EventType string

const (
	EventJoined     EventType = "joined"
	EventLeft       EventType = "left"
	EventMoved      EventType = "moved"
	EventTeleported EventType = "teleported"
	EventInteracted EventType = "interacted"
	EventPlaced     EventType = "placed"
	EventBroke      EventType = "broke"
	EventCommand    EventType = "command"
	EventMessage    EventType = "message"
)

// CauseDaemon is the teleport cause the shim reports for teleports
// holdqd asked for.
const CauseDaemon = "plugin"

// Event is one host event.
type Event struct {
	Type EventType     `cbor:"type"`
	User presence.User `cbor:"user"`

	// From and To are set on moved and teleported.
	From presence.Point `cbor:"from"`
	To   presence.Point `cbor:"to"`

	// Cause is set on teleported.
	Cause string `cbor:"cause,omitempty"`

	// Command is set on command, without the leading slash.
	Command string `cbor:"command,omitempty"`

	// Channel and Payload are set on message.
	Channel string `cbor:"channel,omitempty"`
	Payload []byte `cbor:"payload,omitempty"`
}

// EventHandler decides events. HandleEvent runs on the link's reader
// goroutine and must not block on the coordinating loop. It reports
// whether the host should cancel the event.
type EventHandler interface {
	HandleEvent(event Event) (cancel bool)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(event Event) bool

func (f EventHandlerFunc) HandleEvent(event Event) bool { return f(event) }
