// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package hostlink

import (
	"github.com/holdq/holdq/lib/codec"
	"github.com/holdq/holdq/presence"
)

// Kind distinguishes frames.
type Kind string

const (
	KindHello Kind = "hello"
	KindCall  Kind = "call"
	KindReply Kind = "reply"
	KindEvent Kind = "event"
	KindAck   Kind = "ack"
)

// Operations the daemon calls on the shim.
const (
	OpPresent         = "present"
	OpTeleport        = "teleport"
	OpSetGameMode     = "set_game_mode"
	OpSetViewDistance = "set_view_distance"
	OpSetVisible      = "set_visible"
	OpLoadedRegions   = "loaded_regions"
	OpUnloadRegion    = "unload_region"
	OpSendMessage     = "send_message"
	OpActionBar       = "action_bar"
	OpTitle           = "title"
	OpPlaySound       = "play_sound"
	OpSendHandoff     = "send_handoff"
)

// Frame is the unit on the wire. Which fields are set depends on Kind.
type Frame struct {
	Kind Kind   `cbor:"kind"`
	ID   uint64 `cbor:"id,omitempty"`

	// Capabilities is set on hello.
	Capabilities []presence.Capability `cbor:"capabilities,omitempty"`

	// Op and Args are set on call.
	Op   string           `cbor:"op,omitempty"`
	Args codec.RawMessage `cbor:"args,omitempty"`

	// Result, Error, and Unsupported are set on reply. Unsupported
	// means the host cannot perform Op.
	Result      codec.RawMessage `cbor:"result,omitempty"`
	Error       string           `cbor:"error,omitempty"`
	Unsupported bool             `cbor:"unsupported,omitempty"`

	// Event is set on event.
	Event *Event `cbor:"event,omitempty"`

	// Cancel is set on ack.
	Cancel bool `cbor:"cancel,omitempty"`
}

// UserArgs name the user an operation applies to.
type UserArgs struct {
	User presence.UserID `cbor:"user"`
}

type TeleportArgs struct {
	User presence.UserID `cbor:"user"`
	To   presence.Point  `cbor:"to"`
}

type GameModeArgs struct {
	User presence.UserID   `cbor:"user"`
	Mode presence.GameMode `cbor:"mode"`
}

type ViewDistanceArgs struct {
	User     presence.UserID `cbor:"user"`
	Distance int             `cbor:"distance"`
}

type VisibleArgs struct {
	User    presence.UserID `cbor:"user"`
	Other   presence.UserID `cbor:"other"`
	Visible bool            `cbor:"visible"`
}

type RegionArgs struct {
	Region presence.Region `cbor:"region"`
}

type TextArgs struct {
	User presence.UserID `cbor:"user"`
	Text string          `cbor:"text"`
}

type TitleArgs struct {
	User  presence.UserID `cbor:"user"`
	Title presence.Title  `cbor:"title"`
}

type SoundArgs struct {
	User   presence.UserID `cbor:"user"`
	Sound  presence.Sound  `cbor:"sound"`
	Volume float32         `cbor:"volume"`
	Pitch  float32         `cbor:"pitch"`
}

type HandoffArgs struct {
	User    presence.UserID `cbor:"user"`
	Channel string          `cbor:"channel"`
	Payload []byte          `cbor:"payload"`
}

// PreviousResult is the reply to operations that return the value
// they replaced.
type PreviousResult[T any] struct {
	Previous T `cbor:"previous"`
}
