// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import "time"

// Host is the raw operation set of a game host. Calls block until the
// host answers. Implementations bound each call with their own timeout
// and fail every call once the host is gone.
//
// Only the coordinating loop calls a Host.
type Host interface {
	// Capabilities returns the operations the host advertised when it
	// connected.
	Capabilities() []Capability

	// Present returns every user currently online.
	Present() ([]User, error)

	Teleport(user UserID, to Point) error

	// SetGameMode applies mode and returns the mode it replaced.
	SetGameMode(user UserID, mode GameMode) (GameMode, error)

	// SetViewDistance applies distance and returns the distance it
	// replaced.
	SetViewDistance(user UserID, distance int) (int, error)

	// SetVisible shows or hides a and b to each other.
	SetVisible(a, b UserID, visible bool) error

	LoadedRegions() ([]Region, error)
	UnloadRegion(region Region) error

	SendMessage(user UserID, text string) error
	ActionBar(user UserID, text string) error
	Title(user UserID, title Title) error
	PlaySound(user UserID, sound Sound, volume, pitch float32) error
}

// Title is a large centred message with fade timing.
type Title struct {
	Title    string        `cbor:"title"`
	Subtitle string        `cbor:"subtitle,omitempty"`
	FadeIn   time.Duration `cbor:"fade_in"`
	Stay     time.Duration `cbor:"stay"`
	FadeOut  time.Duration `cbor:"fade_out"`
}
