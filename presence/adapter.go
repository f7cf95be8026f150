// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"slices"
	"strings"
)

// Adapter is the capability-checked operation set holdq uses. Each
// tier has its own implementation; see the package documentation.
type Adapter interface {
	Tier() Tier
	Supports(capability Capability) bool

	Present() ([]User, error)
	Teleport(user UserID, to Point) error
	SetGameMode(user UserID, mode GameMode) (GameMode, error)
	SetViewDistance(user UserID, distance int) (int, error)
	Hide(first, second UserID) error
	Show(first, second UserID) error
	LoadedRegions() ([]Region, error)
	UnloadRegion(region Region) error

	SendMessage(user UserID, text string) error
	ActionBar(user UserID, text string) error
	Title(user UserID, title Title) error
	PlaySound(user UserID, sound Sound, volume, pitch float32) error
}

// Select returns the adapter for host's advertised tier. It is called
// once, when the host connects.
func Select(host Host) (Adapter, error) {
	tier, err := TierFor(host.Capabilities())
	if err != nil {
		return nil, err
	}
	base := baseAdapter{host: host, capabilities: tier.Capabilities()}
	switch tier {
	case TierFull:
		return &fullAdapter{baseAdapter: base}, nil
	case TierStandard:
		return &standardAdapter{baseAdapter: base}, nil
	default:
		return &minimalAdapter{baseAdapter: base}, nil
	}
}

// baseAdapter forwards every operation to the host.
type baseAdapter struct {
	host         Host
	capabilities []Capability
}

func (a *baseAdapter) Supports(capability Capability) bool {
	return slices.Contains(a.capabilities, capability)
}

func (a *baseAdapter) Present() ([]User, error) { return a.host.Present() }

func (a *baseAdapter) Teleport(user UserID, to Point) error {
	return a.host.Teleport(user, to)
}

func (a *baseAdapter) SetGameMode(user UserID, mode GameMode) (GameMode, error) {
	return a.host.SetGameMode(user, mode)
}

func (a *baseAdapter) SetViewDistance(user UserID, distance int) (int, error) {
	return a.host.SetViewDistance(user, distance)
}

func (a *baseAdapter) Hide(first, second UserID) error {
	return a.host.SetVisible(first, second, false)
}

func (a *baseAdapter) Show(first, second UserID) error {
	return a.host.SetVisible(first, second, true)
}

func (a *baseAdapter) LoadedRegions() ([]Region, error) { return a.host.LoadedRegions() }

func (a *baseAdapter) UnloadRegion(region Region) error { return a.host.UnloadRegion(region) }

func (a *baseAdapter) SendMessage(user UserID, text string) error {
	return a.host.SendMessage(user, text)
}

func (a *baseAdapter) ActionBar(user UserID, text string) error {
	return a.host.ActionBar(user, text)
}

func (a *baseAdapter) Title(user UserID, title Title) error {
	return a.host.Title(user, title)
}

func (a *baseAdapter) PlaySound(user UserID, sound Sound, volume, pitch float32) error {
	return a.host.PlaySound(user, sound, volume, pitch)
}

type fullAdapter struct{ baseAdapter }

func (*fullAdapter) Tier() Tier { return TierFull }

type standardAdapter struct{ baseAdapter }

func (*standardAdapter) Tier() Tier { return TierStandard }

func (*standardAdapter) SetViewDistance(UserID, int) (int, error) { return 0, ErrUnsupported }

// ActionBar falls back to chat.
func (a *standardAdapter) ActionBar(user UserID, text string) error {
	return a.host.SendMessage(user, text)
}

type minimalAdapter struct{ baseAdapter }

func (*minimalAdapter) Tier() Tier { return TierMinimal }

func (*minimalAdapter) SetViewDistance(UserID, int) (int, error) { return 0, ErrUnsupported }
func (*minimalAdapter) Hide(UserID, UserID) error                { return ErrUnsupported }
func (*minimalAdapter) Show(UserID, UserID) error                { return ErrUnsupported }
func (*minimalAdapter) LoadedRegions() ([]Region, error)         { return nil, ErrUnsupported }
func (*minimalAdapter) UnloadRegion(Region) error                { return ErrUnsupported }

func (*minimalAdapter) PlaySound(UserID, Sound, float32, float32) error {
	return ErrUnsupported
}

// ActionBar falls back to chat.
func (a *minimalAdapter) ActionBar(user UserID, text string) error {
	return a.host.SendMessage(user, text)
}

// Title falls back to one chat line.
func (a *minimalAdapter) Title(user UserID, title Title) error {
	text := title.Title
	if title.Subtitle != "" {
		text = strings.TrimSpace(text + " " + title.Subtitle)
	}
	return a.host.SendMessage(user, text)
}
