// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnsupported is returned by adapter operations the host's tier
// does not provide.
var ErrUnsupported = errors.New("presence: operation not supported by host")

// Capability names one host operation.
type Capability string

const (
	CapTeleport     Capability = "teleport"
	CapGameMode     Capability = "game_mode"
	CapViewDistance Capability = "view_distance"
	CapVisibility   Capability = "visibility"
	CapRegions      Capability = "regions"
	CapMessage      Capability = "message"
	CapActionBar    Capability = "action_bar"
	CapTitle        Capability = "title"
	CapSound        Capability = "sound"
)

// Tier is a named capability set.
type Tier string

const (
	TierFull     Tier = "full"
	TierStandard Tier = "standard"
	TierMinimal  Tier = "minimal"
)

var (
	minimalCapabilities = []Capability{CapTeleport, CapGameMode, CapMessage}

	standardCapabilities = append(slices.Clone(minimalCapabilities),
		CapVisibility, CapRegions, CapTitle, CapSound)

	fullCapabilities = append(slices.Clone(standardCapabilities),
		CapViewDistance, CapActionBar)
)

// Capabilities returns the operations every host of tier t provides.
func (t Tier) Capabilities() []Capability {
	switch t {
	case TierFull:
		return slices.Clone(fullCapabilities)
	case TierStandard:
		return slices.Clone(standardCapabilities)
	case TierMinimal:
		return slices.Clone(minimalCapabilities)
	}
	return nil
}

// TierFor returns the richest tier whose capabilities are all present
// in advertised.
func TierFor(advertised []Capability) (Tier, error) {
	for _, tier := range []Tier{TierFull, TierStandard, TierMinimal} {
		if containsAll(advertised, tier.Capabilities()) {
			return tier, nil
		}
	}
	return "", fmt.Errorf("host advertises %v, which lacks the minimal set %v", advertised, minimalCapabilities)
}

func containsAll(have, want []Capability) bool {
	for _, capability := range want {
		if !slices.Contains(have, capability) {
			return false
		}
	}
	return true
}
