// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"fmt"

	"github.com/google/uuid"
)

// UserID identifies a user across the host and holdq.
type UserID = uuid.UUID

// ParseUserID parses the canonical textual form of a user ID.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return id, nil
}

// User is a present user.
type User struct {
	ID   UserID `cbor:"id"`
	Name string `cbor:"name"`

	// Privileged users bypass the queue and the command block.
	Privileged bool `cbor:"privileged,omitempty"`
}

// GameMode is a host game mode.
type GameMode string

const (
	Survival  GameMode = "survival"
	Creative  GameMode = "creative"
	Adventure GameMode = "adventure"
	Spectator GameMode = "spectator"
)

// Point is a location in the holding area.
type Point struct {
	X float64 `cbor:"x"`
	Y float64 `cbor:"y"`
	Z float64 `cbor:"z"`
}

// RegionSize is the edge length of a region in blocks.
const RegionSize = 16

// Region is a loaded square of the shared world, addressed by region
// coordinates.
type Region struct {
	X int `cbor:"x"`
	Z int `cbor:"z"`
}

// Center returns the horizontal block coordinates of the region's
// centre.
func (r Region) Center() (x, z float64) {
	return float64(r.X*RegionSize + RegionSize/2), float64(r.Z*RegionSize + RegionSize/2)
}

// RegionOf returns the region containing p.
func RegionOf(p Point) Region {
	return Region{X: floorDiv(p.X), Z: floorDiv(p.Z)}
}

func floorDiv(coordinate float64) int {
	block := int(coordinate)
	if float64(block) > coordinate {
		block--
	}
	if block >= 0 {
		return block / RegionSize
	}
	return -((-block + RegionSize - 1) / RegionSize)
}

// Sound names a host sound effect.
type Sound string
