// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package feedback

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/holdq/holdq/presence"
)

var defaultSounds = []presence.Sound{
	"entity.enderman.death",
	"entity.ender_dragon.ambient",
	"entity.ender_dragon.death",
	"block.end_portal_frame.fill",
	"block.end_portal.spawn",
	"block.end_gateway.spawn",
	"entity.lightning_bolt.thunder",
	"entity.lightning_bolt.impact",
	"entity.generic.explode",
}

// Cue is one sound to play.
type Cue struct {
	Sound  presence.Sound
	Volume float32
	Pitch  float32
}

// Cues picks a random sound with a random volume in [0.5, 1.0) and
// pitch in [0.8, 1.2). Cues is safe for concurrent use.
type Cues struct {
	mu     sync.Mutex
	sounds []presence.Sound
	random *rand.Rand
}

// NewCues returns a picker over names, or the built-in list when names
// is empty. random may be nil for a time-seeded source.
func NewCues(names []string, random *rand.Rand) *Cues {
	if random == nil {
		random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	cues := &Cues{random: random}
	cues.Replace(names)
	return cues
}

// Replace swaps the sound list.
func (c *Cues) Replace(names []string) {
	sounds := slices.Clone(defaultSounds)
	if len(names) > 0 {
		sounds = make([]presence.Sound, len(names))
		for i, name := range names {
			sounds[i] = presence.Sound(name)
		}
	}
	c.mu.Lock()
	c.sounds = sounds
	c.mu.Unlock()
}

// Pick returns the next cue.
func (c *Cues) Pick() Cue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Cue{
		Sound:  c.sounds[c.random.IntN(len(c.sounds))],
		Volume: 0.5 + c.random.Float32()*0.5,
		Pitch:  0.8 + c.random.Float32()*0.4,
	}
}
