// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics is the process-wide observability sink.
//
// A Sink is created once when the daemon starts and handed to every
// component that records events. Counters are monotonic and are never
// reset while the process runs; a new process starts from zero. There
// are no package-level counters: a component that was not given a Sink
// cannot record anything, which keeps tests isolated from each other.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counter names recorded by holdq components.
const (
	PlayerJoins         = "player_joins"
	PlayerQuits         = "player_quits"
	PlayersQueued       = "players_queued"
	PlayersFrozen       = "players_frozen"
	PlayersUnqueued     = "players_unqueued"
	ConnectionAttempts  = "connection_attempts"
	ConnectionRetries   = "connection_retries"
	MaxRetriesReached   = "max_retries_reached"
	ChunksUnloaded      = "chunks_unloaded"
	BlockedMoves        = "blocked_moves"
	BlockedTeleports    = "blocked_teleports"
	BlockedInteractions = "blocked_interactions"
	BlockedBreaks       = "blocked_breaks"
	BlockedPlaces       = "blocked_places"
	BlockedCommands     = "blocked_commands"
	MalformedMessages   = "malformed_messages"
	ManualSends         = "manual_sends"
	MassReleasedPlayers = "mass_released_players"
	MassReleaseCount    = "mass_release_count"
	SoundsPlayed        = "sounds_played"
	Errors              = "errors"

	// Operator actions.
	QueueEnabled          = "queue_enabled"
	QueueDisabled         = "queue_disabled"
	ConfigReloads         = "config_reloads"
	TimeChanges           = "time_changes"
	MessageChanges        = "message_changes"
	NotificationsEnabled  = "notifications_enabled"
	NotificationsDisabled = "notifications_disabled"
	StatusChecks          = "status_checks"
)

// Sink holds named counters. The zero value is not usable; call New.
// A nil *Sink discards everything, so optional wiring stays simple.
type Sink struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
}

// New returns an empty Sink.
func New() *Sink {
	return &Sink{counters: make(map[string]*atomic.Int64)}
}

// Inc adds one to the named counter.
func (s *Sink) Inc(name string) { s.Add(name, 1) }

// Add adds delta to the named counter. Negative deltas are ignored.
func (s *Sink) Add(name string, delta int64) {
	if s == nil || delta <= 0 {
		return
	}
	s.counter(name).Add(delta)
}

// Get returns the current value of the named counter, zero if it has
// never been recorded.
func (s *Sink) Get(name string) int64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	counter := s.counters[name]
	s.mu.RUnlock()
	if counter == nil {
		return 0
	}
	return counter.Load()
}

// Snapshot returns a copy of every counter.
func (s *Sink) Snapshot() map[string]int64 {
	snapshot := make(map[string]int64)
	if s == nil {
		return snapshot
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, counter := range s.counters {
		snapshot[name] = counter.Load()
	}
	return snapshot
}

// Names returns the recorded counter names in sorted order.
func (s *Sink) Names() []string {
	snapshot := s.Snapshot()
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Sink) counter(name string) *atomic.Int64 {
	s.mu.RLock()
	counter := s.counters[name]
	s.mu.RUnlock()
	if counter != nil {
		return counter
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if counter = s.counters[name]; counter == nil {
		counter = new(atomic.Int64)
		s.counters[name] = counter
	}
	return counter
}
