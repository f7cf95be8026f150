// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"fmt"
	"sort"
	"sync"

	"github.com/holdq/holdq/lib/schedule"
	"github.com/holdq/holdq/presence"
)

// State is a user's position in the queue lifecycle.
type State int

const (
	// Unheld users have no record.
	Unheld State = iota

	// HeldNoQueue users are held without a countdown; they joined
	// while the admission policy was off.
	HeldNoQueue

	// HeldQueued users are counting down.
	HeldQueued

	// TransferPending users finished their countdown and are waiting
	// on the transfer protocol.
	TransferPending
)

var stateNames = [...]string{
	Unheld:          "unheld",
	HeldNoQueue:     "held",
	HeldQueued:      "queued",
	TransferPending: "transfer_pending",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = State(state)
			return nil
		}
	}
	return fmt.Errorf("unknown queue state %q", text)
}

// Record is one held user. Fields are written only on the
// coordinating loop, under the Store's lock.
type Record struct {
	User presence.UserID
	Name string

	State State

	// CountdownRemaining is the number of seconds still to show.
	CountdownRemaining int

	// SavedGameMode and SavedViewDistance hold the values replaced on
	// admission; nil when nothing was replaced or it has already been
	// restored.
	SavedGameMode     *presence.GameMode
	SavedViewDistance *int

	// hidden is set when visibility was overridden on admission.
	hidden bool

	// ticks counts coordinator ticks since the countdown started.
	ticks int

	// task is the countdown; nil when none is running.
	task *schedule.Handle

	// cycle numbers admissions so that work scheduled for an earlier
	// admission of the same user can recognise itself as stale.
	cycle uint64
}

// Entry is a read-only view of a Record.
type Entry struct {
	User      presence.UserID `json:"user"`
	Name      string          `json:"name,omitempty"`
	State     State           `json:"state"`
	Remaining int             `json:"remaining"`
}

// Store is the set of held users.
type Store struct {
	mu      sync.RWMutex
	records map[presence.UserID]*Record
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[presence.UserID]*Record)}
}

// Held reports whether user has a record.
func (s *Store) Held(user presence.UserID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, held := s.records[user]
	return held
}

// State returns the user's state, Unheld when there is no record.
func (s *Store) State(user presence.UserID) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, held := s.records[user]; held {
		return record.State
	}
	return Unheld
}

// Len returns the number of held users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Snapshot returns every record in admission order.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(s.records))
	for _, record := range s.ordered() {
		entries = append(entries, Entry{
			User:      record.User,
			Name:      record.Name,
			State:     record.State,
			Remaining: record.CountdownRemaining,
		})
	}
	return entries
}

// ordered returns records sorted by admission. Must hold s.mu.
func (s *Store) ordered() []*Record {
	records := make([]*Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].cycle < records[j].cycle })
	return records
}

// The methods below are used by the Controller on the loop.

func (s *Store) insert(record *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.User] = record
}

func (s *Store) lookup(user presence.UserID) *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[user]
}

func (s *Store) remove(user presence.UserID) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.records[user]
	delete(s.records, user)
	return record
}

// update runs mutate under the write lock.
func (s *Store) update(mutate func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate()
}

func (s *Store) all() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ordered()
}
