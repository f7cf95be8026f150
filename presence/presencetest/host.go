// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package presencetest provides an in-memory presence.Host that
// records every call, for tests of the packages that drive users.
package presencetest

import (
	"fmt"
	"slices"
	"sync"

	"github.com/holdq/holdq/presence"
)

// Defaults applied to users added without explicit state.
const (
	DefaultGameMode     = presence.Survival
	DefaultViewDistance = 10
)

// Call is one recorded Host call.
type Call struct {
	Op     string
	User   presence.UserID
	Detail string
}

// Delivery is one piece of audience output received by a user.
type Delivery struct {
	Kind string // "message", "action_bar", "title", or "sound"
	Text string
}

// Host is a recording presence.Host. It is safe for concurrent use.
type Host struct {
	mu           sync.Mutex
	capabilities []presence.Capability
	users        []presence.User
	gameModes    map[presence.UserID]presence.GameMode
	distances    map[presence.UserID]int
	positions    map[presence.UserID]presence.Point
	hidden       map[[2]presence.UserID]bool
	regions      []presence.Region
	deliveries   map[presence.UserID][]Delivery
	calls        []Call
	failures     map[string]error
}

// NewHost returns a Host advertising capabilities, or every capability
// of the full tier when none are given.
func NewHost(capabilities ...presence.Capability) *Host {
	if len(capabilities) == 0 {
		capabilities = presence.TierFull.Capabilities()
	}
	return &Host{
		capabilities: capabilities,
		gameModes:    make(map[presence.UserID]presence.GameMode),
		distances:    make(map[presence.UserID]int),
		positions:    make(map[presence.UserID]presence.Point),
		hidden:       make(map[[2]presence.UserID]bool),
		deliveries:   make(map[presence.UserID][]Delivery),
		failures:     make(map[string]error),
	}
}

// Join adds a present user with the default game mode and view
// distance.
func (h *Host) Join(user presence.User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users = append(h.users, user)
	h.gameModes[user.ID] = DefaultGameMode
	h.distances[user.ID] = DefaultViewDistance
}

// Leave removes a user from the present set. Recorded state is kept
// so tests can inspect it afterwards.
func (h *Host) Leave(id presence.UserID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users = slices.DeleteFunc(h.users, func(user presence.User) bool { return user.ID == id })
}

// SetRegions replaces the loaded region list, in enumeration order.
func (h *Host) SetRegions(regions []presence.Region) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.regions = slices.Clone(regions)
}

// Fail makes every later call of op return err. A nil err clears it.
func (h *Host) Fail(op string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.failures, op)
		return
	}
	h.failures[op] = err
}

// GameMode returns the user's current game mode.
func (h *Host) GameMode(id presence.UserID) presence.GameMode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gameModes[id]
}

// ViewDistance returns the user's current view distance.
func (h *Host) ViewDistance(id presence.UserID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.distances[id]
}

// Position returns where the user was last teleported.
func (h *Host) Position(id presence.UserID) (presence.Point, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	point, ok := h.positions[id]
	return point, ok
}

// Hidden reports whether a and b are hidden from each other.
func (h *Host) Hidden(a, b presence.UserID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hidden[pair(a, b)]
}

// Regions returns the currently loaded regions.
func (h *Host) Regions() []presence.Region {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.regions)
}

// Deliveries returns the audience output the user has received.
func (h *Host) Deliveries(id presence.UserID) []Delivery {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.deliveries[id])
}

// DeliveriesOf returns the text of the user's deliveries of kind.
func (h *Host) DeliveriesOf(id presence.UserID, kind string) []string {
	var texts []string
	for _, delivery := range h.Deliveries(id) {
		if delivery.Kind == kind {
			texts = append(texts, delivery.Text)
		}
	}
	return texts
}

// Calls returns every recorded call in order.
func (h *Host) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.calls)
}

// CallCount returns how many times op was called for user.
func (h *Host) CallCount(op string, user presence.UserID) int {
	count := 0
	for _, call := range h.Calls() {
		if call.Op == op && call.User == user {
			count++
		}
	}
	return count
}

// Reset forgets recorded calls and deliveries.
func (h *Host) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
	h.deliveries = make(map[presence.UserID][]Delivery)
}

func pair(a, b presence.UserID) [2]presence.UserID {
	if a.String() > b.String() {
		a, b = b, a
	}
	return [2]presence.UserID{a, b}
}

// record logs a call and returns the configured failure for op. Must
// hold h.mu.
func (h *Host) record(op string, user presence.UserID, detail string) error {
	h.calls = append(h.calls, Call{Op: op, User: user, Detail: detail})
	return h.failures[op]
}

func (h *Host) Capabilities() []presence.Capability {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.capabilities)
}

func (h *Host) Present() ([]presence.User, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record("present", presence.UserID{}, ""); err != nil {
		return nil, err
	}
	return slices.Clone(h.users), nil
}

func (h *Host) Teleport(user presence.UserID, to presence.Point) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record("teleport", user, fmt.Sprintf("%v", to)); err != nil {
		return err
	}
	h.positions[user] = to
	return nil
}

func (h *Host) SetGameMode(user presence.UserID, mode presence.GameMode) (presence.GameMode, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record("set_game_mode", user, string(mode)); err != nil {
		return "", err
	}
	previous := h.gameModes[user]
	h.gameModes[user] = mode
	return previous, nil
}

func (h *Host) SetViewDistance(user presence.UserID, distance int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record("set_view_distance", user, fmt.Sprint(distance)); err != nil {
		return 0, err
	}
	previous := h.distances[user]
	h.distances[user] = distance
	return previous, nil
}

func (h *Host) SetVisible(a, b presence.UserID, visible bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	op := "hide"
	if visible {
		op = "show"
	}
	if err := h.record(op, a, b.String()); err != nil {
		return err
	}
	if visible {
		delete(h.hidden, pair(a, b))
	} else {
		h.hidden[pair(a, b)] = true
	}
	return nil
}

func (h *Host) LoadedRegions() ([]presence.Region, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record("loaded_regions", presence.UserID{}, ""); err != nil {
		return nil, err
	}
	return slices.Clone(h.regions), nil
}

func (h *Host) UnloadRegion(region presence.Region) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record("unload_region", presence.UserID{}, fmt.Sprintf("%d,%d", region.X, region.Z)); err != nil {
		return err
	}
	h.regions = slices.DeleteFunc(h.regions, func(r presence.Region) bool { return r == region })
	return nil
}

func (h *Host) SendMessage(user presence.UserID, text string) error {
	return h.deliver("message", user, text)
}

func (h *Host) ActionBar(user presence.UserID, text string) error {
	return h.deliver("action_bar", user, text)
}

func (h *Host) Title(user presence.UserID, title presence.Title) error {
	text := title.Title
	if title.Subtitle != "" {
		text += "|" + title.Subtitle
	}
	return h.deliver("title", user, text)
}

func (h *Host) PlaySound(user presence.UserID, sound presence.Sound, volume, pitch float32) error {
	return h.deliver("sound", user, string(sound))
}

func (h *Host) deliver(kind string, user presence.UserID, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(kind, user, text); err != nil {
		return err
	}
	h.deliveries[user] = append(h.deliveries[user], Delivery{Kind: kind, Text: text})
	return nil
}
