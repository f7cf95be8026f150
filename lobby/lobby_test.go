// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package lobby

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/holdq/holdq/feedback"
	"github.com/holdq/holdq/hostlink"
	"github.com/holdq/holdq/lib/clock"
	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/lib/schedule"
	"github.com/holdq/holdq/presence"
	"github.com/holdq/holdq/presence/presencetest"
	"github.com/holdq/holdq/queue"
	"github.com/holdq/holdq/transfer"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type countingGateway struct {
	mu    sync.Mutex
	sends map[presence.UserID]int
}

func (g *countingGateway) SendHandoff(user presence.UserID, channel string, payload []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sends[user]++
	return nil
}

func (g *countingGateway) count(user presence.UserID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sends[user]
}

type fixture struct {
	t        *testing.T
	clock    *clock.FakeClock
	loop     *schedule.Loop
	host     *presencetest.Host
	notifier *feedback.Notifier
	sink     *metrics.Sink
	gateway  *countingGateway
	queue    *queue.Controller
	transfer *transfer.Protocol
	lobby    *Lobby
}

func newFixture(t *testing.T, enabled bool) *fixture {
	t.Helper()
	fake := clock.Fake(epoch)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := schedule.NewLoop(fake, logger)
	host := presencetest.NewHost()
	adapter, err := presence.Select(host)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	sink := metrics.New()
	notifier := feedback.NewNotifier(adapter, feedback.NewCatalog(nil),
		feedback.NewCues(nil, rand.New(rand.NewPCG(5, 6))), logger)
	gateway := &countingGateway{sends: make(map[presence.UserID]int)}

	controller := queue.NewController(queue.Params{
		Loop:     loop,
		Store:    queue.NewStore(),
		Adapter:  adapter,
		Notifier: notifier,
		Metrics:  sink,
		Logger:   logger,
		Options: queue.Options{
			Enabled:             enabled,
			QueueTime:           3,
			TickInterval:        250 * time.Millisecond,
			TicksPerSecond:      4,
			TargetServer:        "smp",
			Reference:           presence.Point{X: -1.5, Y: 64, Z: 0.5},
			SpectatorMode:       true,
			DisabledMessage:     "Queue is currently disabled",
			ShowDisabledMessage: true,
		},
	})
	protocol := transfer.NewProtocol(transfer.Params{
		Loop:     loop,
		Gateway:  gateway,
		Notifier: notifier,
		Metrics:  sink,
		Logger:   logger,
		Options: transfer.Options{
			MaxRetries:    3,
			RetryDelay:    5 * time.Second,
			Timeout:       15 * time.Second,
			SweepInterval: 5 * time.Second,
			Channel:       "BungeeCord",
		},
	})
	controller.AttachTransfer(protocol)
	protocol.AttachQueue(controller)

	lobby := New(Params{
		Loop:     loop,
		Queue:    controller,
		Transfer: protocol,
		Notifier: notifier,
		Metrics:  sink,
		Logger:   logger,
		Channel:  "BungeeCord",
	})
	return &fixture{
		t:        t,
		clock:    fake,
		loop:     loop,
		host:     host,
		notifier: notifier,
		sink:     sink,
		gateway:  gateway,
		queue:    controller,
		transfer: protocol,
		lobby:    lobby,
	}
}

// join connects a user through the lobby and runs the admission.
func (f *fixture) join(name string, privileged bool) presence.User {
	user := presence.User{ID: uuid.New(), Name: name, Privileged: privileged}
	f.host.Join(user)
	if f.lobby.HandleEvent(hostlink.Event{Type: hostlink.EventJoined, User: user}) {
		f.t.Fatal("joined event was cancelled")
	}
	f.loop.RunPending()
	return user
}

func (f *fixture) advance(d time.Duration) {
	f.clock.Advance(d)
	f.loop.RunPending()
}

// expire runs the user's countdown through to the transfer request.
func (f *fixture) expire(user presence.User) {
	f.t.Helper()
	for range 4 {
		f.advance(time.Second)
	}
	if !f.transfer.Outstanding(user.ID) {
		f.t.Fatalf("no transfer outstanding for %s after the countdown", user.Name)
	}
}

func TestJoinAdmitsWithCountdown(t *testing.T) {
	f := newFixture(t, true)
	alice := f.join("alice", false)

	if got := f.queue.Store().State(alice.ID); got != queue.HeldQueued {
		t.Fatalf("state = %s, want held_queued", got)
	}
	if got := f.sink.Get(metrics.PlayerJoins); got != 1 {
		t.Errorf("player_joins = %d, want 1", got)
	}
	if got := f.host.GameMode(alice.ID); got != presence.Spectator {
		t.Errorf("game mode = %s, want spectator", got)
	}
}

func TestPrivilegedUserBypassesQueue(t *testing.T) {
	f := newFixture(t, true)
	admin := f.join("admin", true)

	if f.queue.Store().Held(admin.ID) {
		t.Fatal("privileged user was held")
	}
	if got := f.sink.Get(metrics.PlayerJoins); got != 0 {
		t.Errorf("player_joins = %d, want 0 for a bypass", got)
	}
	if calls := f.host.CallCount("set_game_mode", admin.ID); calls != 0 {
		t.Errorf("set_game_mode calls = %d, want 0", calls)
	}
}

func TestJoinWhileDisabledHoldsWithNotice(t *testing.T) {
	f := newFixture(t, false)
	alice := f.join("alice", false)

	if got := f.queue.Store().State(alice.ID); got != queue.HeldNoQueue {
		t.Fatalf("state = %s, want held_no_queue", got)
	}
	title := feedback.TranslateColors(f.notifier.Catalog().Format(feedback.QueueDisabledTitle))
	want := title + "|" + feedback.TranslateColors("&eQueue is currently disabled")
	if got := f.host.DeliveriesOf(alice.ID, "title"); !slices.Equal(got, []string{want}) {
		t.Errorf("titles = %q, want %q", got, want)
	}

	f.advance(10 * time.Second)
	if f.transfer.Outstanding(alice.ID) {
		t.Fatal("held user was transferred while the policy is off")
	}
}

func TestMovementBlockedWhileHeld(t *testing.T) {
	f := newFixture(t, true)
	alice := f.join("alice", false)
	bob := presence.User{ID: uuid.New(), Name: "bob"}

	from := presence.Point{X: 0, Y: 64, Z: 0}
	step := hostlink.Event{Type: hostlink.EventMoved, User: alice, From: from, To: presence.Point{X: 1, Y: 64, Z: 0}}
	look := hostlink.Event{Type: hostlink.EventMoved, User: alice, From: from, To: from}

	if !f.lobby.HandleEvent(step) {
		t.Error("held user's step was not cancelled")
	}
	if f.lobby.HandleEvent(look) {
		t.Error("held user's look was cancelled")
	}
	step.User = bob
	if f.lobby.HandleEvent(step) {
		t.Error("free user's step was cancelled")
	}
	if got := f.sink.Get(metrics.BlockedMoves); got != 1 {
		t.Errorf("blocked_moves = %d, want 1", got)
	}
}

func TestTeleportByDaemonAllowed(t *testing.T) {
	f := newFixture(t, true)
	alice := f.join("alice", false)

	if f.lobby.HandleEvent(hostlink.Event{Type: hostlink.EventTeleported, User: alice, Cause: hostlink.CauseDaemon}) {
		t.Error("daemon teleport was cancelled")
	}
	if !f.lobby.HandleEvent(hostlink.Event{Type: hostlink.EventTeleported, User: alice, Cause: "ender_pearl"}) {
		t.Error("player teleport was not cancelled")
	}
	if got := f.sink.Get(metrics.BlockedTeleports); got != 1 {
		t.Errorf("blocked_teleports = %d, want 1", got)
	}
}

func TestWorldChangesBlockedWhileHeld(t *testing.T) {
	f := newFixture(t, true)
	alice := f.join("alice", false)

	tests := []struct {
		event   hostlink.EventType
		counter string
	}{
		{hostlink.EventInteracted, metrics.BlockedInteractions},
		{hostlink.EventPlaced, metrics.BlockedPlaces},
		{hostlink.EventBroke, metrics.BlockedBreaks},
	}
	for _, test := range tests {
		t.Run(string(test.event), func(t *testing.T) {
			if !f.lobby.HandleEvent(hostlink.Event{Type: test.event, User: alice}) {
				t.Fatalf("%s was not cancelled", test.event)
			}
			if got := f.sink.Get(test.counter); got != 1 {
				t.Errorf("%s = %d, want 1", test.counter, got)
			}
		})
	}
}

func TestEventsStillBlockedDuringTransfer(t *testing.T) {
	f := newFixture(t, true)
	alice := f.join("alice", false)
	f.expire(alice)

	if !f.lobby.HandleEvent(hostlink.Event{Type: hostlink.EventBroke, User: alice}) {
		t.Error("break during transfer was not cancelled")
	}
}

func TestCommandsBlockedOnlyDuringTransfer(t *testing.T) {
	f := newFixture(t, true)
	alice := f.join("alice", false)
	command := hostlink.Event{Type: hostlink.EventCommand, User: alice, Command: "spawn"}

	if f.lobby.HandleEvent(command) {
		t.Fatal("command cancelled before any transfer")
	}

	f.expire(alice)
	if !f.lobby.HandleEvent(command) {
		t.Fatal("command not cancelled during transfer")
	}
	f.loop.RunPending()
	blocked := feedback.TranslateColors(f.notifier.Catalog().Format(feedback.CommandsBlocked))
	if got := f.host.DeliveriesOf(alice.ID, "message"); !slices.Contains(got, blocked) {
		t.Errorf("messages = %q, want the commands-blocked notice", got)
	}

	alice.Privileged = true
	command.User = alice
	if f.lobby.HandleEvent(command) {
		t.Error("privileged user's command was cancelled")
	}
	if got := f.sink.Get(metrics.BlockedCommands); got != 1 {
		t.Errorf("blocked_commands = %d, want 1", got)
	}
}

func TestLeaveReleasesAndDropsAttempt(t *testing.T) {
	f := newFixture(t, true)
	alice := f.join("alice", false)
	f.expire(alice)

	f.lobby.HandleEvent(hostlink.Event{Type: hostlink.EventLeft, User: alice})
	f.loop.RunPending()

	if f.transfer.Outstanding(alice.ID) {
		t.Error("attempt survived the disconnect")
	}
	if f.queue.Store().Held(alice.ID) {
		t.Error("user still held after leaving")
	}
	if got := f.sink.Get(metrics.PlayerQuits); got != 1 {
		t.Errorf("player_quits = %d, want 1", got)
	}

	sends := f.gateway.count(alice.ID)
	f.advance(30 * time.Second)
	if got := f.gateway.count(alice.ID); got != sends {
		t.Errorf("handoffs after leaving = %d, want %d", got, sends)
	}
}

func TestRejoinStartsFresh(t *testing.T) {
	f := newFixture(t, true)
	alice := f.join("alice", false)
	f.expire(alice)

	// The host never reported the leave; the new join wins.
	f.lobby.HandleEvent(hostlink.Event{Type: hostlink.EventJoined, User: alice})
	f.loop.RunPending()

	if f.transfer.Outstanding(alice.ID) {
		t.Error("stale attempt survived the rejoin")
	}
	if got := f.queue.Store().State(alice.ID); got != queue.HeldQueued {
		t.Errorf("state = %s, want held_queued", got)
	}
}

func TestInboundFailureRetries(t *testing.T) {
	f := newFixture(t, true)
	alice := f.join("alice", false)
	f.expire(alice)

	f.lobby.HandleEvent(hostlink.Event{
		Type:    hostlink.EventMessage,
		User:    alice,
		Channel: "BungeeCord",
		Payload: []byte("ConnectFailed: server full"),
	})
	f.loop.RunPending()

	messages := f.host.DeliveriesOf(alice.ID, "message")
	if len(messages) == 0 || !strings.Contains(messages[len(messages)-1], "server full") {
		t.Fatalf("messages = %q, want the rejection reason", messages)
	}

	f.advance(5 * time.Second)
	if got := f.gateway.count(alice.ID); got != 2 {
		t.Errorf("handoffs = %d, want 2 after the retry", got)
	}
}

func TestInboundMessagesFiltered(t *testing.T) {
	f := newFixture(t, true)
	alice := f.join("alice", false)
	f.expire(alice)

	f.lobby.HandleEvent(hostlink.Event{Type: hostlink.EventMessage, User: alice, Channel: "other", Payload: []byte("ConnectFailed")})
	f.lobby.HandleEvent(hostlink.Event{Type: hostlink.EventMessage, User: alice, Channel: "BungeeCord", Payload: []byte("PlayerCount")})
	f.loop.RunPending()

	if got := f.sink.Get(metrics.MalformedMessages); got != 1 {
		t.Errorf("malformed_messages = %d, want 1", got)
	}
	if got := f.host.DeliveriesOf(alice.ID, "message"); len(got) != 0 {
		t.Errorf("messages = %q, want none", got)
	}
}
