// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/holdq/holdq/feedback"
	"github.com/holdq/holdq/lib/clock"
	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/lib/schedule"
	"github.com/holdq/holdq/lib/workerpool"
	"github.com/holdq/holdq/presence"
	"github.com/holdq/holdq/presence/presencetest"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// reference is the centre of region (0,0).
var reference = presence.Point{X: 8, Y: 64, Z: 8}

type transferRequest struct {
	user   presence.UserID
	target string
}

type recordingTransfer struct {
	requests []transferRequest
}

func (r *recordingTransfer) RequestTransfer(user presence.UserID, target string) {
	r.requests = append(r.requests, transferRequest{user: user, target: target})
}

func (r *recordingTransfer) count(user presence.UserID) int {
	n := 0
	for _, request := range r.requests {
		if request.user == user {
			n++
		}
	}
	return n
}

type harness struct {
	t          *testing.T
	clock      *clock.FakeClock
	loop       *schedule.Loop
	host       *presencetest.Host
	sink       *metrics.Sink
	transfers  *recordingTransfer
	controller *Controller
}

func testOptions() Options {
	return Options{
		Enabled:                   true,
		QueueTime:                 3,
		TickInterval:              250 * time.Millisecond,
		TicksPerSecond:            4,
		TargetServer:              "smp",
		Reference:                 reference,
		SpectatorMode:             true,
		ReduceViewDistance:        true,
		QueueViewDistance:         2,
		ChunkManagement:           true,
		AggressiveChunkManagement: true,
		MaxLoadedChunks:           9,
		ChunkLimitInterval:        10 * time.Second,
		DisabledMessage:           "Queue is currently disabled",
		ShowDisabledMessage:       true,
		NotificationInterval:      5 * time.Second,
	}
}

type harnessConfig struct {
	options      Options
	capabilities []presence.Capability
	pool         *workerpool.Pool
}

func newHarness(t *testing.T, configure ...func(*harnessConfig)) *harness {
	t.Helper()
	config := harnessConfig{options: testOptions()}
	for _, fn := range configure {
		fn(&config)
	}

	fake := clock.Fake(epoch)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := schedule.NewLoop(fake, logger)
	host := presencetest.NewHost(config.capabilities...)
	adapter, err := presence.Select(host)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	sink := metrics.New()
	notifier := feedback.NewNotifier(adapter, feedback.NewCatalog(nil),
		feedback.NewCues(nil, rand.New(rand.NewPCG(1, 2))), logger)

	controller := NewController(Params{
		Loop:     loop,
		Store:    NewStore(),
		Adapter:  adapter,
		Notifier: notifier,
		Pool:     config.pool,
		Metrics:  sink,
		Logger:   logger,
		Options:  config.options,
	})
	transfers := &recordingTransfer{}
	controller.AttachTransfer(transfers)

	return &harness{
		t:          t,
		clock:      fake,
		loop:       loop,
		host:       host,
		sink:       sink,
		transfers:  transfers,
		controller: controller,
	}
}

func withOptions(modify func(*Options)) func(*harnessConfig) {
	return func(config *harnessConfig) { modify(&config.options) }
}

// join adds a present user to the host.
func (h *harness) join(name string) presence.User {
	user := presence.User{ID: uuid.New(), Name: name}
	h.host.Join(user)
	return user
}

// advance moves fake time forward and runs everything it made due.
func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.loop.RunPending()
}

func (h *harness) record(user presence.UserID) *Record {
	h.t.Helper()
	record := h.controller.Store().lookup(user)
	if record == nil {
		h.t.Fatalf("user %s is not held", user)
	}
	return record
}

func (h *harness) userCalls(user presence.UserID) int {
	n := 0
	for _, call := range h.host.Calls() {
		if call.User == user {
			n++
		}
	}
	return n
}
