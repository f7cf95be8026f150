// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"testing"
	"time"

	"github.com/holdq/holdq/lib/workerpool"
)

func withPool(pool *workerpool.Pool) func(*harnessConfig) {
	return func(config *harnessConfig) {
		config.options.QueueTime = 2
		config.pool = pool
	}
}

func TestWorkerCountdownExpires(t *testing.T) {
	pool := workerpool.New(1)
	h := newHarness(t, withPool(pool))
	alice := h.join("alice")
	h.controller.Admit(alice, true)

	// Each worker second posts its step and then sleeps; once the sleep
	// is registered the step is queued.
	for range 2 {
		h.clock.WaitForTimers(1)
		h.loop.RunPending()
		h.clock.Advance(time.Second)
	}
	pool.Close()
	h.loop.RunPending()

	bars := h.host.DeliveriesOf(alice.ID, "action_bar")
	if len(bars) != 2 || bars[0] != "§eTransfer in §62 §eseconds..." {
		t.Fatalf("action bars = %q", bars)
	}
	if len(h.transfers.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(h.transfers.requests))
	}
	if got := h.controller.Store().State(alice.ID); got != TransferPending {
		t.Fatalf("State = %v, want %v", got, TransferPending)
	}
}

func TestWorkerCountdownStopsOnRelease(t *testing.T) {
	pool := workerpool.New(1)
	h := newHarness(t, withPool(pool))
	alice := h.join("alice")
	h.controller.Admit(alice, true)

	h.clock.WaitForTimers(1)
	h.loop.RunPending()
	h.controller.Release(alice.ID)
	h.clock.Advance(time.Second)
	pool.Close()
	h.loop.RunPending()

	if len(h.transfers.requests) != 0 {
		t.Fatal("transfer requested after release")
	}
	if got := len(h.host.DeliveriesOf(alice.ID, "action_bar")); got != 1 {
		t.Fatalf("action bars = %d, want 1", got)
	}
}

func TestClosedPoolFallsBackToTicks(t *testing.T) {
	pool := workerpool.New(1)
	pool.Close()
	h := newHarness(t, withPool(pool))
	alice := h.join("alice")
	h.controller.Admit(alice, true)

	h.advance(2250 * time.Millisecond)
	if len(h.transfers.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(h.transfers.requests))
	}
}
