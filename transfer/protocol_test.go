// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/holdq/holdq/feedback"
	"github.com/holdq/holdq/handoff"
	"github.com/holdq/holdq/lib/clock"
	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/lib/schedule"
	"github.com/holdq/holdq/presence"
	"github.com/holdq/holdq/presence/presencetest"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type sentHandoff struct {
	user    presence.UserID
	channel string
	target  string
}

type fakeGateway struct {
	mu    sync.Mutex
	sends []sentHandoff
	err   error
}

func (g *fakeGateway) SendHandoff(user presence.UserID, channel string, payload []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	target, err := handoff.DecodeConnect(payload)
	if err != nil {
		return err
	}
	g.sends = append(g.sends, sentHandoff{user: user, channel: channel, target: target})
	return nil
}

func (g *fakeGateway) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sends)
}

type fakeRequeuer struct {
	readmit bool
	calls   []presence.UserID
}

func (r *fakeRequeuer) Requeue(user presence.UserID) bool {
	r.calls = append(r.calls, user)
	return r.readmit
}

type fixture struct {
	clock    *clock.FakeClock
	loop     *schedule.Loop
	host     *presencetest.Host
	adapter  presence.Adapter
	notifier *feedback.Notifier
	gateway  *fakeGateway
	sink     *metrics.Sink
	logger   *slog.Logger
	protocol *Protocol
}

func testOptions() Options {
	return Options{
		MaxRetries:    3,
		RetryDelay:    5 * time.Second,
		Timeout:       15 * time.Second,
		SweepInterval: 5 * time.Second,
		Channel:       "BungeeCord",
	}
}

func newFixture(t *testing.T, options Options) *fixture {
	t.Helper()
	fake := clock.Fake(epoch)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := schedule.NewLoop(fake, logger)
	host := presencetest.NewHost()
	adapter, err := presence.Select(host)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	notifier := feedback.NewNotifier(adapter, feedback.NewCatalog(nil),
		feedback.NewCues(nil, rand.New(rand.NewPCG(3, 4))), logger)
	gateway := &fakeGateway{}
	sink := metrics.New()
	protocol := NewProtocol(Params{
		Loop:     loop,
		Gateway:  gateway,
		Notifier: notifier,
		Metrics:  sink,
		Logger:   logger,
		Options:  options,
	})
	return &fixture{
		clock:    fake,
		loop:     loop,
		host:     host,
		adapter:  adapter,
		notifier: notifier,
		gateway:  gateway,
		sink:     sink,
		logger:   logger,
		protocol: protocol,
	}
}

func (f *fixture) advance(d time.Duration) {
	f.clock.Advance(d)
	f.loop.RunPending()
}

func (f *fixture) messages(user presence.UserID) []string {
	return f.host.DeliveriesOf(user, "message")
}

func (f *fixture) attempt(t *testing.T, user presence.UserID) Entry {
	t.Helper()
	for _, entry := range f.protocol.Entries() {
		if entry.User == user {
			return entry
		}
	}
	t.Fatalf("no attempt for %s", user)
	return Entry{}
}

func TestRequestTransferSendsHandoff(t *testing.T) {
	f := newFixture(t, testOptions())
	user := uuid.New()

	f.protocol.RequestTransfer(user, "smp")
	f.loop.RunPending()

	if len(f.gateway.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(f.gateway.sends))
	}
	if sent := f.gateway.sends[0]; sent.user != user || sent.channel != "BungeeCord" || sent.target != "smp" {
		t.Errorf("sent = %+v", sent)
	}
	if !f.protocol.Outstanding(user) {
		t.Error("no outstanding attempt after a send")
	}
	entry := f.attempt(t, user)
	if entry.Attempts != 1 || entry.State != Attempting || !entry.LastAttemptAt.Equal(epoch) {
		t.Errorf("entry = %+v", entry)
	}
	if got := f.sink.Get(metrics.ConnectionAttempts); got != 1 {
		t.Errorf("connection_attempts = %d, want 1", got)
	}
}

func TestGatewayFailureSchedulesRetry(t *testing.T) {
	f := newFixture(t, testOptions())
	user := uuid.New()
	f.protocol.RequestTransfer(user, "smp")
	f.loop.RunPending()

	f.protocol.GatewayFailure(user, "")
	f.loop.RunPending()

	messages := f.messages(user)
	if len(messages) != 1 || messages[0] != "§cCould not connect to the server. §eError: Server unavailable" {
		t.Fatalf("messages = %q", messages)
	}
	if entry := f.attempt(t, user); entry.Attempts != 2 || entry.State != Retrying {
		t.Fatalf("entry = %+v, want 2 attempts retrying", entry)
	}

	f.advance(4 * time.Second)
	if f.gateway.count() != 1 {
		t.Fatal("retried before the delay")
	}
	f.advance(time.Second)
	if f.gateway.count() != 2 {
		t.Fatalf("sends = %d after the delay, want 2", f.gateway.count())
	}
	messages = f.messages(user)
	if len(messages) != 2 || messages[1] != "§cConnection to the server failed. Retrying..." {
		t.Fatalf("messages = %q", messages)
	}
	if entry := f.attempt(t, user); entry.State != Attempting || !entry.LastAttemptAt.Equal(epoch.Add(5*time.Second)) {
		t.Errorf("entry = %+v", entry)
	}
	if got := f.sink.Get(metrics.ConnectionRetries); got != 1 {
		t.Errorf("connection_retries = %d, want 1", got)
	}
}

func TestSweepTimesOutSilentRequests(t *testing.T) {
	f := newFixture(t, testOptions())
	f.protocol.Start()
	user := uuid.New()
	f.protocol.RequestTransfer(user, "smp")
	f.loop.RunPending()

	// The sweep at 15s sees exactly the timeout, which is not over it.
	for range 3 {
		f.advance(5 * time.Second)
	}
	if entry := f.attempt(t, user); entry.State != Attempting {
		t.Fatalf("timed out at exactly the timeout: %+v", entry)
	}

	f.advance(5 * time.Second)
	messages := f.messages(user)
	if len(messages) != 1 || messages[0] != "§cConnection timed out. Retrying in 5 seconds..." {
		t.Fatalf("messages = %q", messages)
	}
	if entry := f.attempt(t, user); entry.Attempts != 2 || entry.State != Retrying {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestGatewayFailureAndTimeoutInOnePassRetryOnce(t *testing.T) {
	f := newFixture(t, testOptions())
	f.protocol.Start()
	user := uuid.New()
	f.protocol.RequestTransfer(user, "smp")
	f.loop.RunPending()

	// Both outcomes are queued before the loop runs either.
	f.clock.Advance(20 * time.Second)
	f.protocol.GatewayFailure(user, "full")
	f.loop.RunPending()

	if entry := f.attempt(t, user); entry.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", entry.Attempts)
	}
	if messages := f.messages(user); len(messages) != 1 {
		t.Fatalf("messages = %q, want one", messages)
	}

	f.advance(5 * time.Second)
	if got := f.gateway.count(); got != 2 {
		t.Fatalf("sends = %d, want 2", got)
	}
	if got := f.sink.Get(metrics.ConnectionRetries); got != 1 {
		t.Fatalf("connection_retries = %d, want 1", got)
	}
}

func TestSendErrorIsRetried(t *testing.T) {
	f := newFixture(t, testOptions())
	f.gateway.fail(errors.New("link down"))
	user := uuid.New()
	f.protocol.RequestTransfer(user, "smp")
	f.loop.RunPending()

	messages := f.messages(user)
	if len(messages) != 1 || messages[0] != "§cCould not connect to the server. §eError: Internal error: link down" {
		t.Fatalf("messages = %q", messages)
	}
	if got := f.sink.Get(metrics.Errors); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}

	f.gateway.fail(nil)
	f.advance(5 * time.Second)
	if got := f.gateway.count(); got != 1 {
		t.Fatalf("sends = %d, want the retry to get through", got)
	}
}

func TestDisconnectDropsAttemptSilently(t *testing.T) {
	f := newFixture(t, testOptions())
	f.protocol.Start()
	user := uuid.New()
	f.protocol.RequestTransfer(user, "smp")
	f.loop.RunPending()
	f.protocol.GatewayFailure(user, "")
	f.loop.RunPending()

	f.protocol.Disconnect(user)
	if f.protocol.Outstanding(user) {
		t.Fatal("attempt outstanding after Disconnect")
	}
	f.advance(time.Minute)
	if got := f.gateway.count(); got != 1 {
		t.Fatalf("sends = %d, want no retry after disconnect", got)
	}
	if messages := f.messages(user); len(messages) != 1 {
		t.Fatalf("messages = %q, want only the first failure", messages)
	}
}

func TestRequestTransferReusesAttempt(t *testing.T) {
	f := newFixture(t, testOptions())
	user := uuid.New()
	f.protocol.RequestTransfer(user, "smp")
	f.loop.RunPending()
	f.protocol.GatewayFailure(user, "")
	f.loop.RunPending()

	f.protocol.RequestTransfer(user, "creative")
	f.loop.RunPending()
	if entry := f.attempt(t, user); entry.Attempts != 1 || entry.State != Attempting || entry.Target != "creative" {
		t.Fatalf("entry = %+v, want a fresh first attempt", entry)
	}
	if got := len(f.protocol.Entries()); got != 1 {
		t.Fatalf("entries = %d, want 1", got)
	}

	f.advance(10 * time.Second)
	if got := f.gateway.count(); got != 2 {
		t.Fatalf("sends = %d, want 2 (the earlier retry cancelled)", got)
	}
}

func TestTerminalFailureReadmitsUnheldUser(t *testing.T) {
	options := testOptions()
	options.MaxRetries = 1
	f := newFixture(t, options)
	requeuer := &fakeRequeuer{readmit: true}
	f.protocol.AttachQueue(requeuer)
	user := uuid.New()

	f.protocol.RequestTransfer(user, "smp")
	f.loop.RunPending()
	f.protocol.GatewayFailure(user, "")
	f.loop.RunPending()

	if f.protocol.Outstanding(user) {
		t.Fatal("attempt outstanding after terminal failure")
	}
	if len(requeuer.calls) != 1 || requeuer.calls[0] != user {
		t.Fatalf("requeue calls = %v", requeuer.calls)
	}
	want := []string{
		"§cCould not connect after 1 attempts. Please try again later.",
		"§eYou've been placed back in the queue due to connection issues.",
	}
	messages := f.messages(user)
	if len(messages) != len(want) {
		t.Fatalf("messages = %q, want %q", messages, want)
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, messages[i], want[i])
		}
	}
	if got := f.sink.Get(metrics.MaxRetriesReached); got != 1 {
		t.Errorf("max_retries_reached = %d, want 1", got)
	}
}

func TestGatewayFailureWithoutAttemptIsIgnored(t *testing.T) {
	f := newFixture(t, testOptions())
	user := uuid.New()
	f.protocol.GatewayFailure(user, "")
	f.loop.RunPending()
	if messages := f.messages(user); len(messages) != 0 {
		t.Fatalf("messages = %q, want none", messages)
	}
}

func TestStopDropsEverything(t *testing.T) {
	f := newFixture(t, testOptions())
	f.protocol.Start()
	user := uuid.New()
	f.protocol.RequestTransfer(user, "smp")
	f.loop.RunPending()
	f.protocol.GatewayFailure(user, "")
	f.loop.RunPending()

	f.protocol.Stop()
	f.advance(time.Minute)
	if f.protocol.Outstanding(user) || f.gateway.count() != 1 {
		t.Fatal("work continued after Stop")
	}
	if got := f.clock.PendingCount(); got != 0 {
		t.Fatalf("PendingCount = %d, want 0", got)
	}
}

func TestReadsAreSafeDuringWrites(t *testing.T) {
	f := newFixture(t, testOptions())
	users := make([]presence.UserID, 16)
	for i := range users {
		users[i] = uuid.New()
	}

	done := make(chan struct{})
	var readers sync.WaitGroup
	for range 4 {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, user := range users {
					f.protocol.Outstanding(user)
				}
				f.protocol.Entries()
			}
		}()
	}

	for _, user := range users {
		f.protocol.RequestTransfer(user, "smp")
		f.protocol.GatewayFailure(user, "")
	}
	f.loop.RunPending()
	for _, user := range users {
		f.protocol.Disconnect(user)
	}
	close(done)
	readers.Wait()

	if got := len(f.protocol.Entries()); got != 0 {
		t.Fatalf("entries = %d, want 0", got)
	}
}
