// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holdq/holdq/feedback"
	"github.com/holdq/holdq/handoff"
	"github.com/holdq/holdq/lib/config"
	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/lib/schedule"
	"github.com/holdq/holdq/presence"
)

// State is an attempt's position in the retry cycle.
type State int

const (
	// Attempting attempts have a request in flight.
	Attempting State = iota

	// Retrying attempts are waiting out the retry delay.
	Retrying

	// Failed attempts have used every retry. They are no longer
	// tracked; the state is visible only on the dropped Attempt.
	Failed
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Retrying:
		return "retrying"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, state := range []State{Attempting, Retrying, Failed} {
		if state.String() == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown attempt state %q", text)
}

// Options are the Protocol's settings.
type Options struct {
	// MaxRetries is the number of requests sent before giving up.
	MaxRetries int

	RetryDelay time.Duration

	// Timeout is how long a request may go without an outcome.
	Timeout time.Duration

	SweepInterval time.Duration

	// Channel is the gateway channel handoff requests travel on.
	Channel string
}

// OptionsFromConfig extracts the Protocol's settings from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxRetries:    cfg.Connection.MaxRetries,
		RetryDelay:    cfg.RetryDelayDuration(),
		Timeout:       cfg.Connection.Timeout,
		SweepInterval: cfg.Connection.SweepInterval,
		Channel:       cfg.Connection.Channel,
	}
}

// Requeuer puts a user whose transfer failed back in the queue. It
// reports true when the user was no longer held and had to be admitted
// afresh.
type Requeuer interface {
	Requeue(user presence.UserID) bool
}

// Attempt is one user's outstanding transfer.
type Attempt struct {
	User   presence.UserID
	Target string

	// count is the number of requests sent, including the one in
	// flight or about to be retried.
	count atomic.Int32

	lastAttemptAt time.Time
	state         State

	// generation identifies the request in flight, so a late send
	// completion for an earlier request is ignored.
	generation uint64

	retry *schedule.Handle
}

// Count returns the number of requests sent so far.
func (a *Attempt) Count() int { return int(a.count.Load()) }

// Entry is a read-only view of an Attempt.
type Entry struct {
	User          presence.UserID `json:"user"`
	Target        string          `json:"target"`
	Attempts      int             `json:"attempts"`
	State         State           `json:"state"`
	LastAttemptAt time.Time       `json:"last_attempt_at"`
}

// Params are the Protocol's collaborators.
type Params struct {
	Loop     *schedule.Loop
	Gateway  handoff.Gateway
	Notifier *feedback.Notifier
	Metrics  *metrics.Sink
	Logger   *slog.Logger
	Options  Options
}

// Protocol runs every user's transfer attempts.
type Protocol struct {
	loop     *schedule.Loop
	gateway  handoff.Gateway
	notifier *feedback.Notifier
	queue    Requeuer
	metrics  *metrics.Sink
	logger   *slog.Logger
	options  Options

	mu       sync.RWMutex
	attempts map[presence.UserID]*Attempt

	generations uint64
	sweep       *schedule.Handle
}

// NewProtocol returns a Protocol. Call AttachQueue before the first
// attempt can terminally fail.
func NewProtocol(params Params) *Protocol {
	return &Protocol{
		loop:     params.Loop,
		gateway:  params.Gateway,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logger:   params.Logger,
		options:  params.Options,
		attempts: make(map[presence.UserID]*Attempt),
	}
}

// AttachQueue sets where terminally failed users are sent back to.
func (p *Protocol) AttachQueue(queue Requeuer) {
	p.queue = queue
}

// SetOptions replaces the settings. Attempts in progress use the new
// values from their next decision on; the sweep restarts with its new
// period if it was running.
func (p *Protocol) SetOptions(options Options) {
	p.options = options
	if p.sweep != nil {
		p.Start()
	}
}

// Start begins the timeout sweep.
func (p *Protocol) Start() {
	p.sweep.Cancel()
	interval := p.options.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	p.sweep = p.loop.Repeating(interval, interval, p.sweepTimeouts)
}

// Stop ends the sweep and drops every attempt without notifying
// anyone.
func (p *Protocol) Stop() {
	p.sweep.Cancel()
	p.sweep = nil
	p.mu.Lock()
	defer p.mu.Unlock()
	for user, attempt := range p.attempts {
		attempt.retry.Cancel()
		delete(p.attempts, user)
	}
}

// RequestTransfer starts moving user to target. An attempt already
// outstanding for the user is reused and starts over from its first
// request.
func (p *Protocol) RequestTransfer(user presence.UserID, target string) {
	p.mu.Lock()
	attempt, exists := p.attempts[user]
	if !exists {
		attempt = &Attempt{User: user}
		p.attempts[user] = attempt
	}
	attempt.retry.Cancel()
	attempt.retry = nil
	attempt.Target = target
	attempt.count.Store(1)
	attempt.state = Attempting
	attempt.lastAttemptAt = p.loop.Clock().Now()
	attempt.generation = p.nextGeneration()
	generation := attempt.generation
	p.mu.Unlock()

	p.metrics.Inc(metrics.ConnectionAttempts)
	p.logger.Info("requesting transfer", "user", user, "target", target, "reused", exists)
	p.send(attempt, generation)
}

// GatewayFailure reports that the gateway refused the user's handoff.
// Safe from any goroutine.
func (p *Protocol) GatewayFailure(user presence.UserID, reason string) {
	if reason == "" {
		reason = "Server unavailable"
	}
	p.loop.Post(func() { p.onGatewayFailure(user, reason) })
}

// Disconnect drops the user's attempt, if any, without notifying or
// retrying.
func (p *Protocol) Disconnect(user presence.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	attempt, exists := p.attempts[user]
	if !exists {
		return
	}
	attempt.retry.Cancel()
	delete(p.attempts, user)
	p.logger.Debug("transfer attempt dropped on disconnect", "user", user, "attempts", attempt.Count())
}

// Outstanding reports whether the user has an attempt. Safe from any
// goroutine.
func (p *Protocol) Outstanding(user presence.UserID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.attempts[user]
	return exists
}

// Entries returns every outstanding attempt, oldest request first.
// Safe from any goroutine.
func (p *Protocol) Entries() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := make([]Entry, 0, len(p.attempts))
	for _, attempt := range p.attempts {
		entries = append(entries, Entry{
			User:          attempt.User,
			Target:        attempt.Target,
			Attempts:      attempt.Count(),
			State:         attempt.state,
			LastAttemptAt: attempt.lastAttemptAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAttemptAt.Before(entries[j].LastAttemptAt)
	})
	return entries
}

// send builds the request off the loop and issues it back on the loop.
func (p *Protocol) send(attempt *Attempt, generation uint64) {
	target := attempt.Target
	p.loop.Go(func() {
		payload, err := handoff.EncodeConnect(target)
		p.loop.Post(func() { p.deliver(attempt, generation, payload, err) })
	})
}

func (p *Protocol) deliver(attempt *Attempt, generation uint64, payload []byte, err error) {
	if !p.inFlight(attempt) || attempt.generation != generation {
		return
	}
	if err == nil {
		err = p.gateway.SendHandoff(attempt.User, p.options.Channel, payload)
	}
	if err != nil {
		p.metrics.Inc(metrics.Errors)
		p.logger.Error("sending handoff failed", "user", attempt.User, "error", err)
		p.decide(attempt, &SendError{Err: err})
		return
	}
	p.logger.Info("handoff sent", "user", attempt.User, "target", attempt.Target,
		"attempt", attempt.Count(), "max", p.options.MaxRetries)
}

func (p *Protocol) onGatewayFailure(user presence.UserID, reason string) {
	p.mu.RLock()
	attempt, exists := p.attempts[user]
	p.mu.RUnlock()
	if !exists {
		p.logger.Debug("gateway failure for user with no attempt", "user", user, "reason", reason)
		return
	}
	p.decide(attempt, &RejectedError{Reason: reason})
}

func (p *Protocol) sweepTimeouts() {
	now := p.loop.Clock().Now()
	var expired []*Attempt
	p.mu.RLock()
	for _, attempt := range p.attempts {
		if attempt.state == Attempting && now.Sub(attempt.lastAttemptAt) > p.options.Timeout {
			expired = append(expired, attempt)
		}
	}
	p.mu.RUnlock()

	for _, attempt := range expired {
		p.decide(attempt, ErrHandoffTimeout)
	}
}

// decide handles the end of a request: retry while attempts remain,
// otherwise fail. Only the first outcome for a request counts.
func (p *Protocol) decide(attempt *Attempt, cause error) {
	if !p.inFlight(attempt) {
		return
	}

	sent := attempt.Count()
	if sent >= p.options.MaxRetries {
		p.fail(attempt, cause)
		return
	}

	attempt.count.Add(1)
	p.setState(attempt, Retrying)

	if errors.Is(cause, ErrHandoffTimeout) {
		p.notifier.Message(attempt.User, feedback.ConnectionTimeout, int(p.options.RetryDelay/time.Second))
	} else {
		p.notifier.Message(attempt.User, feedback.ConnectionError, userReason(cause))
	}
	p.logger.Info("transfer attempt failed, retrying", "user", attempt.User,
		"attempt", sent, "max", p.options.MaxRetries, "delay", p.options.RetryDelay, "error", cause)

	handle := p.loop.Once(p.options.RetryDelay, func() { p.retry(attempt) })
	p.mu.Lock()
	attempt.retry = handle
	p.mu.Unlock()
}

func (p *Protocol) retry(attempt *Attempt) {
	if !p.current(attempt) || attempt.state != Retrying {
		return
	}

	p.mu.Lock()
	attempt.retry = nil
	attempt.state = Attempting
	attempt.lastAttemptAt = p.loop.Clock().Now()
	attempt.generation = p.nextGeneration()
	generation := attempt.generation
	p.mu.Unlock()

	p.notifier.Message(attempt.User, feedback.ConnectionFailed)
	p.metrics.Inc(metrics.ConnectionRetries)
	p.logger.Info("retrying transfer", "user", attempt.User, "target", attempt.Target,
		"attempt", attempt.Count(), "max", p.options.MaxRetries)
	p.send(attempt, generation)
}

// fail drops the attempt and sends the user back to the queue.
func (p *Protocol) fail(attempt *Attempt, cause error) {
	p.mu.Lock()
	attempt.retry.Cancel()
	attempt.retry = nil
	attempt.state = Failed
	delete(p.attempts, attempt.User)
	p.mu.Unlock()

	p.notifier.Message(attempt.User, feedback.MaxRetriesReached, p.options.MaxRetries)
	p.metrics.Inc(metrics.MaxRetriesReached)
	p.logger.Warn("transfer failed", "user", attempt.User, "target", attempt.Target,
		"error", fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt.Count(), cause))

	if p.queue == nil {
		return
	}
	if p.queue.Requeue(attempt.User) {
		p.notifier.Message(attempt.User, feedback.BackInQueue)
	}
}

// inFlight reports whether attempt is the user's live attempt with a
// request awaiting its outcome.
func (p *Protocol) inFlight(attempt *Attempt) bool {
	return p.current(attempt) && attempt.state == Attempting
}

func (p *Protocol) current(attempt *Attempt) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.attempts[attempt.User] == attempt
}

func (p *Protocol) setState(attempt *Attempt, state State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	attempt.state = state
}

// nextGeneration must be called with p.mu held.
func (p *Protocol) nextGeneration() uint64 {
	p.generations++
	return p.generations
}
