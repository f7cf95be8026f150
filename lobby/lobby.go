// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package lobby turns host events into queue and transfer actions.
//
// HandleEvent runs on the host link's reader goroutine. It decides
// whether to cancel an event from state that is safe to read off the
// coordinating loop (the held set and the attempt map) and posts
// every state change and every call back to the host onto the loop.
// It must never wait on the loop: the loop may itself be waiting for a
// reply that only the reader goroutine can deliver.
package lobby

import (
	"errors"
	"log/slog"

	"github.com/holdq/holdq/feedback"
	"github.com/holdq/holdq/handoff"
	"github.com/holdq/holdq/hostlink"
	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/lib/schedule"
	"github.com/holdq/holdq/presence"
	"github.com/holdq/holdq/queue"
	"github.com/holdq/holdq/transfer"
)

// Params are the Lobby's collaborators.
type Params struct {
	Loop     *schedule.Loop
	Queue    *queue.Controller
	Transfer *transfer.Protocol
	Notifier *feedback.Notifier
	Metrics  *metrics.Sink
	Logger   *slog.Logger

	// Channel is the messaging channel that carries handoff replies.
	Channel string
}

// Lobby handles host events.
type Lobby struct {
	loop     *schedule.Loop
	queue    *queue.Controller
	transfer *transfer.Protocol
	notifier *feedback.Notifier
	metrics  *metrics.Sink
	logger   *slog.Logger
	channel  string
}

var _ hostlink.EventHandler = (*Lobby)(nil)

// New returns a Lobby.
func New(params Params) *Lobby {
	return &Lobby{
		loop:     params.Loop,
		queue:    params.Queue,
		transfer: params.Transfer,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logger:   params.Logger,
		channel:  params.Channel,
	}
}

// HandleEvent applies event and reports whether the host should cancel
// it.
func (l *Lobby) HandleEvent(event hostlink.Event) bool {
	switch event.Type {
	case hostlink.EventJoined:
		l.joined(event.User)
	case hostlink.EventLeft:
		l.left(event.User)
	case hostlink.EventMoved:
		if event.From == event.To {
			return false
		}
		return l.block(event.User.ID, metrics.BlockedMoves)
	case hostlink.EventTeleported:
		if event.Cause == hostlink.CauseDaemon {
			return false
		}
		return l.block(event.User.ID, metrics.BlockedTeleports)
	case hostlink.EventInteracted:
		return l.block(event.User.ID, metrics.BlockedInteractions)
	case hostlink.EventPlaced:
		return l.block(event.User.ID, metrics.BlockedPlaces)
	case hostlink.EventBroke:
		return l.block(event.User.ID, metrics.BlockedBreaks)
	case hostlink.EventCommand:
		return l.command(event.User)
	case hostlink.EventMessage:
		l.message(event)
	default:
		l.logger.Debug("ignoring unknown host event", "type", event.Type, "user", event.User.ID)
	}
	return false
}

func (l *Lobby) joined(user presence.User) {
	if user.Privileged {
		l.logger.Debug("privileged user bypassed the queue", "user", user.ID, "name", user.Name)
		return
	}
	l.metrics.Inc(metrics.PlayerJoins)
	l.loop.Post(func() {
		// An attempt left over from before a reconnect is stale.
		l.transfer.Disconnect(user.ID)

		if l.queue.Enabled() {
			l.queue.Admit(user, true)
			return
		}
		options := l.queue.Options()
		if options.ShowDisabledMessage {
			l.notifier.Title(user.ID,
				l.notifier.Catalog().Format(feedback.QueueDisabledTitle),
				"&e"+options.DisabledMessage)
		}
		l.queue.Admit(user, false)
	})
}

func (l *Lobby) left(user presence.User) {
	l.metrics.Inc(metrics.PlayerQuits)
	l.loop.Post(func() {
		if l.transfer.Outstanding(user.ID) {
			l.logger.Debug("user left during a transfer", "user", user.ID, "name", user.Name)
		}
		l.transfer.Disconnect(user.ID)
		if l.queue.Release(user.ID) {
			l.logger.Info("user left and was released", "user", user.ID, "name", user.Name)
		}
	})
}

// block cancels the event when the user is held or transferring.
func (l *Lobby) block(user presence.UserID, counter string) bool {
	if !l.restrained(user) {
		return false
	}
	l.metrics.Inc(counter)
	return true
}

func (l *Lobby) command(user presence.User) bool {
	if user.Privileged || !l.transfer.Outstanding(user.ID) {
		return false
	}
	l.metrics.Inc(metrics.BlockedCommands)
	l.loop.Post(func() { l.notifier.Message(user.ID, feedback.CommandsBlocked) })
	return true
}

func (l *Lobby) message(event hostlink.Event) {
	if event.Channel != l.channel {
		return
	}
	failure, err := handoff.ParseFailure(event.Payload)
	if err != nil {
		if errors.Is(err, handoff.ErrMalformedMessage) {
			l.metrics.Inc(metrics.MalformedMessages)
		}
		l.logger.Debug("ignoring inbound handoff message", "user", event.User.ID, "error", err)
		return
	}
	l.transfer.GatewayFailure(event.User.ID, failure.Reason)
}

func (l *Lobby) restrained(user presence.UserID) bool {
	return l.queue.Store().Held(user) || l.transfer.Outstanding(user)
}
