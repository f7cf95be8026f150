// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package admin serves the operator actions on a service.SocketServer.
//
// Every action runs on the coordinating loop through Loop.Do, so
// handlers see and change queue and transfer state exactly as event
// handling does. Changes to persistent settings are written back to
// the configuration file.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/holdq/holdq/feedback"
	"github.com/holdq/holdq/lib/config"
	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/lib/schedule"
	"github.com/holdq/holdq/lib/service"
	"github.com/holdq/holdq/presence"
	"github.com/holdq/holdq/queue"
	"github.com/holdq/holdq/transfer"
)

// Params are the Server's collaborators.
type Params struct {
	Loop     *schedule.Loop
	Queue    *queue.Controller
	Transfer *transfer.Protocol
	Adapter  presence.Adapter
	Notifier *feedback.Notifier
	Metrics  *metrics.Sink
	Logger   *slog.Logger

	// Config is the running configuration. The Server owns it from
	// here on and changes it only on the loop.
	Config *config.Config

	// ConfigPath is where changes are saved and reload reads from.
	// Empty disables both.
	ConfigPath string
}

// Server implements the admin actions.
type Server struct {
	loop       *schedule.Loop
	queue      *queue.Controller
	transfer   *transfer.Protocol
	adapter    presence.Adapter
	notifier   *feedback.Notifier
	metrics    *metrics.Sink
	logger     *slog.Logger
	config     *config.Config
	configPath string
	startedAt  time.Time
}

// New returns a Server.
func New(params Params) *Server {
	return &Server{
		loop:       params.Loop,
		queue:      params.Queue,
		transfer:   params.Transfer,
		adapter:    params.Adapter,
		notifier:   params.Notifier,
		metrics:    params.Metrics,
		logger:     params.Logger,
		config:     params.Config,
		configPath: params.ConfigPath,
		startedAt:  params.Loop.Clock().Now(),
	}
}

// Register adds every action to server.
func (s *Server) Register(server *service.SocketServer) {
	server.Handle(ActionStatus, s.onLoop(s.status))
	server.Handle(ActionToggle, s.onLoop(s.toggle))
	server.Handle(ActionSetTime, s.onLoop(s.setTime))
	server.Handle(ActionSetMessage, s.onLoop(s.setMessage))
	server.Handle(ActionNotify, s.onLoop(s.notify))
	server.Handle(ActionSend, s.onLoop(s.send))
	server.Handle(ActionRelease, s.onLoop(s.release))
	server.Handle(ActionReload, s.onLoop(s.reload))
}

// Config returns the running configuration. Callers off the loop may
// use it only once the loop has stopped.
func (s *Server) Config() *config.Config { return s.config }

// onLoop adapts an action to run on the coordinating loop.
func (s *Server) onLoop(action func(raw []byte) (any, error)) service.ActionFunc {
	return func(ctx context.Context, raw []byte) (any, error) {
		type outcome struct {
			result any
			err    error
		}
		done := make(chan outcome, 1)
		if err := s.loop.Do(ctx, func() {
			result, err := action(raw)
			done <- outcome{result: result, err: err}
		}); err != nil {
			return nil, err
		}
		out := <-done
		return out.result, out.err
	}
}

// persist saves the configuration after a change. The change itself
// has already been applied.
func (s *Server) persist() error {
	if s.configPath == "" {
		return nil
	}
	if err := s.config.Save(s.configPath); err != nil {
		s.logger.Error("saving configuration failed", "path", s.configPath, "error", err)
		return fmt.Errorf("change applied but not saved: %w", err)
	}
	return nil
}

// resolve finds a present user by UUID or case-insensitive name.
func (s *Server) resolve(name string) (presence.User, error) {
	if name == "" {
		return presence.User{}, fmt.Errorf("user is required")
	}
	present, err := s.adapter.Present()
	if err != nil {
		return presence.User{}, fmt.Errorf("listing present users: %w", err)
	}
	id, parseErr := presence.ParseUserID(name)
	for _, user := range present {
		if parseErr == nil && user.ID == id {
			return user, nil
		}
		if parseErr != nil && strings.EqualFold(user.Name, name) {
			return user, nil
		}
	}
	return presence.User{}, fmt.Errorf("user %q is not online", name)
}
