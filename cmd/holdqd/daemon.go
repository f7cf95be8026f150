// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/holdq/holdq/admin"
	"github.com/holdq/holdq/feedback"
	"github.com/holdq/holdq/hostlink"
	"github.com/holdq/holdq/lib/clock"
	"github.com/holdq/holdq/lib/config"
	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/lib/schedule"
	"github.com/holdq/holdq/lib/service"
	"github.com/holdq/holdq/lib/workerpool"
	"github.com/holdq/holdq/lobby"
	"github.com/holdq/holdq/presence"
	"github.com/holdq/holdq/queue"
	"github.com/holdq/holdq/transfer"
)

// shutdownTimeout bounds the release of held users on shutdown.
const shutdownTimeout = 10 * time.Second

// daemon carries what outlives one host connection: the configuration
// as changed by the operator, and the metrics.
type daemon struct {
	clock      clock.Clock
	config     *config.Config
	configPath string
	metrics    *metrics.Sink
	logger     *slog.Logger
}

// serve runs one host session until the host disconnects or ctx is
// done. It returns an error only for failures that should stop the
// daemon.
func (d *daemon) serve(ctx context.Context, link *hostlink.Link) error {
	adapter, err := presence.Select(link)
	if err != nil {
		link.Close()
		d.logger.Error("host rejected", "error", err)
		return nil
	}
	cfg := d.config
	logger := d.logger.With("tier", adapter.Tier())
	logger.Info("host session starting")

	loop := schedule.NewLoop(d.clock, logger)
	notifier := feedback.NewNotifier(adapter,
		feedback.NewCatalog(cfg.Messages), feedback.NewCues(cfg.Sounds, nil), logger)

	var pool *workerpool.Pool
	if cfg.Optimization.DedicatedThreadPool {
		pool = workerpool.New(cfg.Optimization.ThreadPoolSize)
		logger.Info("countdowns on dedicated workers", "workers", pool.Size())
	}

	controller := queue.NewController(queue.Params{
		Loop:     loop,
		Store:    queue.NewStore(),
		Adapter:  adapter,
		Notifier: notifier,
		Pool:     pool,
		Metrics:  d.metrics,
		Logger:   logger.With("component", "queue"),
		Options:  queue.OptionsFromConfig(cfg),
	})
	protocol := transfer.NewProtocol(transfer.Params{
		Loop:     loop,
		Gateway:  link,
		Notifier: notifier,
		Metrics:  d.metrics,
		Logger:   logger.With("component", "transfer"),
		Options:  transfer.OptionsFromConfig(cfg),
	})
	controller.AttachTransfer(protocol)
	protocol.AttachQueue(controller)

	handler := lobby.New(lobby.Params{
		Loop:     loop,
		Queue:    controller,
		Transfer: protocol,
		Notifier: notifier,
		Metrics:  d.metrics,
		Logger:   logger.With("component", "lobby"),
		Channel:  cfg.Connection.Channel,
	})

	operator := admin.New(admin.Params{
		Loop:       loop,
		Queue:      controller,
		Transfer:   protocol,
		Adapter:    adapter,
		Notifier:   notifier,
		Metrics:    d.metrics,
		Logger:     logger.With("component", "admin"),
		Config:     cfg,
		ConfigPath: d.configPath,
	})
	socket := service.NewSocketServer(cfg.Paths.AdminSocket, logger)
	operator.Register(socket)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(sessionCtx) }()
	linkDone := make(chan error, 1)
	go func() { linkDone <- link.Run(sessionCtx, handler) }()
	socketDone := make(chan error, 1)
	go func() { socketDone <- socket.Serve(sessionCtx) }()

	loop.Post(func() {
		controller.Start()
		protocol.Start()
		d.admitPresent(adapter, controller)
	})

	var fatal error
	select {
	case <-ctx.Done():
	case err := <-linkDone:
		logger.Warn("host link ended", "error", err)
		linkDone <- err
	case err := <-socketDone:
		if err != nil {
			fatal = fmt.Errorf("admin socket: %w", err)
		}
		socketDone <- err
	}

	// The link must still be running for releases to reach the host.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := loop.Do(stopCtx, func() {
		released := controller.ReleaseAll()
		controller.Stop()
		protocol.Stop()
		logger.Info("host session stopped", "released", released)
	}); err != nil {
		logger.Error("stopping host session timed out", "error", err)
	}

	cancel()
	<-loopDone
	if err := <-linkDone; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, hostlink.ErrNotConnected) {
		logger.Debug("host link closed", "error", err)
	}
	if err := <-socketDone; err != nil && fatal == nil {
		fatal = fmt.Errorf("admin socket: %w", err)
	}
	if pool != nil {
		pool.Close()
	}

	d.config = operator.Config()
	return fatal
}

// admitPresent holds users who were already online when the host
// connected, as if they had just joined.
func (d *daemon) admitPresent(adapter presence.Adapter, controller *queue.Controller) {
	present, err := adapter.Present()
	if err != nil {
		d.logger.Warn("listing present users failed", "error", err)
		return
	}
	for _, user := range present {
		if user.Privileged {
			continue
		}
		controller.Admit(user, controller.Enabled())
	}
}
