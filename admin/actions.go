// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package admin

import (
	"errors"
	"fmt"

	"github.com/holdq/holdq/feedback"
	"github.com/holdq/holdq/lib/codec"
	"github.com/holdq/holdq/lib/config"
	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/presence"
	"github.com/holdq/holdq/queue"
	"github.com/holdq/holdq/transfer"
)

// disabledMessageKey is accepted by set-message as a name for the
// disabled notice.
const disabledMessageKey = "disabled_message"

func decode(raw []byte, request any) error {
	if err := codec.Unmarshal(raw, request); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func (s *Server) status([]byte) (any, error) {
	s.metrics.Inc(metrics.StatusChecks)
	return StatusResponse{
		Queue:     s.queue.Status(),
		Transfers: s.transfer.Entries(),
		Connection: ConnectionStatus{
			MaxRetries: s.config.Connection.MaxRetries,
			RetryDelay: s.config.RetryDelayDuration(),
			Timeout:    s.config.Connection.Timeout,
			Channel:    s.config.Connection.Channel,
		},
		Metrics:   s.metrics.Snapshot(),
		StartedAt: s.startedAt,
	}, nil
}

func (s *Server) toggle(raw []byte) (any, error) {
	var request ToggleRequest
	if err := decode(raw, &request); err != nil {
		return nil, err
	}
	enabled := !s.queue.Enabled()
	if request.Enabled != nil {
		enabled = *request.Enabled
	}

	queued := 0
	if enabled {
		for _, entry := range s.queue.Store().Snapshot() {
			if entry.State == queue.HeldNoQueue {
				queued++
			}
		}
	}
	if !s.queue.SetPolicy(enabled) {
		queued = 0
	}
	s.config.Queue.Enabled = enabled
	if enabled {
		s.metrics.Inc(metrics.QueueEnabled)
	} else {
		s.metrics.Inc(metrics.QueueDisabled)
	}
	s.logger.Info("admission policy set by operator", "enabled", enabled, "queued", queued)
	return ToggleResponse{Enabled: enabled, Queued: queued}, s.persist()
}

func (s *Server) setTime(raw []byte) (any, error) {
	var request SetTimeRequest
	if err := decode(raw, &request); err != nil {
		return nil, err
	}
	seconds := s.config.SetQueueTime(request.Seconds)
	s.queue.SetQueueTime(seconds)
	s.metrics.Inc(metrics.TimeChanges)
	s.logger.Info("queue time set by operator", "requested", request.Seconds, "seconds", seconds)
	return SetTimeResponse{Seconds: seconds}, s.persist()
}

func (s *Server) setMessage(raw []byte) (any, error) {
	var request SetMessageRequest
	if err := decode(raw, &request); err != nil {
		return nil, err
	}
	if request.Message == "" {
		return nil, errors.New("message is required")
	}

	switch request.Key {
	case "", disabledMessageKey:
		s.config.Queue.DisabledMessage = request.Message
		s.queue.SetDisabledMessage(request.Message)
	default:
		if _, known := feedback.DefaultMessages()[request.Key]; !known {
			return nil, fmt.Errorf("unknown message key %q", request.Key)
		}
		s.config.SetMessage(request.Key, request.Message)
		s.notifier.Catalog().Replace(s.config.Messages)
	}
	s.metrics.Inc(metrics.MessageChanges)
	s.logger.Info("message set by operator", "key", request.Key)
	return nil, s.persist()
}

func (s *Server) notify(raw []byte) (any, error) {
	var request NotifyRequest
	if err := decode(raw, &request); err != nil {
		return nil, err
	}
	show := !s.queue.Options().ShowDisabledMessage
	if request.Show != nil {
		show = *request.Show
	}
	s.queue.SetShowDisabledMessage(show)
	s.config.Queue.ShowDisabledMessage = show
	if show {
		s.metrics.Inc(metrics.NotificationsEnabled)
	} else {
		s.metrics.Inc(metrics.NotificationsDisabled)
	}
	s.logger.Info("disabled notice set by operator", "show", show)
	return NotifyResponse{Show: show}, s.persist()
}

// send releases a user and hands them to the transfer protocol
// immediately.
func (s *Server) send(raw []byte) (any, error) {
	var request UserRequest
	if err := decode(raw, &request); err != nil {
		return nil, err
	}
	user, err := s.resolve(request.User)
	if err != nil {
		return nil, err
	}

	target := s.queue.Options().TargetServer
	s.queue.Release(user.ID)
	s.transfer.RequestTransfer(user.ID, target)
	s.metrics.Inc(metrics.ManualSends)
	s.logger.Info("manual transfer by operator", "user", user.ID, "name", user.Name, "target", target)
	return SendResponse{User: user.ID, Name: user.Name, Target: target}, nil
}

// release frees a user. A UUID that is no longer online still releases
// a stale record.
func (s *Server) release(raw []byte) (any, error) {
	var request UserRequest
	if err := decode(raw, &request); err != nil {
		return nil, err
	}
	var id presence.UserID
	user, err := s.resolve(request.User)
	switch {
	case err == nil:
		id = user.ID
	default:
		parsed, parseErr := presence.ParseUserID(request.User)
		if parseErr != nil {
			return nil, err
		}
		id = parsed
	}

	s.transfer.Disconnect(id)
	released := s.queue.Release(id)
	s.logger.Info("release by operator", "user", id, "released", released)
	return ReleaseResponse{User: id, Released: released}, nil
}

func (s *Server) reload([]byte) (any, error) {
	if s.configPath == "" {
		return nil, errors.New("no configuration file to reload")
	}
	cfg, err := config.LoadFile(s.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Paths != s.config.Paths {
		s.logger.Warn("socket path changes take effect on restart",
			"admin_socket", cfg.Paths.AdminSocket, "host_socket", cfg.Paths.HostSocket)
	}
	for _, adjustment := range cfg.Adjustments() {
		s.logger.Warn("configuration adjusted", "adjustment", adjustment)
	}

	s.config = cfg
	s.notifier.Catalog().Replace(cfg.Messages)
	s.notifier.Cues().Replace(cfg.Sounds)
	s.queue.Reconfigure(queue.OptionsFromConfig(cfg))
	s.transfer.SetOptions(transfer.OptionsFromConfig(cfg))
	s.metrics.Inc(metrics.ConfigReloads)
	s.logger.Info("configuration reloaded", "path", s.configPath)
	return ReloadResponse{Adjustments: cfg.Adjustments()}, nil
}
