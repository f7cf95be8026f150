// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/holdq/holdq/feedback"
	"github.com/holdq/holdq/lib/config"
	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/lib/schedule"
	"github.com/holdq/holdq/lib/workerpool"
	"github.com/holdq/holdq/presence"
)

// Options are the Controller's settings. QueueTime is in seconds.
type Options struct {
	// Enabled is the initial admission policy.
	Enabled bool

	QueueTime      int
	TickInterval   time.Duration
	TicksPerSecond int
	TargetServer   string
	Reference      presence.Point

	SpectatorMode      bool
	ReduceViewDistance bool
	QueueViewDistance  int

	ChunkManagement           bool
	AggressiveChunkManagement bool
	MaxLoadedChunks           int
	ChunkLimitInterval        time.Duration

	DisabledMessage      string
	ShowDisabledMessage  bool
	NotificationInterval time.Duration
}

// OptionsFromConfig extracts the Controller's settings from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Enabled:                   cfg.Queue.Enabled,
		QueueTime:                 cfg.Queue.Time,
		TickInterval:              cfg.Queue.TickInterval,
		TicksPerSecond:            cfg.Queue.TicksPerSecond,
		TargetServer:              cfg.Queue.TargetServer,
		Reference:                 presence.Point{X: cfg.Spawn.X, Y: cfg.Spawn.Y, Z: cfg.Spawn.Z},
		SpectatorMode:             cfg.Optimization.SpectatorMode,
		ReduceViewDistance:        cfg.Optimization.ReduceViewDistance,
		QueueViewDistance:         cfg.Optimization.QueueViewDistance,
		ChunkManagement:           cfg.Optimization.ChunkManagement,
		AggressiveChunkManagement: cfg.Optimization.AggressiveChunkManagement,
		MaxLoadedChunks:           cfg.Optimization.MaxLoadedChunks,
		ChunkLimitInterval:        cfg.Optimization.ChunkLimitInterval,
		DisabledMessage:           cfg.Queue.DisabledMessage,
		ShowDisabledMessage:       cfg.Queue.ShowDisabledMessage,
		NotificationInterval:      cfg.NotificationDuration(),
	}
}

// Transferer starts a handoff for a user whose countdown expired.
type Transferer interface {
	RequestTransfer(user presence.UserID, target string)
}

// Params are the Controller's collaborators.
type Params struct {
	Loop     *schedule.Loop
	Store    *Store
	Adapter  presence.Adapter
	Notifier *feedback.Notifier

	// Pool runs countdown timing when non-nil. When nil, countdowns
	// are coordinator ticks.
	Pool *workerpool.Pool

	Metrics *metrics.Sink
	Logger  *slog.Logger
	Options Options
}

// Controller admits, counts down, and releases held users. Its
// methods must be called on the coordinating loop unless noted.
type Controller struct {
	loop      *schedule.Loop
	store     *Store
	adapter   presence.Adapter
	notifier  *feedback.Notifier
	pool      *workerpool.Pool
	throttler *Throttler
	transfer  Transferer
	metrics   *metrics.Sink
	logger    *slog.Logger

	options Options

	// policy is read by lobby event handlers off the loop.
	policy atomic.Bool

	cycles       uint64
	notification *schedule.Handle
	throttling   *schedule.Handle
}

// NewController returns a Controller. Call AttachTransfer before the
// first countdown can expire.
func NewController(params Params) *Controller {
	controller := &Controller{
		loop:     params.Loop,
		store:    params.Store,
		adapter:  params.Adapter,
		notifier: params.Notifier,
		pool:     params.Pool,
		metrics:  params.Metrics,
		logger:   params.Logger,
		options:  params.Options,
	}
	controller.throttler = NewThrottler(params.Adapter, params.Metrics, params.Logger)
	controller.policy.Store(params.Options.Enabled)
	return controller
}

// AttachTransfer sets the protocol expired countdowns are handed to.
func (c *Controller) AttachTransfer(transfer Transferer) {
	c.transfer = transfer
}

// Store returns the held-user store.
func (c *Controller) Store() *Store { return c.store }

// Options returns the current settings.
func (c *Controller) Options() Options {
	options := c.options
	options.Enabled = c.Enabled()
	return options
}

// Enabled reports the admission policy. Safe from any goroutine.
func (c *Controller) Enabled() bool { return c.policy.Load() }

// Start begins the periodic region cap and, if the policy is off, the
// disabled notice.
func (c *Controller) Start() {
	c.startThrottling()
	if !c.Enabled() && c.options.ShowDisabledMessage {
		c.startNotifications()
	}
}

// Stop releases every held user and stops all periodic work.
func (c *Controller) Stop() {
	c.ReleaseAll()
	c.stopNotifications()
	c.throttling.Cancel()
	c.throttling = nil
}

// Admit holds user. With withCountdown the user counts down to a
// transfer; without it they are held until released. A user who is
// already held is released first and admitted afresh.
func (c *Controller) Admit(user presence.User, withCountdown bool) {
	if c.store.Held(user.ID) {
		c.release(user.ID)
	}

	c.cycles++
	record := &Record{User: user.ID, Name: user.Name, State: HeldNoQueue, cycle: c.cycles}
	if withCountdown {
		record.State = HeldQueued
	}
	c.store.insert(record)

	if c.options.SpectatorMode {
		c.enterSpectator(record)
	}

	if c.supports(presence.CapTeleport, "teleport", user.ID) {
		c.check("teleport", user.ID, c.adapter.Teleport(user.ID, c.options.Reference))
	}

	if c.options.ChunkManagement {
		c.throttler.TrimAround(c.options.Reference)
		if withCountdown && c.options.AggressiveChunkManagement {
			c.throttler.Enforce(c.options.Reference, c.options.MaxLoadedChunks)
		}
	}

	c.hideFromOthers(record)

	if c.options.ReduceViewDistance && c.supports(presence.CapViewDistance, "view distance", user.ID) {
		previous, err := c.adapter.SetViewDistance(user.ID, c.options.QueueViewDistance)
		if c.check("set view distance", user.ID, err) {
			c.store.update(func() { record.SavedViewDistance = &previous })
		}
	}

	if withCountdown {
		c.notifier.Title(user.ID,
			c.notifier.Catalog().Format(feedback.WelcomeTitle),
			c.notifier.Catalog().Format(feedback.WelcomeSubtitle, c.options.QueueTime))
		c.cue(user.ID)
		c.startCountdown(record)
		c.metrics.Inc(metrics.PlayersQueued)
		c.logger.Info("user admitted to queue", "user", user.ID, "name", user.Name, "seconds", c.options.QueueTime)
		return
	}

	c.notifier.ActionBar(user.ID, feedback.FrozenPlayer)
	c.metrics.Inc(metrics.PlayersFrozen)
	c.logger.Info("user held without queue", "user", user.ID, "name", user.Name)
}

// Release ends the user's hold: the countdown is cancelled, saved game
// mode and view distance are restored, and visibility with everyone
// present is restored. Releasing a user who is not held does nothing.
// Reports whether the user was held.
func (c *Controller) Release(user presence.UserID) bool {
	if !c.release(user) {
		return false
	}
	c.metrics.Inc(metrics.PlayersUnqueued)
	return true
}

func (c *Controller) release(user presence.UserID) bool {
	record := c.store.remove(user)
	if record == nil {
		return false
	}
	record.task.Cancel()

	if record.SavedGameMode != nil {
		_, err := c.adapter.SetGameMode(user, *record.SavedGameMode)
		c.check("restore game mode", user, err)
	}
	if record.SavedViewDistance != nil {
		_, err := c.adapter.SetViewDistance(user, *record.SavedViewDistance)
		c.check("restore view distance", user, err)
	}
	if record.hidden {
		c.showToOthers(user)
	}

	c.logger.Info("user released", "user", user, "state", record.State)
	return true
}

// ReleaseAll releases every held user and tells each of them. Returns
// the number released.
func (c *Controller) ReleaseAll() int {
	released := 0
	for _, record := range c.store.all() {
		if c.Release(record.User) {
			c.notifier.Message(record.User, feedback.QueueDisabledPlayer)
			released++
		}
	}
	if released > 0 {
		c.metrics.Inc(metrics.MassReleaseCount)
		c.metrics.Add(metrics.MassReleasedPlayers, int64(released))
		c.logger.Info("released all held users", "count", released)
	}
	return released
}

// Requeue puts a user whose transfer terminally failed back at the
// start of the countdown. A user who is still held keeps their record
// and restarts the countdown; a user who is no longer held is admitted
// afresh, and Requeue reports true.
func (c *Controller) Requeue(user presence.UserID) bool {
	record := c.store.lookup(user)
	if record == nil {
		c.Admit(presence.User{ID: user}, true)
		return true
	}

	c.store.update(func() { record.State = HeldQueued })
	if c.options.SpectatorMode {
		c.enterSpectator(record)
	}
	c.startCountdown(record)
	c.metrics.Inc(metrics.PlayersQueued)
	c.logger.Info("user requeued after failed transfer", "user", user, "seconds", c.options.QueueTime)
	return false
}

// SetPolicy turns the admission policy on or off. Turning it on admits
// every user held without a countdown into the full queue; turning it
// off leaves held users where they are. Reports whether the policy
// changed.
func (c *Controller) SetPolicy(enabled bool) bool {
	if c.policy.Swap(enabled) == enabled {
		return false
	}

	if !enabled {
		if c.options.ShowDisabledMessage {
			c.startNotifications()
		}
		c.logger.Info("admission policy disabled", "held", c.store.Len())
		return true
	}

	c.stopNotifications()
	readmitted := 0
	for _, record := range c.store.all() {
		if record.State != HeldNoQueue {
			continue
		}
		c.Admit(presence.User{ID: record.User, Name: record.Name}, true)
		readmitted++
	}
	c.logger.Info("admission policy enabled", "readmitted", readmitted)
	return true
}

// SetQueueTime changes the countdown length for later countdowns.
func (c *Controller) SetQueueTime(seconds int) {
	c.options.QueueTime = seconds
}

// SetDisabledMessage changes the disabled notice text.
func (c *Controller) SetDisabledMessage(text string) {
	c.options.DisabledMessage = text
}

// SetShowDisabledMessage turns the periodic disabled notice on or off.
func (c *Controller) SetShowDisabledMessage(show bool) {
	c.options.ShowDisabledMessage = show
	if show && !c.Enabled() {
		c.startNotifications()
		return
	}
	if !show {
		c.stopNotifications()
	}
}

// Reconfigure applies new settings. The policy is set with SetPolicy
// semantics; periodic tasks restart with their new periods. Running
// countdowns keep their current length.
func (c *Controller) Reconfigure(options Options) {
	enabled := options.Enabled
	c.options = options
	c.SetPolicy(enabled)
	c.startThrottling()
	c.stopNotifications()
	if !c.Enabled() && c.options.ShowDisabledMessage {
		c.startNotifications()
	}
}

// enterSpectator switches the user to spectator, saving the mode it
// replaced unless one is already saved.
func (c *Controller) enterSpectator(record *Record) {
	if record.SavedGameMode != nil || !c.supports(presence.CapGameMode, "game mode", record.User) {
		return
	}
	previous, err := c.adapter.SetGameMode(record.User, presence.Spectator)
	if c.check("set game mode", record.User, err) {
		c.store.update(func() { record.SavedGameMode = &previous })
	}
}

// restoreGameMode puts back the saved game mode and forgets it.
func (c *Controller) restoreGameMode(record *Record) {
	if record.SavedGameMode == nil {
		return
	}
	saved := *record.SavedGameMode
	c.store.update(func() { record.SavedGameMode = nil })
	_, err := c.adapter.SetGameMode(record.User, saved)
	c.check("restore game mode", record.User, err)
}

func (c *Controller) hideFromOthers(record *Record) {
	if !c.supports(presence.CapVisibility, "visibility", record.User) {
		return
	}
	present, err := c.adapter.Present()
	if !c.check("list present users", record.User, err) {
		return
	}
	for _, other := range present {
		if other.ID == record.User {
			continue
		}
		c.check("hide", record.User, c.adapter.Hide(record.User, other.ID))
	}
	c.store.update(func() { record.hidden = true })
}

func (c *Controller) showToOthers(user presence.UserID) {
	present, err := c.adapter.Present()
	if !c.check("list present users", user, err) {
		return
	}
	for _, other := range present {
		if other.ID == user {
			continue
		}
		c.check("show", user, c.adapter.Show(user, other.ID))
	}
}

// supports reports whether the adapter provides capability, logging a
// skipped step when it does not.
func (c *Controller) supports(capability presence.Capability, step string, user presence.UserID) bool {
	if c.adapter.Supports(capability) {
		return true
	}
	c.logger.Debug("step skipped, unsupported by host", "step", step, "user", user, "capability", capability)
	return false
}

// check logs a failed adapter call and reports whether it succeeded.
func (c *Controller) check(step string, user presence.UserID, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, presence.ErrUnsupported):
		c.logger.Debug("step skipped, unsupported by host", "step", step, "user", user)
	default:
		c.metrics.Inc(metrics.Errors)
		c.logger.Warn("host operation failed", "step", step, "user", user, "error", err)
	}
	return false
}

func (c *Controller) cue(user presence.UserID) {
	if c.notifier.Cue(user) {
		c.metrics.Inc(metrics.SoundsPlayed)
	}
}
