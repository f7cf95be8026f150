// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete holdqd configuration.
type Config struct {
	// Queue controls admission and the countdown.
	Queue QueueConfig `yaml:"queue"`

	// Spawn is the reference point held users are teleported to and
	// the centre for region eviction.
	Spawn PointConfig `yaml:"spawn"`

	// Optimization controls what is overridden while a user is held.
	Optimization OptimizationConfig `yaml:"optimization"`

	// Connection controls the handoff retry protocol.
	Connection ConnectionConfig `yaml:"connection"`

	// Messages overrides message templates by key. Keys that are not
	// present use the built-in text.
	Messages map[string]string `yaml:"messages,omitempty"`

	// Sounds lists the cue names played during the countdown. Empty
	// means the built-in list.
	Sounds []string `yaml:"sounds,omitempty"`

	// Paths configures socket locations.
	Paths PathsConfig `yaml:"paths"`

	// Debug lowers the log level to debug.
	Debug bool `yaml:"debug"`

	adjustments []string
}

// QueueConfig controls admission and the countdown.
type QueueConfig struct {
	// Enabled is the admission policy. When false, joining users are
	// held without a countdown.
	Enabled bool `yaml:"enabled"`

	// Time is the countdown length in seconds. Clamped to 1..3600.
	Time int `yaml:"time"`

	// TargetServer is the destination named in the handoff request.
	TargetServer string `yaml:"target_server"`

	// DisabledMessage is shown as a title to users who join while the
	// policy is off, and periodically on the action bar.
	DisabledMessage string `yaml:"disabled_message"`

	// ShowDisabledMessage enables the periodic action bar notice.
	ShowDisabledMessage bool `yaml:"show_disabled_message"`

	// NotificationInterval is the period of the action bar notice in
	// seconds. Minimum 1.
	NotificationInterval int `yaml:"notification_interval"`

	// TickInterval is the countdown tick period.
	TickInterval time.Duration `yaml:"tick_interval"`

	// TicksPerSecond is how many ticks make one countdown second.
	TicksPerSecond int `yaml:"ticks_per_second"`
}

// PointConfig is a location in the holding area.
type PointConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// OptimizationConfig controls the overrides applied to held users.
type OptimizationConfig struct {
	SpectatorMode      bool `yaml:"spectator_mode"`
	ReduceViewDistance bool `yaml:"reduce_view_distance"`

	// QueueViewDistance is the view distance applied while held.
	// Clamped to 1..8.
	QueueViewDistance int `yaml:"queue_view_distance"`

	// ChunkManagement trims regions around the reference point on
	// admission.
	ChunkManagement bool `yaml:"chunk_management"`

	// AggressiveChunkManagement enforces MaxLoadedChunks on admission
	// and periodically while anyone is held.
	AggressiveChunkManagement bool `yaml:"aggressive_chunk_management"`

	// MaxLoadedChunks is the loaded region cap. Minimum 1.
	MaxLoadedChunks int `yaml:"max_loaded_chunks"`

	// ChunkLimitInterval is the period of cap enforcement.
	ChunkLimitInterval time.Duration `yaml:"chunk_limit_interval"`

	// DedicatedThreadPool runs countdown timing on a worker pool
	// instead of coordinator ticks.
	DedicatedThreadPool bool `yaml:"dedicated_thread_pool"`

	// ThreadPoolSize is the worker count. Minimum 1.
	ThreadPoolSize int `yaml:"thread_pool_size"`
}

// ConnectionConfig controls the handoff retry protocol.
type ConnectionConfig struct {
	// MaxRetries is the number of attempts before terminal failure.
	// Minimum 1.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the pause before a retry, in seconds. Minimum 0.
	RetryDelay int `yaml:"retry_delay"`

	// Timeout is how long an attempt may go unanswered.
	Timeout time.Duration `yaml:"timeout"`

	// SweepInterval is the period of the timeout sweep.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// Channel is the messaging channel the handoff travels on.
	Channel string `yaml:"channel"`
}

// PathsConfig configures socket locations.
type PathsConfig struct {
	// AdminSocket is where holdqd serves admin requests.
	AdminSocket string `yaml:"admin_socket"`

	// HostSocket is where the game host shim connects.
	HostSocket string `yaml:"host_socket"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Queue: QueueConfig{
			Enabled:              true,
			Time:                 10,
			TargetServer:         "smp",
			DisabledMessage:      "Queue is currently disabled",
			ShowDisabledMessage:  true,
			NotificationInterval: 5,
			TickInterval:         250 * time.Millisecond,
			TicksPerSecond:       4,
		},
		Spawn: PointConfig{X: -1.5, Y: 64, Z: 0.5},
		Optimization: OptimizationConfig{
			SpectatorMode:             true,
			ReduceViewDistance:        true,
			QueueViewDistance:         2,
			ChunkManagement:           true,
			AggressiveChunkManagement: true,
			MaxLoadedChunks:           9,
			ChunkLimitInterval:        10 * time.Second,
			DedicatedThreadPool:       false,
			ThreadPoolSize:            1,
		},
		Connection: ConnectionConfig{
			MaxRetries:    3,
			RetryDelay:    5,
			Timeout:       15 * time.Second,
			SweepInterval: 5 * time.Second,
			Channel:       "BungeeCord",
		},
		Paths: PathsConfig{
			AdminSocket: "/run/holdq/admin.sock",
			HostSocket:  "/run/holdq/host.sock",
		},
	}
}

// Load loads the file named by HOLDQ_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv("HOLDQ_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("HOLDQ_CONFIG environment variable not set; " +
			"set it to the path of your holdq.yaml, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads path over the defaults, expands variables in socket
// paths, clamps out-of-range values, and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	cfg.clamp()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Adjustments describes the values clamped by the last LoadFile.
func (c *Config) Adjustments() []string {
	return c.adjustments
}

// QueueDuration returns Queue.Time as a duration.
func (c *Config) QueueDuration() time.Duration {
	return time.Duration(c.Queue.Time) * time.Second
}

// RetryDelayDuration returns Connection.RetryDelay as a duration.
func (c *Config) RetryDelayDuration() time.Duration {
	return time.Duration(c.Connection.RetryDelay) * time.Second
}

// NotificationDuration returns Queue.NotificationInterval as a
// duration.
func (c *Config) NotificationDuration() time.Duration {
	return time.Duration(c.Queue.NotificationInterval) * time.Second
}

// SetQueueTime sets the countdown length, clamped to 1..3600, and
// returns the value stored.
func (c *Config) SetQueueTime(seconds int) int {
	c.Queue.Time = clampInt(seconds, 1, 3600)
	return c.Queue.Time
}

// SetMessage overrides one message template.
func (c *Config) SetMessage(key, template string) {
	if c.Messages == nil {
		c.Messages = make(map[string]string)
	}
	c.Messages[key] = template
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Messages != nil {
		clone.Messages = make(map[string]string, len(c.Messages))
		for key, value := range c.Messages {
			clone.Messages[key] = value
		}
	}
	clone.Sounds = append([]string(nil), c.Sounds...)
	clone.adjustments = append([]string(nil), c.adjustments...)
	return &clone
}

func (c *Config) clamp() {
	c.adjustments = nil
	adjust := func(field string, value *int, low, high int) {
		clamped := clampInt(*value, low, high)
		if clamped != *value {
			c.adjustments = append(c.adjustments,
				fmt.Sprintf("%s %d out of range, using %d", field, *value, clamped))
			*value = clamped
		}
	}
	const unbounded = int(^uint(0) >> 1)

	adjust("queue.time", &c.Queue.Time, 1, 3600)
	adjust("queue.notification_interval", &c.Queue.NotificationInterval, 1, unbounded)
	adjust("queue.ticks_per_second", &c.Queue.TicksPerSecond, 1, unbounded)
	adjust("optimization.queue_view_distance", &c.Optimization.QueueViewDistance, 1, 8)
	adjust("optimization.max_loaded_chunks", &c.Optimization.MaxLoadedChunks, 1, unbounded)
	adjust("optimization.thread_pool_size", &c.Optimization.ThreadPoolSize, 1, unbounded)
	adjust("connection.max_retries", &c.Connection.MaxRetries, 1, unbounded)
	adjust("connection.retry_delay", &c.Connection.RetryDelay, 0, unbounded)
}

func clampInt(value, low, high int) int {
	return max(low, min(value, high))
}

// Validate reports settings that clamping cannot repair.
func (c *Config) Validate() error {
	var errs []error

	if c.Queue.TargetServer == "" {
		errs = append(errs, errors.New("queue.target_server is required"))
	}
	if c.Queue.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("queue.tick_interval must be positive, got %v", c.Queue.TickInterval))
	}
	if c.Optimization.ChunkLimitInterval <= 0 {
		errs = append(errs, fmt.Errorf("optimization.chunk_limit_interval must be positive, got %v", c.Optimization.ChunkLimitInterval))
	}
	if c.Connection.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("connection.timeout must be positive, got %v", c.Connection.Timeout))
	}
	if c.Connection.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("connection.sweep_interval must be positive, got %v", c.Connection.SweepInterval))
	}
	if c.Connection.Channel == "" {
		errs = append(errs, errors.New("connection.channel is required"))
	}
	if c.Paths.AdminSocket == "" {
		errs = append(errs, errors.New("paths.admin_socket is required"))
	}
	if c.Paths.HostSocket == "" {
		errs = append(errs, errors.New("paths.host_socket is required"))
	}

	return errors.Join(errs...)
}

// Save writes the configuration to path atomically: a temporary file
// in the same directory is written, fsynced, and renamed into place.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating temporary config file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary config file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary config file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary config file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming config file into place: %w", err)
	}

	if parent, err := os.Open(filepath.Dir(path)); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in socket paths.
func (c *Config) expandVariables() {
	c.Paths.AdminSocket = expandVars(c.Paths.AdminSocket)
	c.Paths.HostSocket = expandVars(c.Paths.HostSocket)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}
