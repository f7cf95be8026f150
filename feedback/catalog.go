// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package feedback turns holdq events into what a user sees and hears:
// message templates from a keyed catalog, and a randomly chosen sound
// cue for each countdown second. A [Notifier] delivers both through
// the presence adapter.
package feedback

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
)

// Message keys.
const (
	WelcomeTitle        = "welcome_title"
	WelcomeSubtitle     = "welcome_subtitle"
	Countdown           = "countdown"
	FrozenPlayer        = "frozen_player"
	QueueDisabledTitle  = "queue_disabled_title"
	QueueDisabledPlayer = "queue_disabled_player"
	ConnectionFailed    = "connection_failed"
	ConnectionError     = "connection_error"
	ConnectionTimeout   = "connection_timeout"
	MaxRetriesReached   = "max_retries_reached"
	BackInQueue         = "back_in_queue"
	CommandsBlocked     = "commands_blocked"
)

var defaultMessages = map[string]string{
	WelcomeTitle:        "&6Welcome!",
	WelcomeSubtitle:     "&eYou will be transferred in &6%d &eseconds",
	Countdown:           "&eTransfer in &6%d &eseconds...",
	FrozenPlayer:        "&cYou are currently frozen in the lobby.",
	QueueDisabledTitle:  "&cQueue Disabled",
	QueueDisabledPlayer: "&cQueue system has been disabled. You are no longer in queue.",
	ConnectionFailed:    "&cConnection to the server failed. Retrying...",
	ConnectionError:     "&cCould not connect to the server. &eError: %s",
	ConnectionTimeout:   "&cConnection timed out. Retrying in %d seconds...",
	MaxRetriesReached:   "&cCould not connect after %d attempts. Please try again later.",
	BackInQueue:         "&eYou've been placed back in the queue due to connection issues.",
	CommandsBlocked:     "&cCommands are blocked during server connection attempts.",
}

// DefaultMessages returns a copy of the built-in templates.
func DefaultMessages() map[string]string {
	return maps.Clone(defaultMessages)
}

// Catalog renders message templates. Templates use & colour codes,
// translated to the host's section-sign form, and fmt verbs for their
// arguments. Catalog is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewCatalog returns the built-in templates with overrides applied.
func NewCatalog(overrides map[string]string) *Catalog {
	catalog := &Catalog{}
	catalog.Replace(overrides)
	return catalog
}

// Replace discards earlier overrides and applies these instead.
func (c *Catalog) Replace(overrides map[string]string) {
	templates := DefaultMessages()
	maps.Copy(templates, overrides)
	c.mu.Lock()
	c.templates = templates
	c.mu.Unlock()
}

// Keys returns every known message key, sorted.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.templates))
	for key := range c.templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Format renders key with args. Unknown keys render as a visible
// placeholder rather than failing.
func (c *Catalog) Format(key string, args ...any) string {
	c.mu.RLock()
	template, ok := c.templates[key]
	c.mu.RUnlock()
	if !ok {
		return "Missing message: " + key
	}
	if len(args) > 0 {
		template = fmt.Sprintf(template, args...)
	}
	return TranslateColors(template)
}

const colorCodes = "0123456789abcdefklmnorABCDEFKLMNOR"

// TranslateColors replaces &x colour codes with §x.
func TranslateColors(text string) string {
	if !strings.Contains(text, "&") {
		return text
	}
	var builder strings.Builder
	builder.Grow(len(text) + 8)
	for i := 0; i < len(text); i++ {
		if text[i] == '&' && i+1 < len(text) && strings.IndexByte(colorCodes, text[i+1]) >= 0 {
			builder.WriteString("§")
			builder.WriteByte(toLower(text[i+1]))
			i++
			continue
		}
		builder.WriteByte(text[i])
	}
	return builder.String()
}

func toLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
