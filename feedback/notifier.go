// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package feedback

import (
	"errors"
	"log/slog"
	"time"

	"github.com/holdq/holdq/presence"
)

// Title fade timings.
const (
	titleFadeIn  = 500 * time.Millisecond
	titleStay    = 3500 * time.Millisecond
	titleFadeOut = time.Second
)

// Notifier delivers catalog messages and cues to users. Delivery
// failures are logged and otherwise ignored: a message that does not
// arrive never changes queue state. Only the coordinating loop uses a
// Notifier.
type Notifier struct {
	adapter presence.Adapter
	catalog *Catalog
	cues    *Cues
	logger  *slog.Logger
}

// NewNotifier returns a Notifier delivering through adapter.
func NewNotifier(adapter presence.Adapter, catalog *Catalog, cues *Cues, logger *slog.Logger) *Notifier {
	return &Notifier{adapter: adapter, catalog: catalog, cues: cues, logger: logger}
}

// Catalog returns the catalog the Notifier renders from.
func (n *Notifier) Catalog() *Catalog { return n.catalog }

// Cues returns the cue picker.
func (n *Notifier) Cues() *Cues { return n.cues }

// Message sends a chat message rendered from key.
func (n *Notifier) Message(user presence.UserID, key string, args ...any) {
	n.report("message", user, n.adapter.SendMessage(user, n.catalog.Format(key, args...)))
}

// ActionBar shows the message rendered from key on the action bar.
func (n *Notifier) ActionBar(user presence.UserID, key string, args ...any) {
	n.ActionBarText(user, n.catalog.Format(key, args...))
}

// ActionBarText shows literal text on the action bar. & colour codes
// are translated.
func (n *Notifier) ActionBarText(user presence.UserID, text string) {
	n.report("action_bar", user, n.adapter.ActionBar(user, TranslateColors(text)))
}

// Title shows a title and subtitle, both already rendered.
func (n *Notifier) Title(user presence.UserID, title, subtitle string) {
	n.report("title", user, n.adapter.Title(user, presence.Title{
		Title:    TranslateColors(title),
		Subtitle: TranslateColors(subtitle),
		FadeIn:   titleFadeIn,
		Stay:     titleStay,
		FadeOut:  titleFadeOut,
	}))
}

// Cue plays a random sound if the host can play sounds, reporting
// whether it was played.
func (n *Notifier) Cue(user presence.UserID) bool {
	if !n.adapter.Supports(presence.CapSound) {
		return false
	}
	cue := n.cues.Pick()
	err := n.adapter.PlaySound(user, cue.Sound, cue.Volume, cue.Pitch)
	n.report("sound", user, err)
	return err == nil
}

func (n *Notifier) report(op string, user presence.UserID, err error) {
	switch {
	case err == nil:
	case errors.Is(err, presence.ErrUnsupported):
		n.logger.Debug("feedback skipped, unsupported by host", "op", op, "user", user)
	default:
		n.logger.Warn("feedback delivery failed", "op", op, "user", user, "error", err)
	}
}
