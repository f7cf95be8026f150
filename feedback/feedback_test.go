// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package feedback

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/holdq/holdq/presence"
	"github.com/holdq/holdq/presence/presencetest"
)

func TestFormatTranslatesColorsAndArgs(t *testing.T) {
	catalog := NewCatalog(nil)
	if got, want := catalog.Format(Countdown, 7), "§eTransfer in §67 §eseconds..."; got != want {
		t.Fatalf("Format(countdown, 7) = %q, want %q", got, want)
	}
}

func TestFormatOverridesAndMissing(t *testing.T) {
	catalog := NewCatalog(map[string]string{Countdown: "&AGo in %d"})
	if got := catalog.Format(Countdown, 3); got != "§aGo in 3" {
		t.Errorf("override = %q", got)
	}
	if got := catalog.Format(FrozenPlayer); got != "§cYou are currently frozen in the lobby." {
		t.Errorf("default kept = %q", got)
	}
	if got := catalog.Format("no_such_key"); got != "Missing message: no_such_key" {
		t.Errorf("missing = %q", got)
	}

	catalog.Replace(nil)
	if got := catalog.Format(Countdown, 3); got != "§eTransfer in §63 §eseconds..." {
		t.Errorf("after Replace(nil) = %q, want the default", got)
	}
}

func TestTranslateColorsLeavesOtherAmpersands(t *testing.T) {
	tests := map[string]string{
		"Tom & Jerry": "Tom & Jerry",
		"&zoops":      "&zoops",
		"trailing &":  "trailing &",
		"&l&nBold":    "§l§nBold",
	}
	for input, want := range tests {
		if got := TranslateColors(input); got != want {
			t.Errorf("TranslateColors(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCatalogKeysIncludeDefaults(t *testing.T) {
	keys := NewCatalog(map[string]string{"custom": "x"}).Keys()
	for _, key := range []string{WelcomeTitle, BackInQueue, CommandsBlocked, "custom"} {
		if !slices.Contains(keys, key) {
			t.Errorf("Keys() missing %q", key)
		}
	}
}

func TestCuesRanges(t *testing.T) {
	cues := NewCues(nil, rand.New(rand.NewPCG(1, 2)))
	for range 500 {
		cue := cues.Pick()
		if !slices.Contains(defaultSounds, cue.Sound) {
			t.Fatalf("sound %q not in the default list", cue.Sound)
		}
		if cue.Volume < 0.5 || cue.Volume > 1.0 {
			t.Fatalf("volume %v outside [0.5, 1.0]", cue.Volume)
		}
		if cue.Pitch < 0.8 || cue.Pitch > 1.2 {
			t.Fatalf("pitch %v outside [0.8, 1.2]", cue.Pitch)
		}
	}
}

func TestCuesConfiguredList(t *testing.T) {
	cues := NewCues([]string{"ui.button.click"}, rand.New(rand.NewPCG(3, 4)))
	if got := cues.Pick().Sound; got != "ui.button.click" {
		t.Fatalf("Pick().Sound = %q", got)
	}
}

func newNotifier(t *testing.T, capabilities ...presence.Capability) (*Notifier, *presencetest.Host) {
	t.Helper()
	host := presencetest.NewHost(capabilities...)
	adapter, err := presence.Select(host)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNotifier(adapter, NewCatalog(nil), NewCues(nil, rand.New(rand.NewPCG(5, 6))), logger), host
}

func TestNotifierDelivers(t *testing.T) {
	notifier, host := newNotifier(t)
	user := uuid.New()

	notifier.Message(user, MaxRetriesReached, 3)
	notifier.ActionBar(user, Countdown, 4)
	notifier.Title(user, "&6Hi", "&eThere")
	if !notifier.Cue(user) {
		t.Error("Cue reported no sound on a full host")
	}

	deliveries := host.Deliveries(user)
	if len(deliveries) != 4 {
		t.Fatalf("deliveries = %+v, want 4", deliveries)
	}
	if deliveries[0].Text != "§cCould not connect after 3 attempts. Please try again later." {
		t.Errorf("message = %q", deliveries[0].Text)
	}
	if deliveries[2].Text != "§6Hi|§eThere" {
		t.Errorf("title = %q", deliveries[2].Text)
	}
	if deliveries[3].Kind != "sound" {
		t.Errorf("fourth delivery = %+v, want a sound", deliveries[3])
	}
}

func TestNotifierSkipsSoundOnMinimalHost(t *testing.T) {
	notifier, host := newNotifier(t, presence.TierMinimal.Capabilities()...)
	user := uuid.New()
	if notifier.Cue(user) {
		t.Error("Cue reported a sound on a host without sound")
	}
	if calls := host.Calls(); len(calls) != 0 {
		t.Fatalf("Cue reached a host without sound: %v", calls)
	}
}

func TestNotifierSurvivesDeliveryFailure(t *testing.T) {
	notifier, host := newNotifier(t)
	host.Fail("message", io.ErrClosedPipe)
	user := uuid.New()
	notifier.Message(user, BackInQueue)
	if host.CallCount("message", user) != 1 {
		t.Fatal("message was not attempted")
	}
}
