// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package hostlink

import (
	"github.com/holdq/holdq/handoff"
	"github.com/holdq/holdq/presence"
)

var (
	_ presence.Host  = (*Link)(nil)
	_ handoff.Gateway = (*Link)(nil)
)

// The presence.Host and handoff.Gateway methods below each make one
// call to the shim.

func (l *Link) Present() ([]presence.User, error) {
	var users []presence.User
	if err := l.call(OpPresent, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (l *Link) Teleport(user presence.UserID, to presence.Point) error {
	return l.call(OpTeleport, TeleportArgs{User: user, To: to}, nil)
}

func (l *Link) SetGameMode(user presence.UserID, mode presence.GameMode) (presence.GameMode, error) {
	var result PreviousResult[presence.GameMode]
	err := l.call(OpSetGameMode, GameModeArgs{User: user, Mode: mode}, &result)
	return result.Previous, err
}

func (l *Link) SetViewDistance(user presence.UserID, distance int) (int, error) {
	var result PreviousResult[int]
	err := l.call(OpSetViewDistance, ViewDistanceArgs{User: user, Distance: distance}, &result)
	return result.Previous, err
}

func (l *Link) SetVisible(user, other presence.UserID, visible bool) error {
	return l.call(OpSetVisible, VisibleArgs{User: user, Other: other, Visible: visible}, nil)
}

func (l *Link) LoadedRegions() ([]presence.Region, error) {
	var regions []presence.Region
	if err := l.call(OpLoadedRegions, nil, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

func (l *Link) UnloadRegion(region presence.Region) error {
	return l.call(OpUnloadRegion, RegionArgs{Region: region}, nil)
}

func (l *Link) SendMessage(user presence.UserID, text string) error {
	return l.call(OpSendMessage, TextArgs{User: user, Text: text}, nil)
}

func (l *Link) ActionBar(user presence.UserID, text string) error {
	return l.call(OpActionBar, TextArgs{User: user, Text: text}, nil)
}

func (l *Link) Title(user presence.UserID, title presence.Title) error {
	return l.call(OpTitle, TitleArgs{User: user, Title: title}, nil)
}

func (l *Link) PlaySound(user presence.UserID, sound presence.Sound, volume, pitch float32) error {
	return l.call(OpPlaySound, SoundArgs{User: user, Sound: sound, Volume: volume, Pitch: pitch}, nil)
}

// SendHandoff delivers a handoff request on the user's connection.
func (l *Link) SendHandoff(user presence.UserID, channel string, payload []byte) error {
	return l.call(OpSendHandoff, HandoffArgs{User: user, Channel: channel, Payload: payload}, nil)
}
