// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostlinktest is the shim's side of the host link, serving
// calls from a presence.Host, for tests of the daemon side.
package hostlinktest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/holdq/holdq/hostlink"
	"github.com/holdq/holdq/lib/codec"
	"github.com/holdq/holdq/presence"
)

// Handoff is one handoff request the daemon sent.
type Handoff struct {
	User    presence.UserID
	Channel string
	Payload []byte
}

// Peer is a connected shim.
type Peer struct {
	conn    net.Conn
	host    presence.Host
	decoder *codec.Decoder

	writeMu sync.Mutex
	encoder *codec.Encoder

	mu         sync.Mutex
	nextID     uint64
	acks       map[uint64]chan bool
	handoffs   []Handoff
	handoffErr error
}

// Dial connects to the host socket at path and says hello with the
// host's capabilities. Call Serve to answer calls.
func Dial(ctx context.Context, path string, host presence.Host) (*Peer, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	peer := &Peer{
		conn:    conn,
		host:    host,
		decoder: codec.NewDecoder(conn),
		encoder: codec.NewEncoder(conn),
		acks:    make(map[uint64]chan bool),
	}
	if err := peer.write(hostlink.Frame{Kind: hostlink.KindHello, Capabilities: host.Capabilities()}); err != nil {
		conn.Close()
		return nil, err
	}
	return peer, nil
}

// Close closes the connection.
func (p *Peer) Close() error { return p.conn.Close() }

// FailHandoffs makes every later handoff call fail with err; nil
// restores success.
func (p *Peer) FailHandoffs(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handoffErr = err
}

// Handoffs returns the handoff requests received so far.
func (p *Peer) Handoffs() []Handoff {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Handoff(nil), p.handoffs...)
}

// Serve answers calls until the connection ends.
func (p *Peer) Serve() error {
	for {
		var frame hostlink.Frame
		if err := p.decoder.Decode(&frame); err != nil {
			return err
		}
		switch frame.Kind {
		case hostlink.KindCall:
			p.write(p.answer(frame))
		case hostlink.KindAck:
			p.mu.Lock()
			ack, exists := p.acks[frame.ID]
			delete(p.acks, frame.ID)
			p.mu.Unlock()
			if exists {
				ack <- frame.Cancel
			}
		}
	}
}

// Emit sends event and waits for the daemon's decision. Serve must be
// running.
func (p *Peer) Emit(event hostlink.Event) (cancel bool, err error) {
	ack := make(chan bool, 1)
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.acks[id] = ack
	p.mu.Unlock()

	if err := p.write(hostlink.Frame{Kind: hostlink.KindEvent, ID: id, Event: &event}); err != nil {
		return false, err
	}
	select {
	case cancel := <-ack:
		return cancel, nil
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		return false, fmt.Errorf("no ack for %s event", event.Type)
	}
}

func (p *Peer) answer(call hostlink.Frame) hostlink.Frame {
	reply := hostlink.Frame{Kind: hostlink.KindReply, ID: call.ID}
	result, err := p.execute(call)
	switch {
	case errors.Is(err, presence.ErrUnsupported):
		reply.Unsupported = true
	case err != nil:
		reply.Error = err.Error()
	case result != nil:
		encoded, err := codec.Marshal(result)
		if err != nil {
			reply.Error = err.Error()
			break
		}
		reply.Result = encoded
	}
	return reply
}

func (p *Peer) execute(call hostlink.Frame) (any, error) {
	switch call.Op {
	case hostlink.OpPresent:
		return p.host.Present()
	case hostlink.OpTeleport:
		var args hostlink.TeleportArgs
		if err := codec.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		return nil, p.host.Teleport(args.User, args.To)
	case hostlink.OpSetGameMode:
		var args hostlink.GameModeArgs
		if err := codec.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		previous, err := p.host.SetGameMode(args.User, args.Mode)
		return hostlink.PreviousResult[presence.GameMode]{Previous: previous}, err
	case hostlink.OpSetViewDistance:
		var args hostlink.ViewDistanceArgs
		if err := codec.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		previous, err := p.host.SetViewDistance(args.User, args.Distance)
		return hostlink.PreviousResult[int]{Previous: previous}, err
	case hostlink.OpSetVisible:
		var args hostlink.VisibleArgs
		if err := codec.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		return nil, p.host.SetVisible(args.User, args.Other, args.Visible)
	case hostlink.OpLoadedRegions:
		return p.host.LoadedRegions()
	case hostlink.OpUnloadRegion:
		var args hostlink.RegionArgs
		if err := codec.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		return nil, p.host.UnloadRegion(args.Region)
	case hostlink.OpSendMessage, hostlink.OpActionBar:
		var args hostlink.TextArgs
		if err := codec.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		if call.Op == hostlink.OpActionBar {
			return nil, p.host.ActionBar(args.User, args.Text)
		}
		return nil, p.host.SendMessage(args.User, args.Text)
	case hostlink.OpTitle:
		var args hostlink.TitleArgs
		if err := codec.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		return nil, p.host.Title(args.User, args.Title)
	case hostlink.OpPlaySound:
		var args hostlink.SoundArgs
		if err := codec.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		return nil, p.host.PlaySound(args.User, args.Sound, args.Volume, args.Pitch)
	case hostlink.OpSendHandoff:
		var args hostlink.HandoffArgs
		if err := codec.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.handoffErr != nil {
			return nil, p.handoffErr
		}
		p.handoffs = append(p.handoffs, Handoff{User: args.User, Channel: args.Channel, Payload: args.Payload})
		return nil, nil
	}
	return nil, fmt.Errorf("unknown op %q", call.Op)
}

// WriteRaw sends v to the daemon as a frame without checking its
// shape.
func (p *Peer) WriteRaw(v any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.encoder.Encode(v)
}

func (p *Peer) write(frame hostlink.Frame) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.encoder.Encode(frame)
}
