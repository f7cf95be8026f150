// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package hostlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/holdq/holdq/lib/codec"
	"github.com/holdq/holdq/presence"
)

// DefaultCallTimeout bounds a call when the Link was given none.
const DefaultCallTimeout = 5 * time.Second

// ErrNotConnected is returned by calls on a closed Link.
var ErrNotConnected = errors.New("hostlink: not connected")

// CallError is a failure the shim reported for a call.
type CallError struct {
	Op      string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("hostlink: %s: %s", e.Op, e.Message)
}

// Link is the daemon's end of an accepted shim connection. Calls may
// be made from any goroutine, but they complete only while Run is
// reading.
type Link struct {
	conn         net.Conn
	capabilities []presence.Capability
	timeout      time.Duration
	logger       *slog.Logger

	// decoder is the one that read the hello; it may already hold
	// buffered frames.
	decoder *codec.Decoder

	writeMu sync.Mutex
	encoder *codec.Encoder

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Frame

	closed    chan struct{}
	closeOnce sync.Once
}

func newLink(conn net.Conn, decoder *codec.Decoder, capabilities []presence.Capability, timeout time.Duration, logger *slog.Logger) *Link {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Link{
		conn:         conn,
		capabilities: capabilities,
		timeout:      timeout,
		logger:       logger,
		decoder:      decoder,
		encoder:      codec.NewEncoder(conn),
		pending:      make(map[uint64]chan Frame),
		closed:       make(chan struct{}),
	}
}

// Capabilities returns what the shim advertised in its hello.
func (l *Link) Capabilities() []presence.Capability {
	return slices.Clone(l.capabilities)
}

// Done is closed when the link is closed.
func (l *Link) Done() <-chan struct{} { return l.closed }

// Close closes the connection. Calls waiting for replies fail with
// ErrNotConnected.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.conn.Close()
	})
	return err
}

// Run reads frames until the connection ends or ctx is done, routing
// replies to their calls and events to handler. It always returns an
// error: ctx.Err() on cancellation, otherwise why the connection
// ended. The Link is closed on return.
func (l *Link) Run(ctx context.Context, handler EventHandler) error {
	defer l.Close()

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	for {
		var raw codec.RawMessage
		if err := l.decoder.Decode(&raw); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("host disconnected: %w", ErrNotConnected)
			}
			return fmt.Errorf("reading host frame: %w", err)
		}
		var frame Frame
		if err := codec.Unmarshal(raw, &frame); err != nil {
			// A well-formed item with the wrong shape leaves the stream
			// in sync, so skip it.
			notation, _ := codec.Diagnose(raw)
			l.logger.Warn("undecodable frame from host", "error", err, "frame", notation)
			continue
		}

		switch frame.Kind {
		case KindReply:
			l.resolve(frame)
		case KindEvent:
			l.dispatch(frame, handler)
		default:
			l.logger.Warn("unexpected frame from host", "kind", frame.Kind, "id", frame.ID)
		}
	}
}

func (l *Link) resolve(frame Frame) {
	l.mu.Lock()
	reply, exists := l.pending[frame.ID]
	delete(l.pending, frame.ID)
	l.mu.Unlock()
	if !exists {
		l.logger.Debug("reply for unknown call", "id", frame.ID)
		return
	}
	reply <- frame
}

func (l *Link) dispatch(frame Frame, handler EventHandler) {
	if frame.Event == nil {
		l.logger.Warn("event frame without an event", "id", frame.ID)
		return
	}
	cancel := handler.HandleEvent(*frame.Event)
	if err := l.write(Frame{Kind: KindAck, ID: frame.ID, Cancel: cancel}); err != nil {
		l.logger.Debug("acknowledging event failed", "id", frame.ID, "error", err)
	}
}

// call sends op and waits for its reply, decoding the result into
// result when both are present.
func (l *Link) call(op string, args, result any) error {
	var raw codec.RawMessage
	if args != nil {
		encoded, err := codec.Marshal(args)
		if err != nil {
			return fmt.Errorf("hostlink: encoding %s arguments: %w", op, err)
		}
		raw = encoded
	}

	reply := make(chan Frame, 1)
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.pending[id] = reply
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.pending, id)
		l.mu.Unlock()
	}()

	if err := l.write(Frame{Kind: KindCall, ID: id, Op: op, Args: raw}); err != nil {
		return err
	}

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	var frame Frame
	select {
	case frame = <-reply:
	case <-l.closed:
		return ErrNotConnected
	case <-timer.C:
		return fmt.Errorf("hostlink: %s: no reply within %v", op, l.timeout)
	}

	switch {
	case frame.Unsupported:
		return fmt.Errorf("hostlink: %s: %w", op, presence.ErrUnsupported)
	case frame.Error != "":
		return &CallError{Op: op, Message: frame.Error}
	}
	if result != nil && len(frame.Result) > 0 {
		if err := codec.Unmarshal(frame.Result, result); err != nil {
			return fmt.Errorf("hostlink: decoding %s result: %w", op, err)
		}
	}
	return nil
}

func (l *Link) write(frame Frame) error {
	select {
	case <-l.closed:
		return ErrNotConnected
	default:
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := l.conn.SetWriteDeadline(time.Now().Add(l.timeout)); err != nil {
		return fmt.Errorf("hostlink: setting deadline for %s frame: %w", frame.Kind, err)
	}
	if err := l.encoder.Encode(frame); err != nil {
		return fmt.Errorf("hostlink: writing %s frame: %w", frame.Kind, err)
	}
	return nil
}
