// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package handoff encodes the two-message sub-protocol that moves a
// user to another server through the proxy's messaging channel.
//
// The outbound request is two strings, "Connect" and the target server
// name, each written as a big-endian uint16 byte length followed by
// the string's bytes. The proxy reads these as modified UTF-8, which
// matches plain UTF-8 only for text without NUL and within the Basic
// Multilingual Plane, so EncodeConnect rejects anything else. The
// proxy reports a failed move with an inbound
// message on the same channel whose payload, read as UTF-8, begins
// with "ConnectFailed". The inbound message carries no correlation ID:
// the user it concerns is the user it was delivered to.
package handoff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/holdq/holdq/presence"
)

const (
	// ConnectCommand is the first string of a handoff request.
	ConnectCommand = "Connect"

	// FailurePrefix begins every inbound failure report.
	FailurePrefix = "ConnectFailed"

	maxStringLength = 0xffff
)

// ErrMalformedMessage is returned for inbound payloads that are not a
// handoff failure report. Callers log and ignore them.
var ErrMalformedMessage = errors.New("handoff: malformed inbound message")

// Gateway delivers handoff requests for one user over a named channel.
// Only the coordinating loop calls SendHandoff.
type Gateway interface {
	SendHandoff(user presence.UserID, channel string, payload []byte) error
}

// EncodeConnect builds the outbound request for target. Targets
// containing NUL, runes above U+FFFF, or invalid UTF-8 are rejected.
func EncodeConnect(target string) ([]byte, error) {
	var buffer bytes.Buffer
	for _, field := range []string{ConnectCommand, target} {
		if err := writeString(&buffer, field); err != nil {
			return nil, err
		}
	}
	return buffer.Bytes(), nil
}

// DecodeConnect parses an outbound request and returns its target.
// holdq never receives these; tests use it to inspect what was sent.
func DecodeConnect(payload []byte) (string, error) {
	reader := bytes.NewReader(payload)
	command, err := readString(reader)
	if err != nil {
		return "", err
	}
	if command != ConnectCommand {
		return "", fmt.Errorf("%w: command %q", ErrMalformedMessage, command)
	}
	target, err := readString(reader)
	if err != nil {
		return "", err
	}
	if reader.Len() != 0 {
		return "", fmt.Errorf("%w: %d trailing bytes", ErrMalformedMessage, reader.Len())
	}
	return target, nil
}

// Failure is an inbound failure report.
type Failure struct {
	// Reason is whatever followed the prefix, trimmed; often empty.
	Reason string
}

// ParseFailure interprets an inbound payload. Payloads that do not
// begin with FailurePrefix, or that are not valid UTF-8, return
// ErrMalformedMessage.
func ParseFailure(payload []byte) (Failure, error) {
	if !utf8.Valid(payload) {
		return Failure{}, fmt.Errorf("%w: not UTF-8", ErrMalformedMessage)
	}
	text := string(payload)
	if !strings.HasPrefix(text, FailurePrefix) {
		return Failure{}, fmt.Errorf("%w: %q", ErrMalformedMessage, truncate(text, 32))
	}
	reason := strings.TrimFunc(text[len(FailurePrefix):], func(r rune) bool {
		return r <= ' ' || r == ':'
	})
	return Failure{Reason: reason}, nil
}

func writeString(buffer *bytes.Buffer, s string) error {
	if len(s) > maxStringLength {
		return fmt.Errorf("handoff: string of %d bytes exceeds %d", len(s), maxStringLength)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("handoff: string %q is not valid UTF-8", s)
	}
	for _, r := range s {
		if r == 0 || r > 0xffff {
			return fmt.Errorf("handoff: string %q has rune %U outside modified UTF-8's common form", s, r)
		}
	}
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(s)))
	buffer.Write(length[:])
	buffer.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return "", fmt.Errorf("%w: reading length: %v", ErrMalformedMessage, err)
	}
	if int(length) > reader.Len() {
		return "", fmt.Errorf("%w: length %d exceeds remaining %d bytes", ErrMalformedMessage, length, reader.Len())
	}
	data := make([]byte, length)
	reader.Read(data)
	return string(data), nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut] + "..."
}
