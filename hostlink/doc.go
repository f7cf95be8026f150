// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostlink connects holdqd to the game host.
//
// The host runs a small shim that dials holdqd's host socket. Both
// sides exchange CBOR [Frame] values, one after another, on the same
// connection:
//
//	Shim → Daemon: Frame{Kind: "hello", Capabilities: [...]}    (once, first)
//	Daemon → Shim: Frame{Kind: "call", ID, Op, Args}
//	Shim → Daemon: Frame{Kind: "reply", ID, Result | Error | Unsupported}
//	Shim → Daemon: Frame{Kind: "event", ID, Event}
//	Daemon → Shim: Frame{Kind: "ack", ID, Cancel}
//
// Calls carry the presence operations and handoff sends, so a [Link]
// is both a [presence.Host] and a [handoff.Gateway]. Events are what
// happens to users on the host; each is answered with whether the host
// should cancel it.
//
// Only a peer running as the daemon's own user, or as root, may
// connect.
package hostlink
