// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package service implements holdq's admin socket protocol.
//
// The protocol is one CBOR request and one CBOR response per
// connection over a Unix socket. A request is a CBOR map with an
// "action" key naming the handler plus whatever fields that action
// takes. The response is a [Response] envelope: ok, an error string on
// failure, and an optional CBOR data item on success.
//
// holdqd serves it with [SocketServer]; the holdq CLI calls it with
// [Client]. Access control is the socket file's permissions: the
// server creates the socket with mode 0660 so only the daemon's user
// and group can reach it.
package service
