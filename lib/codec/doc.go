// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds holdq's single CBOR configuration.
//
// Both of holdq's wire protocols are CBOR: the admin socket
// (lib/service) and the host link between holdqd and the game host
// shim (hostlink). Everything encodes through this package so the two
// sides of each socket agree on the options without repeating them.
//
// Encoding is Core Deterministic (RFC 8949 §4.2). Decoding ignores
// unknown fields, so a newer shim can add fields without breaking an
// older daemon. Types implementing encoding.TextMarshaler, notably
// presence.UserID, travel as CBOR text strings.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Use `cbor` struct tags for link frames that never leave the socket
// and `json` tags for admin types the CLI may also print as JSON.
package codec
