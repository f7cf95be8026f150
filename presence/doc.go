// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package presence is holdq's view of the game host: who is online and
// what can be done to them.
//
// [Host] is the raw operation set the host shim exposes (hostlink
// implements it over the host socket). Hosts differ in what they
// support, so holdq never calls a Host directly. At startup [Select]
// reads the host's advertised capabilities once and returns the
// [Adapter] for its tier:
//
//   - [TierFull]: every operation.
//   - [TierStandard]: no per-user view distance; action bar text falls
//     back to chat.
//   - [TierMinimal]: teleport, game mode, and chat only. Titles fall
//     back to chat; visibility, regions, and sounds are unsupported.
//
// Resource operations a tier lacks return [ErrUnsupported]. Callers
// check [Adapter.Supports] first and skip the step; an unsupported
// operation is never fatal.
package presence
