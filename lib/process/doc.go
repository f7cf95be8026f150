// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the one piece of raw output a holdq binary
// needs outside its logger: reporting the error that made run() fail.
package process
