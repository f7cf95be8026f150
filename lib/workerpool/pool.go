// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a fixed-size goroutine pool.
//
// holdq uses it for the dedicated-pool countdown mode: each held user's
// countdown occupies one worker for its duration, sleeping between
// seconds and posting each step back to the coordinating loop. Workers
// never touch shared state directly. When every worker is busy,
// submissions queue and start as workers free up.
package workerpool

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("workerpool: closed")

// Pool runs submitted functions on at most Size goroutines.
type Pool struct {
	size int

	mu      sync.Mutex
	backlog []func()
	running int
	closed  bool

	workers sync.WaitGroup
}

// New returns a pool with size workers. Sizes below 1 are raised to 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size}
}

// Size returns the maximum number of concurrent workers.
func (p *Pool) Size() int { return p.size }

// Submit queues fn. It never blocks.
func (p *Pool) Submit(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.running < p.size {
		p.running++
		p.workers.Add(1)
		go p.work(fn)
		return nil
	}
	p.backlog = append(p.backlog, fn)
	return nil
}

// work runs fn and then drains the backlog until it is empty.
func (p *Pool) work(fn func()) {
	defer p.workers.Done()
	for fn != nil {
		fn()

		p.mu.Lock()
		if len(p.backlog) == 0 {
			p.running--
			fn = nil
		} else {
			fn = p.backlog[0]
			p.backlog = p.backlog[1:]
		}
		p.mu.Unlock()
	}
}

// Backlog returns the number of submitted functions waiting for a
// worker.
func (p *Pool) Backlog() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.backlog)
}

// Close stops accepting work, discards the backlog, and waits for
// running functions to return. Running functions are expected to
// observe their own cancellation; Close does not interrupt them.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.backlog = nil
	p.mu.Unlock()
	p.workers.Wait()
}
