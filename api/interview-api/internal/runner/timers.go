// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_runner

import (
	"sync"
	"time"
)

// ElapsedTimer accumulates wall-clock time across start/stop cycles. Used
// for the interview-total and per-answer counters; the answer timer is
// additionally Reset on every new answer.
type ElapsedTimer struct {
	mu          sync.Mutex
	clock       func() time.Time
	accumulated time.Duration
	startedAt   time.Time
	running     bool
}

// NewElapsedTimer returns a stopped timer at zero.
func NewElapsedTimer(clock func() time.Time) *ElapsedTimer {
	if clock == nil {
		clock = time.Now
	}
	return &ElapsedTimer{clock: clock}
}

// Start begins (or continues) counting. Starting a running timer is a no-op.
func (t *ElapsedTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.startedAt = t.clock()
}

// Stop pauses counting, keeping the accumulated total. Idempotent.
func (t *ElapsedTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.accumulated += t.clock().Sub(t.startedAt)
	t.running = false
}

// Reset zeroes the timer; a running timer keeps running from now.
func (t *ElapsedTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accumulated = 0
	if t.running {
		t.startedAt = t.clock()
	}
}

// Elapsed returns the total counted time so far.
func (t *ElapsedTimer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return t.accumulated + t.clock().Sub(t.startedAt)
	}
	return t.accumulated
}
