// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_runner

import (
	"context"
	"sync"
	"time"
)

// RepeatTask is a cancelable repeating task. The next run is scheduled only
// after the previous invocation returns, so a slow callback delays the
// cadence instead of stacking invocations: at most one is ever in flight.
//
// Every Start opens a new generation; Stop supersedes it. An invocation that
// was already pending when Stop ran observes the generation mismatch and
// becomes a no-op, so callbacks never fire after cancellation.
type RepeatTask struct {
	interval time.Duration
	fn       func(context.Context)
	// immediate runs the first invocation right away instead of waiting one
	// interval (the analysis loop wants a sample at recording start).
	immediate bool

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewRepeatTask builds a stopped task; Start arms it.
func NewRepeatTask(interval time.Duration, immediate bool, fn func(context.Context)) *RepeatTask {
	return &RepeatTask{
		interval:  interval,
		immediate: immediate,
		fn:        fn,
	}
}

// Start arms the task. Starting a running task is a no-op.
func (t *RepeatTask) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}
	t.generation++
	gen := t.generation
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.loop(ctx, gen)
}

// Stop cancels the task synchronously. Stopping a stopped task is a no-op.
func (t *RepeatTask) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	// Bump the generation even when already stopped so that any invocation
	// still draining observes it is superseded.
	t.generation++
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (t *RepeatTask) alive(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation == gen
}

func (t *RepeatTask) loop(ctx context.Context, gen uint64) {
	if t.immediate {
		if !t.alive(gen) {
			return
		}
		t.fn(ctx)
	}
	for {
		timer := time.NewTimer(t.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if !t.alive(gen) {
			return
		}
		t.fn(ctx)
	}
}
