// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	internal_session "github.com/intervuai/api/interview-api/internal/session"
	"github.com/intervuai/pkg/commons"
)

// ErrRecordingActive is returned by SaveNow while a recording is running.
// A manual save would commit a half-spoken answer; the candidate must pause
// first.
var ErrRecordingActive = errors.New("cannot save while recording is active")

// DraftSaver persists one draft snapshot.
type DraftSaver interface {
	SaveDraft(ctx context.Context, d *internal_session.Draft) error
}

// Autosaver periodically persists interview progress so an interrupted
// session can be resumed. The periodic save only fires while the interview
// is live, meaning recording or paused; an idle interview between questions
// has nothing new worth saving.
type Autosaver struct {
	logger commons.Logger
	runner *Runner
	saver  DraftSaver
	clock  func() time.Time
	task   *RepeatTask
}

// NewAutosaver wires the autosave loop for one runner. interval <= 0 selects
// the one-minute default.
func NewAutosaver(logger commons.Logger, runner *Runner, saver DraftSaver, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = time.Minute
	}
	a := &Autosaver{
		logger: logger,
		runner: runner,
		saver:  saver,
		clock:  time.Now,
	}
	a.task = NewRepeatTask(interval, false, a.tick)
	return a
}

// Start begins the periodic autosave loop.
func (a *Autosaver) Start() {
	a.task.Start()
}

// Stop halts the loop. Idempotent.
func (a *Autosaver) Stop() {
	a.task.Stop()
}

// tick takes one draft snapshot and persists it. Failures are logged and
// left for the next tick; progress stays in memory either way.
func (a *Autosaver) tick(ctx context.Context) {
	d, state := a.runner.SnapshotDraft()
	if state == internal_session.StateIdle {
		return
	}
	d.SavedAt = a.clock()
	if err := a.saver.SaveDraft(ctx, d); err != nil {
		a.logger.Warnf("autosave failed, will retry next interval: %v", err)
		return
	}
	a.logger.Debugf("autosaved draft: session=%s, question=%d", d.SessionID, d.CurrentQuestion)
}

// SaveNow persists a draft on demand, for an explicit pause-and-leave flow.
// It refuses while recording is active.
func (a *Autosaver) SaveNow(ctx context.Context) error {
	d, state := a.runner.SnapshotDraft()
	if state == internal_session.StateRecording {
		return ErrRecordingActive
	}
	d.SavedAt = a.clock()
	if err := a.saver.SaveDraft(ctx, d); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}
