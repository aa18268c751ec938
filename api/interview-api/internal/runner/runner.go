// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	internal_proctor "github.com/intervuai/api/interview-api/internal/proctor"
	internal_sensor "github.com/intervuai/api/interview-api/internal/sensor"
	internal_session "github.com/intervuai/api/interview-api/internal/session"
	"github.com/intervuai/pkg/commons"
	"github.com/intervuai/pkg/utils"
)

// ErrInvalidTransition is returned when an operation is not valid in the
// current recording state.
var ErrInvalidTransition = errors.New("invalid recording state transition")

// Observer receives the transient candidate-facing signals: the live
// transcript preview and interviewer status messages. Neither is ever
// persisted as answer text.
type Observer interface {
	TranscriptPreview(text string)
	Status(message string)
}

// Config carries the monitoring cadences. Zero values select the tuned
// defaults.
type Config struct {
	SnapshotInterval  time.Duration
	LoudnessInterval  time.Duration
	AnalysisInterval  time.Duration
	LoudnessThreshold float64
}

func (c Config) withDefaults() Config {
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = 5 * time.Second
	}
	if c.LoudnessInterval <= 0 {
		c.LoudnessInterval = 2 * time.Second
	}
	if c.AnalysisInterval <= 0 {
		c.AnalysisInterval = 4 * time.Second
	}
	return c
}

// Dependencies are the injected collaborators of a Runner. Media must
// already be open: the runner never acquires or releases devices except in
// Teardown, which closes Media exactly once.
type Dependencies struct {
	Transcriber internal_sensor.Transcriber
	Media       internal_sensor.MediaSource
	Judge       internal_proctor.FrameJudge
	Display     internal_proctor.Display
	Observer    Observer
}

// CompletionBundle is everything the evaluation service needs once the last
// question has been advanced past.
type CompletionBundle struct {
	Session   *internal_session.Session
	Answers   internal_session.AnswerSet
	Snapshots internal_session.SnapshotSet
	Incidents internal_session.MalpracticeLog
}

// Runner is the recording state machine for one interview. It owns the
// sensor lifecycle and all per-question mutable state; every mutation is
// serialized through its lock, so the sensor tasks and the speech stream
// never race each other.
type Runner struct {
	logger   commons.Logger
	cfg      Config
	deps     Dependencies
	policy   *internal_proctor.AlertPolicy
	loudness *internal_proctor.LoudnessMonitor

	sess *internal_session.Session

	mu        sync.Mutex
	state     internal_session.RecordingState
	question  int
	answers   internal_session.AnswerSet
	snapshots internal_session.SnapshotSet
	incidents internal_session.MalpracticeLog
	stream    internal_sensor.SpeechStream
	torndown  bool

	transcript   *TranscriptAccumulator
	snapshotTask *RepeatTask
	loudnessTask *RepeatTask
	analysisTask *RepeatTask
	totalTimer   *ElapsedTimer
	answerTimer  *ElapsedTimer
}

// NewRunner builds an idle runner for the given session. The interview-total
// timer starts immediately.
func NewRunner(logger commons.Logger, cfg Config, deps Dependencies, sess *internal_session.Session) *Runner {
	cfg = cfg.withDefaults()
	r := &Runner{
		logger:     logger,
		cfg:        cfg,
		deps:       deps,
		sess:       sess,
		state:      internal_session.StateIdle,
		answers:    internal_session.AnswerSet{},
		snapshots:  internal_session.SnapshotSet{},
		incidents:  internal_session.MalpracticeLog{},
		transcript:  NewTranscriptAccumulator(),
		totalTimer:  NewElapsedTimer(nil),
		answerTimer: NewElapsedTimer(nil),
	}

	r.policy = internal_proctor.NewAlertPolicy(logger, deps.Display, r.appendIncident)
	r.loudness = internal_proctor.NewLoudnessMonitor(cfg.LoudnessThreshold, r.appendIncident)

	r.snapshotTask = NewRepeatTask(cfg.SnapshotInterval, false, r.captureSnapshot)
	r.loudnessTask = NewRepeatTask(cfg.LoudnessInterval, false, r.sampleLoudness)
	r.analysisTask = NewRepeatTask(cfg.AnalysisInterval, true, r.analyzeFrame)

	r.totalTimer.Start()
	return r
}

// Restore reinstates an idle runner from a saved draft. Resuming never
// restarts mid-recording.
func (r *Runner) Restore(d *internal_session.Draft) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.question = d.CurrentQuestion
	r.answers = internal_session.AnswerSet{}
	for k, v := range d.Answers {
		r.answers[k] = v
	}
	r.snapshots = internal_session.SnapshotSet{}
	for k, v := range d.Snapshots {
		r.snapshots[k] = append([][]byte(nil), v...)
	}
	r.incidents = internal_session.MalpracticeLog{}
	for k, v := range d.Incidents {
		r.incidents[k] = append([]internal_session.Incident(nil), v...)
	}
	r.transcript.Restore(d.CurrentTranscript)
	r.state = internal_session.StateIdle
}

// State returns the current recording state.
func (r *Runner) State() internal_session.RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Question returns the current question index.
func (r *Runner) Question() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.question
}

// Session returns the immutable session under interview.
func (r *Runner) Session() *internal_session.Session {
	return r.sess
}

// TotalElapsed is the interview-wide elapsed time.
func (r *Runner) TotalElapsed() time.Duration {
	return r.totalTimer.Elapsed()
}

// AnswerElapsed is the recording time spent on the current answer.
func (r *Runner) AnswerElapsed() time.Duration {
	return r.answerTimer.Elapsed()
}

// Start begins recording the current question from idle. The transcript
// buffer and the malpractice log for this question are cleared first.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != internal_session.StateIdle {
		r.mu.Unlock()
		return fmt.Errorf("start from %s: %w", r.state, ErrInvalidTransition)
	}

	r.transcript.Reset()
	delete(r.answers, r.question)
	delete(r.incidents, r.question)
	r.answerTimer.Stop()
	r.answerTimer.Reset()
	r.mu.Unlock()

	return r.beginRecording(ctx)
}

// Resume continues recording from paused, keeping all accumulated state.
func (r *Runner) Resume(ctx context.Context) error {
	r.mu.Lock()
	if r.state != internal_session.StatePaused {
		r.mu.Unlock()
		return fmt.Errorf("resume from %s: %w", r.state, ErrInvalidTransition)
	}
	r.mu.Unlock()

	return r.beginRecording(ctx)
}

func (r *Runner) beginRecording(ctx context.Context) error {
	stream, err := r.deps.Transcriber.Start(ctx)
	if err != nil {
		r.status("Microphone unavailable. Please try again.")
		return fmt.Errorf("failed to start transcription: %w", err)
	}

	r.mu.Lock()
	r.stream = stream
	r.state = internal_session.StateRecording
	r.snapshotTask.Start()
	r.loudnessTask.Start()
	r.analysisTask.Start()
	r.answerTimer.Start()
	r.mu.Unlock()

	utils.Go(ctx, func() { r.consume(ctx, stream) })
	return nil
}

// Pause stops all sensors, keeping the accumulated transcript and logs.
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != internal_session.StateRecording {
		return fmt.Errorf("pause from %s: %w", r.state, ErrInvalidTransition)
	}
	r.stopSensorsLocked()
	r.state = internal_session.StatePaused
	return nil
}

// Advance commits the current answer and moves to the next question. Valid
// from any state; active sensors are force-stopped. On the last question it
// returns the completion bundle instead of advancing.
func (r *Runner) Advance(ctx context.Context) (*CompletionBundle, error) {
	r.mu.Lock()
	r.stopSensorsLocked()

	r.answers[r.question] = r.transcript.Answer()
	r.transcript.Reset()
	r.answerTimer.Stop()
	r.answerTimer.Reset()
	r.state = internal_session.StateIdle

	last := r.question >= len(r.sess.Questions)-1
	var bundle *CompletionBundle
	if last {
		bundle = r.bundleLocked()
	} else {
		r.question++
	}
	// ResetQuestion takes the policy lock; it must not be called while
	// holding ours, incident callbacks acquire in the other order.
	r.mu.Unlock()

	r.policy.ResetQuestion()
	if last {
		return bundle, nil
	}
	r.status("Ready for your answer.")
	return nil, nil
}

// Teardown force-stops everything and releases the media devices. Safe to
// call once per interview; repeated calls are no-ops.
func (r *Runner) Teardown() error {
	r.mu.Lock()
	if r.torndown {
		r.mu.Unlock()
		return nil
	}
	r.torndown = true
	stream := r.stream
	r.stream = nil
	r.stopSensorsLocked()
	r.state = internal_session.StateIdle
	r.totalTimer.Stop()
	r.mu.Unlock()

	g := new(errgroup.Group)
	if stream != nil {
		g.Go(stream.Close)
	}
	g.Go(r.deps.Media.Close)
	return g.Wait()
}

// stopSensorsLocked cancels every periodic task and closes the speech
// stream. Stopping an already-stopped sensor is a no-op.
func (r *Runner) stopSensorsLocked() {
	r.snapshotTask.Stop()
	r.loudnessTask.Stop()
	r.analysisTask.Stop()
	r.answerTimer.Stop()
	if r.stream != nil {
		_ = r.stream.Close()
		r.stream = nil
	}
}

// SnapshotDraft builds a deep-copied draft of the current progress together
// with the state it was taken in. The copies keep the autosave path strictly
// read-only with respect to the live maps.
func (r *Runner) SnapshotDraft() (*internal_session.Draft, internal_session.RecordingState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := &internal_session.Draft{
		SessionID:         r.sess.ID,
		Session:           r.sess,
		CurrentQuestion:   r.question,
		Answers:           internal_session.AnswerSet{},
		Snapshots:         internal_session.SnapshotSet{},
		Incidents:         internal_session.MalpracticeLog{},
		CurrentTranscript: r.transcript.Answer(),
	}
	for k, v := range r.answers {
		d.Answers[k] = v
	}
	for k, v := range r.snapshots {
		d.Snapshots[k] = append([][]byte(nil), v...)
	}
	for k, v := range r.incidents {
		d.Incidents[k] = append([]internal_session.Incident(nil), v...)
	}
	return d, r.state
}

func (r *Runner) bundleLocked() *CompletionBundle {
	b := &CompletionBundle{
		Session:   r.sess,
		Answers:   internal_session.AnswerSet{},
		Snapshots: internal_session.SnapshotSet{},
		Incidents: internal_session.MalpracticeLog{},
	}
	for k, v := range r.answers {
		b.Answers[k] = v
	}
	for k, v := range r.snapshots {
		b.Snapshots[k] = append([][]byte(nil), v...)
	}
	for k, v := range r.incidents {
		b.Incidents[k] = append([]internal_session.Incident(nil), v...)
	}
	return b
}

func (r *Runner) currentState() internal_session.RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) status(message string) {
	if r.deps.Observer != nil {
		r.deps.Observer.Status(message)
	}
}

// appendIncident logs one malpractice entry against the current question.
// Incidents observed after recording stopped are dropped: the sample that
// produced them is stale.
func (r *Runner) appendIncident(in internal_session.Incident) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != internal_session.StateRecording {
		return
	}
	r.incidents[r.question] = append(r.incidents[r.question], in)
}

// captureSnapshot pulls one webcam still for the evaluation evidence trail.
func (r *Runner) captureSnapshot(ctx context.Context) {
	if r.currentState() != internal_session.StateRecording {
		return
	}
	frame, err := r.deps.Media.Frame(ctx)
	if err != nil {
		r.logger.Debugf("snapshot capture failed: %v", err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != internal_session.StateRecording {
		return
	}
	r.snapshots[r.question] = append(r.snapshots[r.question], frame)
}

// sampleLoudness reads the instantaneous microphone energy.
func (r *Runner) sampleLoudness(ctx context.Context) {
	if r.currentState() != internal_session.StateRecording {
		return
	}
	energy, err := r.deps.Media.Loudness(ctx)
	if err != nil {
		r.logger.Debugf("loudness sample failed: %v", err)
		return
	}
	r.loudness.Sample(energy)
}

// analyzeFrame submits the latest webcam frame to the judgment service.
// The repeat task schedules the next run only after this returns, so at
// most one judgment call is in flight at a time.
func (r *Runner) analyzeFrame(ctx context.Context) {
	if r.currentState() != internal_session.StateRecording {
		return
	}
	frame, err := r.deps.Media.Frame(ctx)
	if err != nil {
		r.logger.Debugf("analysis frame capture failed: %v", err)
		return
	}
	verdict, _ := r.deps.Judge.Judge(ctx, frame)
	if r.currentState() != internal_session.StateRecording {
		return
	}
	r.policy.Observe(verdict)
}

// consume drains one speech stream into the transcript. When the provider
// ends the stream while we are still recording, a replacement stream is
// started transparently; if that restart fails the recording is forced to
// idle with all accumulated state preserved.
func (r *Runner) consume(ctx context.Context, s internal_sensor.SpeechStream) {
	for ev := range s.Events() {
		r.mu.Lock()
		active := r.stream == s && r.state == internal_session.StateRecording
		r.mu.Unlock()
		if !active {
			continue
		}
		r.transcript.Apply(ev)
		if r.deps.Observer != nil {
			r.deps.Observer.TranscriptPreview(r.transcript.Preview())
		}
	}

	err := s.Err()

	r.mu.Lock()
	if r.stream != s {
		// Deliberately closed or already superseded.
		r.mu.Unlock()
		return
	}
	r.stream = nil
	if r.state != internal_session.StateRecording {
		r.mu.Unlock()
		return
	}

	if err != nil {
		r.stopSensorsLocked()
		r.state = internal_session.StateIdle
		r.mu.Unlock()
		r.logger.Errorf("transcription stream failed: %v", err)
		r.status("Mic error. Please try again.")
		return
	}
	r.mu.Unlock()

	// Clean provider-side end of stream: continuous listening is not
	// guaranteed, restart transparently.
	replacement, rerr := r.deps.Transcriber.Start(ctx)
	if rerr != nil {
		r.mu.Lock()
		r.stopSensorsLocked()
		r.state = internal_session.StateIdle
		r.mu.Unlock()
		r.logger.Errorf("failed to restart transcription: %v", rerr)
		r.status("Mic failed to restart. Please try again.")
		return
	}

	r.mu.Lock()
	if r.state != internal_session.StateRecording {
		r.mu.Unlock()
		_ = replacement.Close()
		return
	}
	r.stream = replacement
	r.mu.Unlock()
	utils.Go(ctx, func() { r.consume(ctx, replacement) })
}
