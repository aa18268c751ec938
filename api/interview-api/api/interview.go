// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package interview_api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/intervuai/api/interview-api/config"
	internal_evaluate "github.com/intervuai/api/interview-api/internal/evaluate"
	internal_proctor "github.com/intervuai/api/interview-api/internal/proctor"
	internal_runner "github.com/intervuai/api/interview-api/internal/runner"
	internal_sensor "github.com/intervuai/api/interview-api/internal/sensor"
	internal_session "github.com/intervuai/api/interview-api/internal/session"
	"github.com/intervuai/pkg/commons"
)

var (
	// ErrNoDraft is returned by ResumeInterview when nothing resumable
	// exists.
	ErrNoDraft = errors.New("no resumable interview draft")
	// ErrNotComplete is returned by Complete before the last question has
	// been advanced past.
	ErrNotComplete = errors.New("interview is not complete")
	// ErrAlreadyComplete is returned once the evaluation has been persisted.
	ErrAlreadyComplete = errors.New("interview already completed")
)

// Sensors are the capture devices of one interview.
type Sensors struct {
	Transcriber internal_sensor.Transcriber
	Media       internal_sensor.MediaSource
}

// SensorFactory builds fresh capture devices. Called once per interview;
// the returned media source is opened by the facade and closed at teardown.
type SensorFactory func(ctx context.Context) (*Sensors, error)

// InterviewApi is the session-lifecycle surface of the service.
type InterviewApi interface {
	// StartInterview generates questions for cfg and opens a live interview.
	StartInterview(ctx context.Context, cfg internal_session.Config, display internal_proctor.Display, observer internal_runner.Observer) (*Interview, error)

	// ResumeInterview reopens the interview saved in the draft, idle at the
	// question it was interrupted on.
	ResumeInterview(ctx context.Context, display internal_proctor.Display, observer internal_runner.Observer) (*Interview, error)

	// ListSessions returns every evaluated session, newest first.
	ListSessions(ctx context.Context) ([]*internal_session.Session, error)

	// GetSession retrieves one evaluated session.
	GetSession(ctx context.Context, id string) (*internal_session.Session, error)

	// DeleteSession removes one evaluated session.
	DeleteSession(ctx context.Context, id string) error
}

type interviewApi struct {
	cfg       *config.AppConfig
	logger    commons.Logger
	store     internal_session.Store
	evaluator internal_evaluate.Service
	judge     internal_proctor.FrameJudge
	sensors   SensorFactory
}

// NewInterviewApi wires the interview lifecycle facade.
func NewInterviewApi(cfg *config.AppConfig, logger commons.Logger,
	store internal_session.Store,
	evaluator internal_evaluate.Service,
	judge internal_proctor.FrameJudge,
	sensors SensorFactory,
) InterviewApi {
	return &interviewApi{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		evaluator: evaluator,
		judge:     judge,
		sensors:   sensors,
	}
}

func (a *interviewApi) StartInterview(ctx context.Context, cfg internal_session.Config, display internal_proctor.Display, observer internal_runner.Observer) (*Interview, error) {
	questions, err := a.evaluator.GenerateQuestions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// A fresh interview supersedes whatever draft was left behind.
	if err := a.store.ClearDraft(ctx); err != nil {
		return nil, err
	}
	sess := internal_session.NewSession(cfg, questions)
	return a.open(ctx, sess, nil, display, observer)
}

func (a *interviewApi) ResumeInterview(ctx context.Context, display internal_proctor.Display, observer internal_runner.Observer) (*Interview, error) {
	draft, err := a.store.LoadDraft(ctx)
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.Session == nil {
		return nil, ErrNoDraft
	}
	return a.open(ctx, draft.Session, draft, display, observer)
}

// open acquires the sensors and assembles the runner and autosaver for one
// interview. The media source is opened exactly once here.
func (a *interviewApi) open(ctx context.Context, sess *internal_session.Session, draft *internal_session.Draft, display internal_proctor.Display, observer internal_runner.Observer) (*Interview, error) {
	sensors, err := a.sensors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire interview sensors: %w", err)
	}
	if err := sensors.Media.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to open media devices: %w", err)
	}

	runner := internal_runner.NewRunner(a.logger, internal_runner.Config{
		SnapshotInterval:  a.cfg.Proctor.SnapshotInterval,
		LoudnessInterval:  a.cfg.Proctor.LoudnessInterval,
		AnalysisInterval:  a.cfg.Proctor.AnalysisInterval,
		LoudnessThreshold: a.cfg.Proctor.LoudnessThreshold,
	}, internal_runner.Dependencies{
		Transcriber: sensors.Transcriber,
		Media:       sensors.Media,
		Judge:       a.judge,
		Display:     display,
		Observer:    observer,
	}, sess)

	if draft != nil {
		runner.Restore(draft)
		a.logger.Infof("resumed interview: session=%s, question=%d", sess.ID, draft.CurrentQuestion)
	} else {
		a.logger.Infof("started interview: session=%s, role=%s, questions=%d",
			sess.ID, sess.Config.Role, len(sess.Questions))
	}

	autosaver := internal_runner.NewAutosaver(a.logger, runner, a.store, a.cfg.Proctor.AutosaveInterval)
	autosaver.Start()

	return &Interview{
		logger:    a.logger,
		store:     a.store,
		evaluator: a.evaluator,
		runner:    runner,
		autosaver: autosaver,
	}, nil
}

func (a *interviewApi) ListSessions(ctx context.Context) ([]*internal_session.Session, error) {
	return a.store.ListSessions(ctx)
}

func (a *interviewApi) GetSession(ctx context.Context, id string) (*internal_session.Session, error) {
	return a.store.GetSession(ctx, id)
}

func (a *interviewApi) DeleteSession(ctx context.Context, id string) error {
	return a.store.DeleteSession(ctx, id)
}

// Interview is one live interview. All answer-level operations delegate to
// the runner; the handle owns completion and abandonment.
type Interview struct {
	logger    commons.Logger
	store     internal_session.Store
	evaluator internal_evaluate.Service
	runner    *internal_runner.Runner
	autosaver *internal_runner.Autosaver

	mu     sync.Mutex
	bundle *internal_runner.CompletionBundle
	done   bool
}

// Session returns the session under interview.
func (i *Interview) Session() *internal_session.Session {
	return i.runner.Session()
}

// Runner exposes the recording state machine for status queries.
func (i *Interview) Runner() *internal_runner.Runner {
	return i.runner
}

// StartAnswer begins recording the current question.
func (i *Interview) StartAnswer(ctx context.Context) error {
	return i.runner.Start(ctx)
}

// PauseAnswer pauses the current recording.
func (i *Interview) PauseAnswer() error {
	return i.runner.Pause()
}

// ResumeAnswer continues a paused recording.
func (i *Interview) ResumeAnswer(ctx context.Context) error {
	return i.runner.Resume(ctx)
}

// NextQuestion commits the current answer and moves on. done becomes true
// once the last question has been answered; Complete then finishes the
// interview.
func (i *Interview) NextQuestion(ctx context.Context) (done bool, err error) {
	bundle, err := i.runner.Advance(ctx)
	if err != nil {
		return false, err
	}
	if bundle == nil {
		return false, nil
	}
	i.mu.Lock()
	i.bundle = bundle
	i.mu.Unlock()
	return true, nil
}

// Complete evaluates the finished interview and persists the result. On
// evaluation failure nothing is persisted and the draft survives, so
// Complete can be retried.
func (i *Interview) Complete(ctx context.Context) (*internal_session.EvaluationResult, error) {
	i.mu.Lock()
	if i.done {
		i.mu.Unlock()
		return nil, ErrAlreadyComplete
	}
	bundle := i.bundle
	i.mu.Unlock()
	if bundle == nil {
		return nil, ErrNotComplete
	}

	i.autosaver.Stop()
	if err := i.runner.Teardown(); err != nil {
		i.logger.Warnf("sensor teardown reported: %v", err)
	}

	result, err := i.evaluator.Evaluate(ctx, internal_evaluate.EvaluationInput{
		Session:   bundle.Session,
		Answers:   bundle.Answers,
		Snapshots: bundle.Snapshots,
		Incidents: bundle.Incidents,
	})
	if err != nil {
		return nil, err
	}

	sess := bundle.Session
	sess.Answers = bundle.Answers
	sess.Snapshots = bundle.Snapshots
	sess.Incidents = bundle.Incidents
	sess.Evaluation = result

	if err := i.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := i.store.ClearDraft(ctx); err != nil {
		i.logger.Warnf("failed to clear draft after completion: %v", err)
	}

	i.mu.Lock()
	i.done = true
	i.mu.Unlock()
	i.logger.Infof("interview completed: session=%s, score=%d", sess.ID, result.OverallScore)
	return result, nil
}

// Leave exits the interview keeping it resumable: progress is saved as a
// draft before the sensors are released.
func (i *Interview) Leave(ctx context.Context) error {
	i.pauseIfRecording()

	i.mu.Lock()
	finished := i.done
	i.mu.Unlock()
	if !finished {
		if err := i.autosaver.SaveNow(ctx); err != nil {
			i.logger.Warnf("failed to save draft on leave: %v", err)
		}
	}

	i.autosaver.Stop()
	return i.runner.Teardown()
}

// Abandon discards the interview: the draft is deleted, nothing is
// evaluated or kept.
func (i *Interview) Abandon(ctx context.Context) error {
	i.pauseIfRecording()
	i.autosaver.Stop()

	if err := i.store.ClearDraft(ctx); err != nil {
		i.logger.Warnf("failed to clear draft on abandon: %v", err)
	}
	i.logger.Infof("interview abandoned: session=%s", i.runner.Session().ID)
	return i.runner.Teardown()
}

func (i *Interview) pauseIfRecording() {
	if i.runner.State() == internal_session.StateRecording {
		if err := i.runner.Pause(); err != nil && !errors.Is(err, internal_runner.ErrInvalidTransition) {
			i.logger.Warnf("failed to pause before exit: %v", err)
		}
	}
}
