// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package interview_api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/intervuai/api/interview-api/config"
	internal_evaluate "github.com/intervuai/api/interview-api/internal/evaluate"
	internal_proctor "github.com/intervuai/api/interview-api/internal/proctor"
	internal_runner "github.com/intervuai/api/interview-api/internal/runner"
	internal_sensor "github.com/intervuai/api/interview-api/internal/sensor"
	internal_session "github.com/intervuai/api/interview-api/internal/session"
	"github.com/intervuai/pkg/commons"
)

type fakeEvaluator struct {
	mu          sync.Mutex
	questions   []string
	questionErr error
	result      *internal_session.EvaluationResult
	evalErr     error
	evalCalls   int
	lastInput   internal_evaluate.EvaluationInput
}

func (f *fakeEvaluator) GenerateQuestions(context.Context, internal_session.Config) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.questionErr != nil {
		return nil, f.questionErr
	}
	return f.questions, nil
}

func (f *fakeEvaluator) Evaluate(_ context.Context, in internal_evaluate.EvaluationInput) (*internal_session.EvaluationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalCalls++
	f.lastInput = in
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	return f.result, nil
}

type stubStream struct {
	events    chan internal_sensor.TranscriptEvent
	closeOnce sync.Once
}

func newStubStream() *stubStream {
	return &stubStream{events: make(chan internal_sensor.TranscriptEvent, 16)}
}

func (s *stubStream) Events() <-chan internal_sensor.TranscriptEvent { return s.events }
func (s *stubStream) Err() error                                     { return nil }

func (s *stubStream) Close() error {
	s.closeOnce.Do(func() { close(s.events) })
	return nil
}

type stubTranscriber struct {
	mu      sync.Mutex
	streams []*stubStream
}

func (f *stubTranscriber) Start(context.Context) (internal_sensor.SpeechStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := newStubStream()
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *stubTranscriber) latest() *stubStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[len(f.streams)-1]
}

type stubMedia struct {
	mu     sync.Mutex
	opens  int
	closes int
}

func (m *stubMedia) Open(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	return nil
}

func (m *stubMedia) Frame(context.Context) ([]byte, error) { return []byte{0xff, 0xd8}, nil }

func (m *stubMedia) Loudness(context.Context) (float64, error) { return 40, nil }

func (m *stubMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func (m *stubMedia) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens, m.closes
}

type stubJudge struct{}

func (stubJudge) Judge(context.Context, []byte) (*internal_proctor.Verdict, error) {
	return nil, nil
}

type stubDisplay struct{}

func (stubDisplay) ShowAlert(string)    {}
func (stubDisplay) HideAlert()          {}
func (stubDisplay) ShowCoaching(string) {}
func (stubDisplay) HideCoaching()       {}

type stubObserver struct {
	mu       sync.Mutex
	previews []string
}

func (o *stubObserver) TranscriptPreview(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.previews = append(o.previews, text)
}

func (o *stubObserver) Status(string) {}

func (o *stubObserver) lastPreview() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.previews) == 0 {
		return ""
	}
	return o.previews[len(o.previews)-1]
}

type apiHarness struct {
	api         InterviewApi
	store       internal_session.Store
	evaluator   *fakeEvaluator
	transcriber *stubTranscriber
	media       *stubMedia
	observer    *stubObserver
}

func newApiHarness(t *testing.T) *apiHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&internal_session.Session{}, &internal_session.Draft{}))

	h := &apiHarness{
		store: internal_session.NewStore(db, commons.NewNopLogger()),
		evaluator: &fakeEvaluator{
			questions: []string{"Q one", "Q two"},
			result: &internal_session.EvaluationResult{
				Criteria: []internal_session.EvaluationCriterion{
					{Name: "Communication", Score: 4, MaxScore: 5},
				},
				OverallScore: 8,
			},
		},
		transcriber: &stubTranscriber{},
		media:       &stubMedia{},
		observer:    &stubObserver{},
	}

	cfg := &config.AppConfig{
		Proctor: config.ProctorConfig{
			SnapshotInterval: time.Hour,
			LoudnessInterval: time.Hour,
			AnalysisInterval: time.Hour,
			AutosaveInterval: time.Hour,
		},
	}
	h.api = NewInterviewApi(cfg, commons.NewNopLogger(), h.store, h.evaluator, stubJudge{}, func(context.Context) (*Sensors, error) {
		return &Sensors{Transcriber: h.transcriber, Media: h.media}, nil
	})
	return h
}

func (h *apiHarness) speak(t *testing.T, text string) {
	t.Helper()
	h.transcriber.latest().events <- internal_sensor.TranscriptEvent{Finals: []string{text}}
	assert.Eventually(t, func() bool {
		return h.observer.lastPreview() != ""
	}, time.Second, time.Millisecond)
}

func TestStartInterviewGeneratesSession(t *testing.T) {
	h := newApiHarness(t)

	iv, err := h.api.StartInterview(context.Background(), internal_session.Config{Role: "Backend Engineer", Difficulty: "medium"}, stubDisplay{}, h.observer)
	require.NoError(t, err)
	defer iv.Abandon(context.Background())

	assert.Equal(t, []string{"Q one", "Q two"}, iv.Session().Questions)
	opens, _ := h.media.counts()
	assert.Equal(t, 1, opens)
}

func TestStartInterviewQuestionFailure(t *testing.T) {
	h := newApiHarness(t)
	h.evaluator.questionErr = errors.New("quota exceeded")

	_, err := h.api.StartInterview(context.Background(), internal_session.Config{Role: "SRE"}, stubDisplay{}, h.observer)
	require.Error(t, err)
	opens, _ := h.media.counts()
	assert.Zero(t, opens)
}

func TestFullInterviewFlow(t *testing.T) {
	h := newApiHarness(t)
	ctx := context.Background()

	iv, err := h.api.StartInterview(ctx, internal_session.Config{Role: "Backend Engineer", Difficulty: "medium"}, stubDisplay{}, h.observer)
	require.NoError(t, err)

	require.NoError(t, iv.StartAnswer(ctx))
	h.speak(t, "first answer")
	done, err := iv.NextQuestion(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, iv.StartAnswer(ctx))
	done, err = iv.NextQuestion(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	result, err := iv.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, result.OverallScore)

	// Media released exactly once, session persisted, draft cleared.
	_, closes := h.media.counts()
	assert.Equal(t, 1, closes)

	saved, err := h.store.GetSession(ctx, iv.Session().ID)
	require.NoError(t, err)
	require.NotNil(t, saved.Evaluation)
	assert.Equal(t, "first answer", saved.Answers[0])

	draft, err := h.store.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestCompleteBeforeLastQuestion(t *testing.T) {
	h := newApiHarness(t)
	ctx := context.Background()

	iv, err := h.api.StartInterview(ctx, internal_session.Config{Role: "SRE"}, stubDisplay{}, h.observer)
	require.NoError(t, err)
	defer iv.Abandon(ctx)

	_, err = iv.Complete(ctx)
	assert.ErrorIs(t, err, ErrNotComplete)
}

func TestCompleteIsRetryableAfterEvaluationFailure(t *testing.T) {
	h := newApiHarness(t)
	ctx := context.Background()

	iv, err := h.api.StartInterview(ctx, internal_session.Config{Role: "SRE"}, stubDisplay{}, h.observer)
	require.NoError(t, err)

	for done := false; !done; {
		require.NoError(t, iv.StartAnswer(ctx))
		done, err = iv.NextQuestion(ctx)
		require.NoError(t, err)
	}

	h.evaluator.evalErr = errors.New("model overloaded")
	_, err = iv.Complete(ctx)
	require.Error(t, err)

	// Nothing was persisted on failure.
	sessions, err := h.store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	h.evaluator.evalErr = nil
	result, err := iv.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, result.OverallScore)

	_, err = iv.Complete(ctx)
	assert.ErrorIs(t, err, ErrAlreadyComplete)
}

func TestLeaveSavesDraftAndResumeRestores(t *testing.T) {
	h := newApiHarness(t)
	ctx := context.Background()

	iv, err := h.api.StartInterview(ctx, internal_session.Config{Role: "Backend Engineer"}, stubDisplay{}, h.observer)
	require.NoError(t, err)

	require.NoError(t, iv.StartAnswer(ctx))
	h.speak(t, "partial answer")
	require.NoError(t, iv.Leave(ctx))

	_, closes := h.media.counts()
	assert.Equal(t, 1, closes)

	resumed, err := h.api.ResumeInterview(ctx, stubDisplay{}, h.observer)
	require.NoError(t, err)
	defer resumed.Abandon(ctx)

	assert.Equal(t, iv.Session().ID, resumed.Session().ID)
	assert.Equal(t, internal_session.StateIdle, resumed.Runner().State())
	d, _ := resumed.Runner().SnapshotDraft()
	assert.Equal(t, "partial answer", d.CurrentTranscript)
}

func TestAbandonDiscardsDraft(t *testing.T) {
	h := newApiHarness(t)
	ctx := context.Background()

	iv, err := h.api.StartInterview(ctx, internal_session.Config{Role: "Backend Engineer"}, stubDisplay{}, h.observer)
	require.NoError(t, err)

	require.NoError(t, iv.StartAnswer(ctx))
	h.speak(t, "thrown away")
	require.NoError(t, iv.Abandon(ctx))

	draft, err := h.store.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Nil(t, draft)

	_, err = h.api.ResumeInterview(ctx, stubDisplay{}, h.observer)
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestStartInterviewSupersedesOldDraft(t *testing.T) {
	h := newApiHarness(t)
	ctx := context.Background()

	first, err := h.api.StartInterview(ctx, internal_session.Config{Role: "SRE"}, stubDisplay{}, h.observer)
	require.NoError(t, err)
	require.NoError(t, first.StartAnswer(ctx))
	h.speak(t, "old progress")
	require.NoError(t, first.Leave(ctx))

	second, err := h.api.StartInterview(ctx, internal_session.Config{Role: "SRE"}, stubDisplay{}, h.observer)
	require.NoError(t, err)
	defer second.Abandon(ctx)

	draft, err := h.store.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestResumeWithoutDraft(t *testing.T) {
	h := newApiHarness(t)

	_, err := h.api.ResumeInterview(context.Background(), stubDisplay{}, h.observer)
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestListAndDeleteSessions(t *testing.T) {
	h := newApiHarness(t)
	ctx := context.Background()

	s := internal_session.NewSession(internal_session.Config{Role: "SRE"}, []string{"q"})
	require.NoError(t, h.store.SaveSession(ctx, s))

	sessions, err := h.api.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	got, err := h.api.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	require.NoError(t, h.api.DeleteSession(ctx, s.ID))
	sessions, err = h.api.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

var _ internal_runner.Observer = (*stubObserver)(nil)
