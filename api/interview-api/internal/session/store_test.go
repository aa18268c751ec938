package internal_session

import (
	"context"
	"testing"

	"github.com/intervuai/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Session{}, &Draft{}))
	return NewStore(db, commons.NewNopLogger())
}

func sampleSession() *Session {
	s := NewSession(Config{Role: "Backend Engineer", Difficulty: "Senior"}, []string{
		"Tell me about yourself.",
		"Describe a hard bug you fixed.",
	})
	s.Answers[0] = "I am a backend engineer."
	s.Snapshots[0] = [][]byte{[]byte("jpeg-bytes-0"), []byte("jpeg-bytes-1")}
	s.Incidents[1] = []Incident{{Category: IncidentAudio, Message: LoudNoiseMessage}}
	return s
}

func TestSaveAndGetSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := sampleSession()
	require.NoError(t, store.SaveSession(ctx, s))

	got, err := store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Config, got.Config)
	assert.Equal(t, s.Questions, got.Questions)
	assert.Equal(t, s.Answers, got.Answers)
	assert.Equal(t, s.Snapshots, got.Snapshots)
	assert.Equal(t, s.Incidents, got.Incidents)
	assert.Nil(t, got.Evaluation)
}

func TestSaveSessionUpsertsByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := sampleSession()
	require.NoError(t, store.SaveSession(ctx, s))

	s.Evaluation = &EvaluationResult{OverallScore: 7}
	require.NoError(t, store.SaveSession(ctx, s))

	all, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Evaluation)
	assert.Equal(t, 7, all[0].Evaluation.OverallScore)
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := sampleSession()
	require.NoError(t, store.SaveSession(ctx, older))

	newer := sampleSession()
	newer.CreatedAt = older.CreatedAt.Add(1_000_000_000)
	require.NoError(t, store.SaveSession(ctx, newer))

	all, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)
}

func TestDeleteSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := sampleSession()
	require.NoError(t, store.SaveSession(ctx, s))
	require.NoError(t, store.DeleteSession(ctx, s.ID))

	_, err := store.GetSession(ctx, s.ID)
	assert.Error(t, err)

	// Deleting again is a no-op.
	assert.NoError(t, store.DeleteSession(ctx, s.ID))
}

func TestDraftRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := sampleSession()
	d := &Draft{
		SessionID:       s.ID,
		Session:         s,
		CurrentQuestion: 1,
		Answers:         AnswerSet{0: "first answer"},
		Snapshots:       SnapshotSet{0: [][]byte{[]byte("img")}},
		Incidents: MalpracticeLog{
			0: {{Category: IncidentVisual, Message: "Another person visible in frame."}},
		},
		CurrentTranscript: "half spoken sentence",
	}
	require.NoError(t, store.SaveDraft(ctx, d))

	got, err := store.LoadDraft(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, d.SessionID, got.SessionID)
	assert.Equal(t, d.CurrentQuestion, got.CurrentQuestion)
	assert.Equal(t, d.Answers, got.Answers)
	assert.Equal(t, d.Snapshots, got.Snapshots)
	assert.Equal(t, d.Incidents, got.Incidents)
	assert.Equal(t, d.CurrentTranscript, got.CurrentTranscript)
	assert.Equal(t, s.Questions, got.Session.Questions)
}

func TestSaveDraftSupersedesWholesale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := sampleSession()
	first := &Draft{SessionID: s.ID, Session: s, CurrentQuestion: 0}
	require.NoError(t, store.SaveDraft(ctx, first))

	second := &Draft{SessionID: s.ID, Session: s, CurrentQuestion: 1}
	require.NoError(t, store.SaveDraft(ctx, second))

	got, err := store.LoadDraft(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.CurrentQuestion)
}

func TestLoadDraftAbsent(t *testing.T) {
	store := newTestStore(t)
	got, err := store.LoadDraft(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClearDraft(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := sampleSession()
	require.NoError(t, store.SaveDraft(ctx, &Draft{SessionID: s.ID, Session: s}))
	require.NoError(t, store.ClearDraft(ctx))

	got, err := store.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Clearing an empty table is a no-op.
	assert.NoError(t, store.ClearDraft(ctx))
}

func TestMalpracticeLogCategories(t *testing.T) {
	log := MalpracticeLog{}
	assert.False(t, log.HasVisualIncident())
	assert.False(t, log.HasAudioIncident())

	log[0] = append(log[0], Incident{Category: IncidentAudio, Message: LoudNoiseMessage})
	assert.False(t, log.HasVisualIncident())
	assert.True(t, log.HasAudioIncident())

	log[2] = append(log[2], Incident{Category: IncidentVisual, Message: "Phone visible on desk."})
	assert.True(t, log.HasVisualIncident())
}
