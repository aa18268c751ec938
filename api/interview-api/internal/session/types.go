// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_session

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordingState is the per-question capture lifecycle. Exactly one state is
// active for the in-progress question; transitions drive the sensor
// lifecycle in internal_runner.
type RecordingState string

const (
	StateIdle      RecordingState = "idle"
	StateRecording RecordingState = "recording"
	StatePaused    RecordingState = "paused"
)

// IncidentCategory partitions malpractice log entries. Visual incidents
// (another person, a device, sustained off-screen gaze) carry a score
// penalty downstream; audio incidents (background noise) are only surfaced
// as coaching input.
type IncidentCategory string

const (
	IncidentVisual IncidentCategory = "visual"
	IncidentAudio  IncidentCategory = "audio"
)

// LoudNoiseMessage is the fixed log text for audio incidents. The wording is
// part of the evaluation prompt contract, keep it stable.
const LoudNoiseMessage = "Loud background noise detected."

// Incident is one malpractice log entry for a question.
type Incident struct {
	Category IncidentCategory `json:"category"`
	Message  string           `json:"message"`
}

// Per-question keyed stores. The question index is the sole key: it is
// monotonically non-decreasing during a session and never revisited.
type (
	AnswerSet      map[int]string
	SnapshotSet    map[int][][]byte
	MalpracticeLog map[int][]Incident
)

// HasVisualIncident reports whether any question logged a visual-category
// incident. Drives both the score penalty and the malpracticeReport section
// of the evaluation schema.
func (m MalpracticeLog) HasVisualIncident() bool {
	for _, incidents := range m {
		for _, in := range incidents {
			if in.Category == IncidentVisual {
				return true
			}
		}
	}
	return false
}

// HasAudioIncident reports whether any question logged background noise.
func (m MalpracticeLog) HasAudioIncident() bool {
	for _, incidents := range m {
		for _, in := range incidents {
			if in.Category == IncidentAudio {
				return true
			}
		}
	}
	return false
}

// Config is the interview setup chosen by the candidate.
type Config struct {
	Role       string `json:"role"`
	Difficulty string `json:"difficulty"`
}

// Session is one interview. Immutable for the duration of the interview
// except for Evaluation, which is set once on completion.
//
// Stored in sqlite (interview_sessions table). Collection fields are JSON
// columns: session rows are read and written wholesale, never queried by
// their internals.
type Session struct {
	ID        string    `json:"id" gorm:"column:id;type:varchar(36);primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at;type:timestamp;not null;<-:create"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"column:updated_at;type:timestamp"`

	Config     Config            `json:"config" gorm:"column:config;serializer:json"`
	Questions  []string          `json:"questions" gorm:"column:questions;serializer:json"`
	Answers    AnswerSet         `json:"answers" gorm:"column:answers;serializer:json"`
	Snapshots  SnapshotSet       `json:"snapshots" gorm:"column:snapshots;serializer:json"`
	Incidents  MalpracticeLog    `json:"incidents" gorm:"column:incidents;serializer:json"`
	Evaluation *EvaluationResult `json:"evaluation,omitempty" gorm:"column:evaluation;serializer:json"`
}

func (Session) TableName() string {
	return "interview_sessions"
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return nil
}

// NewSession builds an unanswered session for the given questions.
func NewSession(cfg Config, questions []string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Config:    cfg,
		Questions: questions,
		Answers:   AnswerSet{},
		Snapshots: SnapshotSet{},
		Incidents: MalpracticeLog{},
	}
}

// Draft is a full resumable snapshot of an in-progress interview. At most
// one draft exists per interview lifecycle; each autosave supersedes the row
// wholesale. Resuming always reinstates RecordingState = idle.
type Draft struct {
	ID        uint64    `json:"-" gorm:"column:id;type:integer;primaryKey;autoIncrement"`
	SessionID string    `json:"sessionId" gorm:"column:session_id;type:varchar(36);not null;uniqueIndex"`
	SavedAt   time.Time `json:"savedAt" gorm:"column:saved_at;type:timestamp;not null"`

	Session           *Session       `json:"session" gorm:"column:session;serializer:json"`
	CurrentQuestion   int            `json:"currentQuestionIndex" gorm:"column:current_question;not null;default:0"`
	Answers           AnswerSet      `json:"answers" gorm:"column:answers;serializer:json"`
	Snapshots         SnapshotSet    `json:"snapshots" gorm:"column:snapshots;serializer:json"`
	Incidents         MalpracticeLog `json:"incidents" gorm:"column:incidents;serializer:json"`
	CurrentTranscript string         `json:"currentTranscript" gorm:"column:current_transcript;type:text;not null;default:''"`
}

func (Draft) TableName() string {
	return "interview_drafts"
}
