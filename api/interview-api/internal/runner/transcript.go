// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_runner

import (
	"strings"
	"sync"

	internal_sensor "github.com/intervuai/api/interview-api/internal/sensor"
)

// TranscriptAccumulator merges recognition events into the authoritative
// answer text for the current question.
//
// Only final segments are authoritative; the interim tail is display-only
// and is discarded the moment a new event arrives. The accumulated finals
// survive provider stream restarts; the accumulator belongs to the
// question, not to any one stream.
type TranscriptAccumulator struct {
	mu      sync.Mutex
	finals  []string
	interim string
}

func NewTranscriptAccumulator() *TranscriptAccumulator {
	return &TranscriptAccumulator{}
}

// Apply folds one recognition event into the transcript.
func (a *TranscriptAccumulator) Apply(ev internal_sensor.TranscriptEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, f := range ev.Finals {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		a.finals = append(a.finals, f)
	}
	a.interim = ev.Interim
}

// Answer returns the authoritative answer text: the trimmed concatenation
// of every final segment seen so far.
func (a *TranscriptAccumulator) Answer() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Join(a.finals, " ")
}

// Preview returns the transient display text: the answer plus the current
// interim tail. Never persisted.
func (a *TranscriptAccumulator) Preview() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	answer := strings.Join(a.finals, " ")
	if a.interim == "" {
		return answer
	}
	if answer == "" {
		return a.interim
	}
	return answer + " " + a.interim
}

// Reset clears the transcript for a fresh question.
func (a *TranscriptAccumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finals = a.finals[:0]
	a.interim = ""
}

// Restore seeds the accumulator from a saved draft transcript.
func (a *TranscriptAccumulator) Restore(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finals = a.finals[:0]
	a.interim = ""
	if text = strings.TrimSpace(text); text != "" {
		a.finals = append(a.finals, text)
	}
}
