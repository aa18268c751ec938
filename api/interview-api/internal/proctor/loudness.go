// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_proctor

import (
	internal_session "github.com/intervuai/api/interview-api/internal/session"
)

// DefaultLoudnessThreshold is the audio-energy level (0..255 scale) above
// which a sample counts as disruptive background noise.
const DefaultLoudnessThreshold = 85.0

// LoudnessMonitor turns periodic audio-energy samples into malpractice log
// entries. There is no debounce: every sample above the threshold logs one
// entry, and downstream scoring treats the audio category separately.
type LoudnessMonitor struct {
	threshold  float64
	onIncident func(internal_session.Incident)
}

// NewLoudnessMonitor builds a monitor with the given threshold; a zero or
// negative threshold selects the default.
func NewLoudnessMonitor(threshold float64, onIncident func(internal_session.Incident)) *LoudnessMonitor {
	if threshold <= 0 {
		threshold = DefaultLoudnessThreshold
	}
	return &LoudnessMonitor{threshold: threshold, onIncident: onIncident}
}

// Sample records one instantaneous energy reading. The threshold itself does
// not trigger; only strictly louder samples do.
func (m *LoudnessMonitor) Sample(energy float64) bool {
	if energy <= m.threshold {
		return false
	}
	m.onIncident(internal_session.Incident{
		Category: internal_session.IncidentAudio,
		Message:  internal_session.LoudNoiseMessage,
	})
	return true
}
