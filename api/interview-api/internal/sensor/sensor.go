// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_sensor

import (
	"context"
)

// TranscriptEvent is one batch of recognition results. Finals are immutable
// segments recognized since the previous event; Interim is the current
// best-effort tail and may be revised or dropped by later events.
type TranscriptEvent struct {
	Finals  []string
	Interim string
}

// SpeechStream is one live recognition stream. The provider may terminate
// the stream spontaneously: Events closes, Err reports the terminal error
// (nil for a clean provider-side end), and the caller decides whether to
// restart via the owning Transcriber.
type SpeechStream interface {
	// Events yields recognition results in order. Closed when the stream
	// ends for any reason.
	Events() <-chan TranscriptEvent

	// Err returns the terminal stream error. Valid only after Events has
	// closed; nil means the provider ended the stream cleanly.
	Err() error

	// Close stops the stream. Idempotent; closing an already-closed stream
	// is a no-op.
	Close() error
}

// Transcriber opens live speech-to-text streams against one provider.
// Continuous listening is not guaranteed by any provider, so Start must be
// callable again after a stream ends.
type Transcriber interface {
	Start(ctx context.Context) (SpeechStream, error)
}

// MediaSource wraps the candidate's camera and microphone. Device handles
// are acquired once per interview (Open) and released exactly once
// (Close), regardless of how many pause/resume cycles occur in between.
type MediaSource interface {
	// Open acquires the devices. A permission or device error here is fatal
	// to starting the interview.
	Open(ctx context.Context) error

	// Frame pulls one still image as encoded bytes (JPEG).
	Frame(ctx context.Context) ([]byte, error)

	// Loudness samples the instantaneous audio energy of the microphone on
	// a 0..255 scale.
	Loudness(ctx context.Context) (float64, error)

	// Close releases the devices. Idempotent.
	Close() error
}
