// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_proctor

import "context"

// Verdict is the structured result of judging one webcam frame.
type Verdict struct {
	Malpractice      bool   `json:"malpracticeDetected"`
	Reason           string `json:"reason,omitempty"`
	OtherPerson      bool   `json:"otherPerson"`
	DeviceDetected   bool   `json:"deviceDetected"`
	SuspiciousGaze   bool   `json:"suspiciousGaze"`
	DeliveryFeedback string `json:"deliveryFeedback,omitempty"`
}

// FrameJudge inspects a single still image for signs of malpractice.
//
// A nil verdict with a nil error means "no signal for this sample": the
// judgment service failed or returned nothing usable. Callers must treat
// that as a skipped sample, never as evidence either way.
type FrameJudge interface {
	Judge(ctx context.Context, image []byte) (*Verdict, error)
}
