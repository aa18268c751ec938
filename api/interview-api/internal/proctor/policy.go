// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_proctor

import (
	"sync"
	"time"

	internal_session "github.com/intervuai/api/interview-api/internal/session"
	"github.com/intervuai/pkg/commons"
)

const (
	// gazeWindowSize frames of history are kept; an alert needs
	// gazeAlertCount suspicious frames among them. A single averted glance
	// is normal thinking, a near-full window is reading.
	gazeWindowSize = 4
	gazeAlertCount = 3

	defaultAlertTTL    = 5 * time.Second
	defaultCoachingTTL = 4 * time.Second
)

// Display receives the transient candidate-facing notices. Implementations
// must tolerate Hide calls for notices that already expired.
type Display interface {
	ShowAlert(message string)
	HideAlert()
	ShowCoaching(message string)
	HideCoaching()
}

// AlertPolicy turns noisy per-frame verdicts into at most one malpractice
// alert per question.
//
// Unambiguous flags (another person, a device) alert on a single sample.
// Suspicious gaze is debounced through a sliding window so that normal
// thinking glances never fire. Once an alert has fired for a question, all
// further alerts for that question are suppressed until ResetQuestion.
type AlertPolicy struct {
	logger     commons.Logger
	display    Display
	onIncident func(internal_session.Incident)

	alertTTL    time.Duration
	coachingTTL time.Duration

	mu              sync.Mutex
	window          []bool
	alertShown      bool
	alertVisible    bool
	coachingVisible bool
	// generation invalidates pending expiry timers on reset.
	generation uint64
}

// PolicyOption tunes an AlertPolicy.
type PolicyOption func(*AlertPolicy)

// WithAlertTTL overrides how long an alert stays on screen.
func WithAlertTTL(d time.Duration) PolicyOption {
	return func(p *AlertPolicy) { p.alertTTL = d }
}

// WithCoachingTTL overrides how long a coaching notice stays on screen.
func WithCoachingTTL(d time.Duration) PolicyOption {
	return func(p *AlertPolicy) { p.coachingTTL = d }
}

// NewAlertPolicy builds the per-question debounce state. onIncident receives
// every raised alert as a visual-category malpractice log entry.
func NewAlertPolicy(logger commons.Logger, display Display, onIncident func(internal_session.Incident), opts ...PolicyOption) *AlertPolicy {
	p := &AlertPolicy{
		logger:      logger,
		display:     display,
		onIncident:  onIncident,
		alertTTL:    defaultAlertTTL,
		coachingTTL: defaultCoachingTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Observe processes one frame verdict. A nil verdict is "no signal": it
// neither counts toward the gaze window nor raises anything.
func (p *AlertPolicy) Observe(v *Verdict) {
	if v == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if v.Malpractice && v.Reason != "" && !p.alertShown {
		raise := v.OtherPerson || v.DeviceDetected

		p.window = append(p.window, v.SuspiciousGaze)
		if len(p.window) > gazeWindowSize {
			p.window = p.window[1:]
		}
		if len(p.window) >= gazeWindowSize && countTrue(p.window) >= gazeAlertCount {
			raise = true
		}

		if raise {
			p.raiseLocked(v.Reason)
		}
		return
	}

	if !v.Malpractice && v.DeliveryFeedback != "" && !p.coachingVisible && !p.alertVisible {
		p.coachingVisible = true
		p.display.ShowCoaching(v.DeliveryFeedback)
		p.expireLocked(p.coachingTTL, func(pol *AlertPolicy) {
			pol.coachingVisible = false
			pol.display.HideCoaching()
		})
	}
}

func (p *AlertPolicy) raiseLocked(reason string) {
	p.logger.Warnf("malpractice alert raised: %s", reason)
	p.onIncident(internal_session.Incident{
		Category: internal_session.IncidentVisual,
		Message:  reason,
	})

	p.alertShown = true
	p.alertVisible = true
	p.display.ShowAlert(reason)

	// Alerts and coaching never stack.
	if p.coachingVisible {
		p.coachingVisible = false
		p.display.HideCoaching()
	}

	p.expireLocked(p.alertTTL, func(pol *AlertPolicy) {
		pol.alertVisible = false
		pol.display.HideAlert()
	})
}

// expireLocked schedules fn after d, dropping it if the policy has been
// reset in the meantime.
func (p *AlertPolicy) expireLocked(d time.Duration, fn func(*AlertPolicy)) {
	gen := p.generation
	time.AfterFunc(d, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.generation != gen {
			return
		}
		fn(p)
	})
}

// ResetQuestion clears the gaze window, the one-shot suppression, and any
// displayed notices. Call when advancing to the next question.
func (p *AlertPolicy) ResetQuestion() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	p.window = p.window[:0]
	p.alertShown = false
	if p.alertVisible {
		p.alertVisible = false
		p.display.HideAlert()
	}
	if p.coachingVisible {
		p.coachingVisible = false
		p.display.HideCoaching()
	}
}

func countTrue(window []bool) int {
	n := 0
	for _, b := range window {
		if b {
			n++
		}
	}
	return n
}
