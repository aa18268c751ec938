// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_evaluate

import (
	"math"

	internal_session "github.com/intervuai/api/interview-api/internal/session"
)

// visualIncidentPenalty scales the composite score when any visual
// malpractice incident was logged. Audio incidents carry no penalty.
const visualIncidentPenalty = 0.80

// OverallScore derives the 0-10 composite from the per-criterion scores.
// The model never produces this number; computing it locally keeps the
// penalty arithmetic deterministic.
func OverallScore(criteria []internal_session.EvaluationCriterion, visualIncident bool) int {
	var total, max float64
	for _, c := range criteria {
		total += c.Score
		max += c.MaxScore
	}
	if max == 0 {
		return 0
	}

	score := total / max * 10
	if visualIncident {
		score *= visualIncidentPenalty
	}
	return int(math.Round(score))
}
