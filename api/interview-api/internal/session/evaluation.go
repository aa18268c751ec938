// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_session

// EvaluationCriterion is one scored axis of the final report.
type EvaluationCriterion struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"maxScore"`
	Reasoning string  `json:"reasoning"`
}

// BodyLanguageAnalysis summarizes non-verbal cues read from the snapshots.
type BodyLanguageAnalysis struct {
	Posture        string `json:"posture"`
	EyeContact     string `json:"eyeContact"`
	Gestures       string `json:"gestures"`
	OverallSummary string `json:"overallSummary"`
}

// VerbalAnalysis summarizes delivery read from the transcripts.
type VerbalAnalysis struct {
	Clarity        string `json:"clarity"`
	Conciseness    string `json:"conciseness"`
	FillerWords    string `json:"fillerWords"`
	OverallSummary string `json:"overallSummary"`
}

// MalpracticeReport is present only when visual incidents were logged.
type MalpracticeReport struct {
	Summary       string `json:"summary"`
	ImpactOnScore string `json:"impactOnScore"`
}

// EvaluationResult is the structured verdict of the evaluation service plus
// the locally derived OverallScore.
type EvaluationResult struct {
	OverallScore         int                   `json:"overallScore"`
	Criteria             []EvaluationCriterion `json:"criteria"`
	Strengths            []string              `json:"strengths"`
	Weaknesses           []string              `json:"weaknesses"`
	Improvements         []string              `json:"improvements"`
	BodyLanguageAnalysis BodyLanguageAnalysis  `json:"bodyLanguageAnalysis"`
	VerbalAnalysis       VerbalAnalysis        `json:"verbalAnalysis"`
	MalpracticeReport    *MalpracticeReport    `json:"malpracticeReport,omitempty"`
}
