// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_evaluate

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	internal_session "github.com/intervuai/api/interview-api/internal/session"
	"github.com/intervuai/pkg/utils"
)

// EvaluationInput is everything a finished interview hands to the evaluation
// service.
type EvaluationInput struct {
	Session   *internal_session.Session
	Answers   internal_session.AnswerSet
	Snapshots internal_session.SnapshotSet
	Incidents internal_session.MalpracticeLog
}

const coachInstruction = `You are an uplifting and motivational AI interview coach. Your primary goal is to empower the user, build their confidence, and provide actionable feedback for a %s %s role. Your entire tone must be incredibly encouraging and positive.

      **Core Principles:**
      1.  **Celebrate Strengths:** Start with what the candidate did well. Be specific and use examples from their answers to make the praise genuine and impactful.
      2.  **Frame "Weaknesses" as "Opportunities":** Populate the 'weaknesses' field, but reframe the content as "Areas to Polish." The language must be forward-looking and focused on potential. For example, instead of "Your answer was rambling," say "You have great ideas! Let's work on structuring them concisely to make them even more impactful."
      3.  **Actionable & Inspiring Improvements:** For the 'improvements' field, provide clear, actionable tips. End on a high note with phrases like, "Come on, improve these areas and nobody can beat you in an interview!" or "With a little practice here, you'll be unstoppable!"
      4.  **Holistic View:** Consider their transcribed answers and body language from the snapshots to provide a complete picture.

      **Input Data Provided:**
      -   Interview questions.
      -   Transcribed candidate answers.
      -   A series of body language snapshots taken during each answer.
      -   Malpractice & Disturbance Logs: %s

      **Required JSON Output Structure:**
      Provide your entire response as a single JSON object matching the schema below. Do not include any text outside of the JSON structure.`

// incidentLogText renders the malpractice log for the system instruction,
// with the handling rules for each incident category.
func incidentLogText(in EvaluationInput) string {
	if !in.Incidents.HasVisualIncident() && !in.Incidents.HasAudioIncident() {
		return "No malpractice was detected."
	}

	serialized, err := json.MarshalIndent(in.Incidents, "", "  ")
	if err != nil {
		serialized = []byte("{}")
	}
	return fmt.Sprintf(`The system logged the following events: %s.
      - Visual malpractice events (like phone use or suspicious gaze) MUST be addressed in the 'malpracticeReport' section. Frame it constructively.
      - Audio disturbances ('Loud background noise detected') should be mentioned as a point for improvement in the 'improvements' section (e.g., 'Finding a quiet space for your interview can help you stay focused and appear more professional.').`,
		serialized)
}

// buildParts assembles the per-question evaluation payload: each question,
// its transcribed answer, and the webcam snapshots taken while answering.
func buildParts(in EvaluationInput) []*genai.Part {
	parts := []*genai.Part{genai.NewPartFromText("Begin Evaluation:\n")}

	for i, question := range in.Session.Questions {
		parts = append(parts, genai.NewPartFromText(fmt.Sprintf("\n--- Question %d: %s ---\n", i+1, question)))

		answer := in.Answers[i]
		if utils.IsEmpty(answer) {
			answer = "(No answer provided)"
		}
		parts = append(parts, genai.NewPartFromText(fmt.Sprintf("Candidate's Answer: %q\n", answer)))

		parts = append(parts, genai.NewPartFromText("Body Language Snapshots during answer:\n"))
		if frames := in.Snapshots[i]; len(frames) > 0 {
			for _, frame := range frames {
				parts = append(parts, genai.NewPartFromBytes(frame, "image/jpeg"))
			}
		} else {
			parts = append(parts, genai.NewPartFromText("(No snapshots available)\n"))
		}
	}
	return parts
}

// evaluationSchema includes the malpracticeReport object only when a
// visual incident was actually logged; otherwise the model must not be
// invited to invent one.
func evaluationSchema(includeReport bool) *genai.Schema {
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"criteria": {
				Type:        genai.TypeArray,
				Description: "Breakdown of scores across key areas.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":      {Type: genai.TypeString, Description: "e.g., 'Technical Depth', 'Communication', 'Problem-Solving'."},
						"score":     {Type: genai.TypeNumber, Description: "Score from 0 to 5 for this criterion."},
						"maxScore":  {Type: genai.TypeNumber, Description: "Always 5."},
						"reasoning": {Type: genai.TypeString, Description: "Brief, specific justification for the score, framed positively."},
					},
				},
			},
			"strengths": {
				Type:        genai.TypeArray,
				Description: "2-3 specific, positive points. Use examples from their answers.",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
			"weaknesses": {
				Type:        genai.TypeArray,
				Description: "2-3 areas framed as opportunities to polish. Use encouraging language.",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
			"improvements": {
				Type:        genai.TypeArray,
				Description: "Actionable, inspiring tips for improvement, directly linked to weaknesses.",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
			"bodyLanguageAnalysis": {
				Type:        genai.TypeObject,
				Description: "Analysis of non-verbal cues from the image snapshots.",
				Properties: map[string]*genai.Schema{
					"posture":        {Type: genai.TypeString, Description: "Comment on their posture (e.g., upright, slouched)."},
					"eyeContact":     {Type: genai.TypeString, Description: "Analyze gaze. Are they looking at the camera or away?"},
					"gestures":       {Type: genai.TypeString, Description: "Note use of hand gestures."},
					"overallSummary": {Type: genai.TypeString, Description: "A holistic summary of their non-verbal communication and its impact."},
				},
			},
			"verbalAnalysis": {
				Type:        genai.TypeObject,
				Description: "Analysis of verbal delivery based on the transcript.",
				Properties: map[string]*genai.Schema{
					"clarity":        {Type: genai.TypeString, Description: "Assess the clarity and structure of their sentences."},
					"conciseness":    {Type: genai.TypeString, Description: "Did they answer directly or ramble?"},
					"fillerWords":    {Type: genai.TypeString, Description: "Comment on apparent use of filler words like 'um', 'uh', 'like' based on transcript flow."},
					"overallSummary": {Type: genai.TypeString, Description: "A summary of their verbal communication style."},
				},
			},
		},
	}

	if includeReport {
		schema.Properties["malpracticeReport"] = &genai.Schema{
			Type:        genai.TypeObject,
			Description: "ONLY include this object if malpractice was detected. Otherwise, omit it.",
			Properties: map[string]*genai.Schema{
				"summary":       {Type: genai.TypeString, Description: "A summary of the detected malpractice incidents."},
				"impactOnScore": {Type: genai.TypeString, Description: "Explain how this behavior can be perceived negatively and how to avoid it."},
			},
		}
	}
	return schema
}

// Evaluate submits the full interview for judgment and derives the overall
// score locally from the per-criterion scores. A malformed model response is
// an error: nothing is persisted, the caller may retry.
func (s *geminiService) Evaluate(ctx context.Context, in EvaluationInput) (*internal_session.EvaluationResult, error) {
	hasVisual := in.Incidents.HasVisualIncident()
	instruction := fmt.Sprintf(coachInstruction,
		in.Session.Config.Difficulty, in.Session.Config.Role, incidentLogText(in))

	contents := []*genai.Content{
		genai.NewContentFromParts(buildParts(in), genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    evaluationSchema(hasVisual),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate interview: %w", err)
	}

	var result internal_session.EvaluationResult
	if err := json.Unmarshal([]byte(resp.Text()), &result); err != nil {
		return nil, fmt.Errorf("evaluation returned malformed JSON: %w", err)
	}

	result.OverallScore = OverallScore(result.Criteria, hasVisual)
	s.logger.Infof("interview evaluated: session=%s, score=%d, visualIncidents=%t",
		in.Session.ID, result.OverallScore, hasVisual)
	return &result, nil
}
