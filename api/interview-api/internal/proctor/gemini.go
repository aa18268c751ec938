// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_proctor

import (
	"context"
	"encoding/json"

	"google.golang.org/genai"

	"github.com/intervuai/pkg/commons"
)

const proctorPrompt = `You are a sophisticated AI proctor for a mock interview. Analyze this single webcam frame for malpractice. Your analysis must be strict to avoid false positives.

**Primary Goal: Malpractice Detection**
Analyze the following, in order of priority:
1.  **Other People:** Is there another person visible in the frame, or strong evidence of someone just off-camera (e.g., user is clearly talking to someone to the side)?
2.  **Unauthorized Devices:** Is a phone, tablet, or secondary screen clearly visible and in use? Is the user wearing a visible earpiece or headset that isn't for standard audio?
3.  **Suspicious Gaze (Cheating):** Is the user's gaze unnaturally averted, indicating they are reading from notes?
    - **CRITICAL:** Differentiate from normal thinking. People glance away to think. Flag this ONLY if the gaze is fixed, repetitive (like reading line by line), or directed downwards at a desk for an extended period in an unnatural way. A brief glance up or to the side is NOT malpractice.

**Secondary Goal: Delivery Feedback**
- If NO malpractice is detected, provide a brief, encouraging delivery tip (max 5 words) if applicable (e.g., "Looking confident!", "Great eye contact!"). Otherwise, leave it null.

**Response Rules:**
- Respond ONLY with a single JSON object matching the specified schema.
- If any malpractice is detected, provide a clear 'reason' and set 'deliveryFeedback' to null.`

type geminiJudge struct {
	logger commons.Logger
	client *genai.Client
	model  string
}

// NewGeminiJudge returns a FrameJudge backed by a Gemini vision model.
func NewGeminiJudge(logger commons.Logger, client *genai.Client, model string) FrameJudge {
	return &geminiJudge{
		logger: logger,
		client: client,
		model:  model,
	}
}

func verdictSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"malpracticeDetected": {Type: genai.TypeBoolean},
			"reason":              {Type: genai.TypeString, Description: "Reason for the highest-priority malpractice flag. Null if none."},
			"otherPerson":         {Type: genai.TypeBoolean},
			"deviceDetected":      {Type: genai.TypeBoolean},
			"suspiciousGaze":      {Type: genai.TypeBoolean},
			"deliveryFeedback":    {Type: genai.TypeString, Description: "A short, actionable delivery tip, or null."},
		},
	}
}

// Judge submits one frame. Any failure returns (nil, nil): a missing
// judgment must never break the analysis loop, the sample is simply skipped.
func (g *geminiJudge) Judge(ctx context.Context, image []byte) (*Verdict, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, "image/jpeg"),
			genai.NewPartFromText(proctorPrompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   verdictSchema(),
	})
	if err != nil {
		g.logger.Errorf("frame judgment failed: %v", err)
		return nil, nil
	}

	var v Verdict
	if err := json.Unmarshal([]byte(resp.Text()), &v); err != nil {
		g.logger.Errorf("frame judgment returned malformed JSON: %v", err)
		return nil, nil
	}
	return &v, nil
}
