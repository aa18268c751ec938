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
	"github.com/intervuai/pkg/commons"
)

const defaultQuestionCount = 5

// Service generates interview questions and evaluates finished interviews
// against a Gemini model.
type Service interface {
	// GenerateQuestions returns the question list for a fresh interview.
	GenerateQuestions(ctx context.Context, cfg internal_session.Config) ([]string, error)
	// Evaluate produces the final report for a completed interview.
	Evaluate(ctx context.Context, in EvaluationInput) (*internal_session.EvaluationResult, error)
}

type geminiService struct {
	logger commons.Logger
	client *genai.Client
	model  string
}

// NewService returns a Gemini-backed evaluation service.
func NewService(logger commons.Logger, client *genai.Client, model string) Service {
	return &geminiService{
		logger: logger,
		client: client,
		model:  model,
	}
}

func questionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questions": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
	}
}

func (s *geminiService) GenerateQuestions(ctx context.Context, cfg internal_session.Config) ([]string, error) {
	prompt := fmt.Sprintf("Generate %d interview questions for a %s %s position.",
		defaultQuestionCount, cfg.Difficulty, cfg.Role)

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   questionSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate interview questions: %w", err)
	}

	var out struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(resp.Text()), &out); err != nil {
		return nil, fmt.Errorf("question generation returned malformed JSON: %w", err)
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("question generation returned no questions")
	}

	s.logger.Infof("generated %d questions: role=%s, difficulty=%s",
		len(out.Questions), cfg.Role, cfg.Difficulty)
	return out.Questions, nil
}
