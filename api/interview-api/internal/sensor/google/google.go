// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package sensor_google

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv2"
	"cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/api/option"

	internal_sensor "github.com/intervuai/api/interview-api/internal/sensor"
	"github.com/intervuai/pkg/commons"
)

const (
	// DefaultLanguageCode is used when no language is configured.
	DefaultLanguageCode = "en-US"
	// DefaultModel is the long-form recognition model, suited to spoken
	// interview answers.
	DefaultModel = "long"

	sampleRateHertz = 16000
	audioChunkBytes = 3200 // 100ms of LINEAR16 mono at 16kHz
)

// Config credentials and tunes the Google Cloud Speech v2 transcriber.
type Config struct {
	ProjectID string
	APIKey    string
	Language  string
}

type transcriber struct {
	logger commons.Logger
	cfg    Config
	client *speech.Client
	// audio is the live microphone feed, LINEAR16 mono 16kHz. Shared across
	// restarts: each stream resumes reading where the previous one stopped.
	audio io.Reader
}

// NewTranscriber connects to Google Cloud Speech v2 and returns a
// restartable streaming transcriber over the given audio feed.
func NewTranscriber(ctx context.Context, logger commons.Logger, cfg Config, audio io.Reader) (internal_sensor.Transcriber, error) {
	co := make([]option.ClientOption, 0)
	if cfg.APIKey != "" {
		co = append(co, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.ProjectID != "" {
		co = append(co, option.WithQuotaProject(cfg.ProjectID))
	}

	client, err := speech.NewClient(ctx, co...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	if cfg.Language == "" {
		logger.Warn("Language not specified, defaulting to " + DefaultLanguageCode)
		cfg.Language = DefaultLanguageCode
	}

	return &transcriber{
		logger: logger,
		cfg:    cfg,
		client: client,
		audio:  audio,
	}, nil
}

func (t *transcriber) recognizer() string {
	return fmt.Sprintf("projects/%s/locations/global/recognizers/_", t.cfg.ProjectID)
}

func (t *transcriber) streamingConfig() *speechpb.StreamingRecognitionConfig {
	return &speechpb.StreamingRecognitionConfig{
		Config: &speechpb.RecognitionConfig{
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   sampleRateHertz,
					AudioChannelCount: 1,
				},
			},
			Features: &speechpb.RecognitionFeatures{
				EnableAutomaticPunctuation: true,
				EnableWordConfidence:       true,
				ProfanityFilter:            true,
			},
			LanguageCodes: []string{t.cfg.Language},
			Model:         DefaultModel,
		},
		StreamingFeatures: &speechpb.StreamingRecognitionFeatures{
			InterimResults: true,
		},
	}
}

// Start opens one streaming recognition call. Google terminates streams on
// its own schedule (stream duration limits, trailing silence); the stream
// then closes cleanly and the caller restarts.
func (t *transcriber) Start(ctx context.Context) (internal_sensor.SpeechStream, error) {
	sc, err := t.client.StreamingRecognize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open streaming recognize: %w", err)
	}

	if err := sc.Send(&speechpb.StreamingRecognizeRequest{
		Recognizer: t.recognizer(),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: t.streamingConfig(),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := &speechStream{
		logger: t.logger,
		events: make(chan internal_sensor.TranscriptEvent, 16),
		cancel: cancel,
	}

	go s.pump(streamCtx, sc, t.audio, t.recognizer())
	go s.recv(sc)
	return s, nil
}

type speechStream struct {
	logger commons.Logger
	events chan internal_sensor.TranscriptEvent
	cancel context.CancelFunc

	mu     sync.Mutex
	err    error
	closed bool
}

// pump copies microphone audio into the recognition stream in 100ms chunks.
func (s *speechStream) pump(ctx context.Context, sc speechpb.Speech_StreamingRecognizeClient, audio io.Reader, recognizer string) {
	buf := make([]byte, audioChunkBytes)
	for {
		select {
		case <-ctx.Done():
			_ = sc.CloseSend()
			return
		default:
		}

		n, err := audio.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			sendErr := sc.Send(&speechpb.StreamingRecognizeRequest{
				Recognizer: recognizer,
				StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{
					Audio: chunk,
				},
			})
			if sendErr != nil {
				// Recv observes the stream failure; just stop feeding.
				return
			}
		}
		if err != nil {
			_ = sc.CloseSend()
			return
		}
	}
}

// recv converts recognition responses into TranscriptEvents until the
// provider ends the stream.
func (s *speechStream) recv(sc speechpb.Speech_StreamingRecognizeClient) {
	defer close(s.events)
	for {
		resp, err := sc.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			if !closed {
				s.err = err
			}
			s.mu.Unlock()
			if !closed {
				s.logger.Errorf("speech stream terminated: %v", err)
			}
			return
		}

		ev := internal_sensor.TranscriptEvent{}
		for _, res := range resp.Results {
			if len(res.Alternatives) == 0 {
				continue
			}
			text := res.Alternatives[0].Transcript
			if res.IsFinal {
				ev.Finals = append(ev.Finals, text)
			} else {
				ev.Interim = text
			}
		}
		if len(ev.Finals) == 0 && ev.Interim == "" {
			continue
		}
		s.events <- ev
	}
}

func (s *speechStream) Events() <-chan internal_sensor.TranscriptEvent {
	return s.events
}

func (s *speechStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *speechStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	return nil
}
