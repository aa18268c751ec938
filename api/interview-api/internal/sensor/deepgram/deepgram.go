// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package sensor_deepgram

import (
	"context"
	"fmt"
	"io"
	"sync"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	internal_sensor "github.com/intervuai/api/interview-api/internal/sensor"
	"github.com/intervuai/pkg/commons"
)

const (
	// DefaultModel matches the provider default used across the platform.
	DefaultModel    = "nova"
	defaultLanguage = "en-US"
	sampleRateHertz = 16000
)

// Config credentials and tunes the Deepgram live transcriber.
type Config struct {
	APIKey   string
	Language string
	Model    string
}

type transcriber struct {
	logger commons.Logger
	cfg    Config
	audio  io.Reader
}

// NewTranscriber returns a restartable Deepgram live-websocket transcriber
// over the given audio feed (LINEAR16 mono 16kHz).
func NewTranscriber(logger commons.Logger, cfg Config, audio io.Reader) (internal_sensor.Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("illegal vault config: missing deepgram api key")
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &transcriber{logger: logger, cfg: cfg, audio: audio}, nil
}

func (t *transcriber) liveOptions() *interfaces.LiveTranscriptionOptions {
	return &interfaces.LiveTranscriptionOptions{
		Model:          t.cfg.Model,
		Language:       t.cfg.Language,
		Punctuate:      true,
		SmartFormat:    true,
		InterimResults: true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     sampleRateHertz,
	}
}

// Start opens one live websocket session. Deepgram closes the socket on its
// own after sustained silence or connection limits; the stream then ends
// cleanly and the caller restarts.
func (t *transcriber) Start(ctx context.Context) (internal_sensor.SpeechStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	s := &speechStream{
		logger: t.logger,
		events: make(chan internal_sensor.TranscriptEvent, 16),
		cancel: cancel,
	}

	client, err := listen.NewWSUsingCallback(streamCtx, t.cfg.APIKey, &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}, t.liveOptions(), &liveHandler{s: s})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create deepgram client: %w", err)
	}

	if ok := client.Connect(); !ok {
		cancel()
		return nil, fmt.Errorf("failed to connect to deepgram")
	}

	go func() {
		// Stream blocks copying mic audio until the socket closes.
		if err := client.Stream(t.audio); err != nil && err != io.EOF {
			t.logger.Debugf("deepgram audio stream ended: %v", err)
		}
	}()
	go func() {
		<-streamCtx.Done()
		client.Stop()
	}()

	return s, nil
}

// speechStream adapts Deepgram's callback interface to SpeechStream.
type speechStream struct {
	logger commons.Logger
	events chan internal_sensor.TranscriptEvent
	cancel context.CancelFunc

	mu        sync.Mutex
	err       error
	closed    bool
	delivered bool // events channel closed
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

func (s *speechStream) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delivered {
		return
	}
	s.delivered = true
	if !s.closed {
		s.err = err
	}
	close(s.events)
}

// liveHandler implements msginterfaces.LiveMessageCallback, forwarding
// transcription messages into the speechStream.
type liveHandler struct {
	s *speechStream
}

func (h *liveHandler) Open(or *msginterfaces.OpenResponse) error {
	h.s.logger.Debugf("deepgram stream open")
	return nil
}

func (h *liveHandler) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	text := mr.Channel.Alternatives[0].Transcript
	if text == "" {
		return nil
	}

	ev := internal_sensor.TranscriptEvent{}
	if mr.IsFinal {
		ev.Finals = []string{text}
	} else {
		ev.Interim = text
	}

	h.s.mu.Lock()
	done := h.s.delivered || h.s.closed
	h.s.mu.Unlock()
	if done {
		return nil
	}
	h.s.events <- ev
	return nil
}

func (h *liveHandler) Metadata(md *msginterfaces.MetadataResponse) error {
	return nil
}

func (h *liveHandler) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	return nil
}

func (h *liveHandler) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	return nil
}

// Close marks a clean provider-side end of stream.
func (h *liveHandler) Close(cr *msginterfaces.CloseResponse) error {
	h.s.finish(nil)
	return nil
}

func (h *liveHandler) Error(er *msginterfaces.ErrorResponse) error {
	h.s.logger.Errorf("deepgram stream error: %s", er.Description)
	h.s.finish(fmt.Errorf("deepgram: %s", er.Description))
	return nil
}

func (h *liveHandler) UnhandledEvent(byData []byte) error {
	return nil
}
