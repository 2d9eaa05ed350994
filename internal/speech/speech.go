// Package speech converts inbound audio to text. Admission limits are
// enforced before the engine is touched, and the engine itself is loaded
// lazily at most once.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/sync/singleflight"
)

var (
	ErrAudioTooLarge = errors.New("audio file too large")
	ErrAudioTooLong  = errors.New("audio file too long")
)

// Engine is the speech-to-text collaborator.
type Engine interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Service validates audio admission limits and delegates to a lazily loaded
// engine. The load is guarded by singleflight so two near-simultaneous first
// uses cannot trigger duplicate loads.
type Service struct {
	maxBytes           int64
	maxDurationSeconds int
	load               func(ctx context.Context) (Engine, error)
	log                *slog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	engine Engine
}

func New(maxFileSizeMB, maxDurationSeconds int, load func(ctx context.Context) (Engine, error), log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		maxBytes:           int64(maxFileSizeMB) * 1024 * 1024,
		maxDurationSeconds: maxDurationSeconds,
		load:               load,
		log:                log,
	}
}

// Transcribe rejects oversized or too-long input synchronously, before any
// expensive model work starts.
func (s *Service) Transcribe(ctx context.Context, audio []byte, durationSeconds int, sizeBytes int64) (string, error) {
	if sizeBytes > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes, max %d", ErrAudioTooLarge, sizeBytes, s.maxBytes)
	}
	if durationSeconds > s.maxDurationSeconds {
		return "", fmt.Errorf("%w: %ds, max %ds", ErrAudioTooLong, durationSeconds, s.maxDurationSeconds)
	}
	eng, err := s.getEngine(ctx)
	if err != nil {
		return "", fmt.Errorf("load speech engine: %w", err)
	}
	text, err := eng.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *Service) getEngine(ctx context.Context) (Engine, error) {
	s.mu.RLock()
	eng := s.engine
	s.mu.RUnlock()
	if eng != nil {
		return eng, nil
	}
	v, err, _ := s.group.Do("engine", func() (interface{}, error) {
		s.mu.RLock()
		cached := s.engine
		s.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		s.log.Info("loading speech engine")
		loaded, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.engine = loaded
		s.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Engine), nil
}

// WhisperEngine transcribes audio through the hosted Whisper API.
type WhisperEngine struct {
	api   openai.Client
	model string
}

func NewWhisperEngine(apiKey, model string) *WhisperEngine {
	return &WhisperEngine{
		api:   openai.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

func (e *WhisperEngine) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := e.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(e.model),
		File:  openai.File(bytes.NewReader(audio), "voice.ogg", "audio/ogg"),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
