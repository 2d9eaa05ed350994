// Package genai wraps the external generative-text provider behind a small
// interface so the orchestrator and tests can swap it out.
package genai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Completer is the generative-text collaborator: single shot, no streaming.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// Client talks to OpenRouter through the OpenAI-compatible chat API.
// Each call is bounded by a timeout and retried once with backoff, since the
// provider is the dominant source of latency and failure.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	log     *slog.Logger
}

func New(apiKey, model string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		api:     openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(openRouterBaseURL)),
		model:   model,
		timeout: timeout,
		log:     log,
	}
}

const retryBackoff = 2 * time.Second

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			c.log.Warn("retrying completion", "attempt", attempt, "err", lastErr)
		}
		text, err := c.complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			// Caller cancelled or superseded; do not burn the retry budget.
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.Chat.Completions.New(cctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.8),
		MaxTokens:   openai.Int(2000),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
