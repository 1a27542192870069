// Package llm wraps the chat-completion providers behind one small
// interface. All engine stages share a single client; per-call timeout
// and bounded retry live here so callers never implement their own.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contextos/internal/config"
	"contextos/internal/logging"
	"contextos/internal/types"
)

// ErrEmptyResponse is returned when the provider answers with no text.
var ErrEmptyResponse = errors.New("empty completion response")

// ErrUnknownProvider is returned by New for an unrecognized provider.
var ErrUnknownProvider = errors.New("unknown llm provider")

// Client is a chat-completion backend.
type Client interface {
	// ChatCompletion sends the transcript and returns the assistant
	// text. Implementations honor ctx cancellation.
	ChatCompletion(ctx context.Context, messages []types.Message) (string, error)

	// Model names the configured model, for logging.
	Model() string
}

// New builds a Client for the configured provider, wrapped with the
// shared timeout and retry policy.
func New(cfg config.EngineConfig) (Client, error) {
	var inner Client
	switch cfg.Provider {
	case "openai":
		inner = newOpenAIClient(cfg)
	case "gemini":
		inner = newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	return &retryClient{
		inner:    inner,
		timeout:  cfg.RequestTimeout(),
		attempts: cfg.Retries(),
	}, nil
}

// retryClient adds per-call timeout and bounded retry with a short
// linear backoff. Context cancellation stops retrying immediately.
type retryClient struct {
	inner    Client
	timeout  time.Duration
	attempts int
}

func (c *retryClient) Model() string { return c.inner.Model() }

func (c *retryClient) ChatCompletion(ctx context.Context, messages []types.Message) (string, error) {
	log := logging.Get(logging.CategoryAPI)

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		text, err := c.inner.ChatCompletion(callCtx, messages)
		cancel()

		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warnw("completion attempt failed",
			"model", c.inner.Model(),
			"attempt", attempt,
			"of", c.attempts,
			"error", err)

		if attempt < c.attempts {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("completion failed after %d attempts: %w", c.attempts, lastErr)
}
