package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"contextos/internal/config"
	"contextos/internal/types"
)

// geminiClient talks to the Gemini API. The client is created lazily
// on first call so constructing the engine never needs a context. One
// instance is shared across the concurrent pipeline stages, so the
// init is guarded by a sync.Once.
type geminiClient struct {
	apiKey      string
	model       string
	temperature float32

	initOnce sync.Once
	client   *genai.Client
	initErr  error
}

func newGeminiClient(cfg config.EngineConfig) *geminiClient {
	return &geminiClient{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (c *geminiClient) Model() string { return c.model }

// ensureClient creates the underlying genai client exactly once. A
// creation failure sticks; every caller sees the same error.
func (c *geminiClient) ensureClient(ctx context.Context) (*genai.Client, error) {
	c.initOnce.Do(func() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey})
		if err != nil {
			c.initErr = fmt.Errorf("failed to create genai client: %w", err)
			return
		}
		c.client = client
	})
	return c.client, c.initErr
}

func (c *geminiClient) ChatCompletion(ctx context.Context, messages []types.Message) (string, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}

	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			// Gemini takes the system turn as a config field, not as
			// part of the conversation.
			cfg.SystemInstruction = genai.NewContentFromText(m.Text(), genai.RoleUser)
		case types.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Text(), genai.RoleModel))
		default:
			contents = append(contents, userContent(m))
		}
	}

	result, err := client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", err
	}
	text := result.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// userContent builds a user turn, attaching inline image data when the
// message carries a base64 data URI. Remote URLs are left to the text
// channel since the API wants bytes, not links.
func userContent(m types.Message) *genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(m.Text())}
	if img, ok := m.Image(); ok {
		if mime, data, ok := decodeDataURI(img); ok {
			parts = append(parts, genai.NewPartFromBytes(data, mime))
		}
	}
	return genai.NewContentFromParts(parts, genai.RoleUser)
}

// decodeDataURI splits "data:image/png;base64,...." into mime type and
// raw bytes.
func decodeDataURI(uri string) (mime string, data []byte, ok bool) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, false
	}
	rest := strings.TrimPrefix(uri, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	mime = strings.TrimSuffix(meta, ";base64")
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return mime, raw, true
}
