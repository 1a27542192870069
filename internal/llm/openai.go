package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"contextos/internal/config"
	"contextos/internal/types"
)

// openaiClient talks to any OpenAI-compatible endpoint. base_url makes
// it work against local gateways and proxy providers unchanged.
type openaiClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

func newOpenAIClient(cfg config.EngineConfig) *openaiClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &openaiClient{
		client:      openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (c *openaiClient) Model() string { return c.model }

func (c *openaiClient) ChatCompletion(ctx context.Context, messages []types.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toOpenAIMessages(messages),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// toOpenAIMessages converts the transcript. Text-only turns use the
// plain Content field, which every compatible server accepts;
// MultiContent is reserved for turns that actually carry an image.
func toOpenAIMessages(messages []types.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Role: string(m.Role)}
		if img, ok := m.Image(); ok {
			msg.MultiContent = []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: m.Text()},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: img},
				},
			}
		} else {
			msg.Content = m.Text()
		}
		out = append(out, msg)
	}
	return out
}
