package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"contextos/internal/llm"
	"contextos/internal/logging"
	"contextos/internal/prompt"
	"contextos/internal/types"
)

// Classifier assigns the interaction level to an intent. Any failure
// falls back to Notify, the lower-friction presentation.
type Classifier struct {
	client   llm.Client
	renderer *prompt.Renderer
}

// NewClassifier creates a Classifier.
func NewClassifier(client llm.Client, renderer *prompt.Renderer) *Classifier {
	return &Classifier{client: client, renderer: renderer}
}

// Classify decides Notify or Review for the intent and records the
// verdict on it. This is the only writer of intent.Level.
func (c *Classifier) Classify(ctx context.Context, intent *types.Intent) types.Level {
	log := logging.Get(logging.CategoryIntent)

	level, err := c.callLLM(ctx, intent)
	if err != nil {
		log.Warnw("classification failed, falling back to Notify",
			"intent", intent.Metadata.UUID, "error", err)
		level = types.LevelNotify
	}

	intent.Level = level
	log.Infow("intent classified", "intent", intent.Metadata.UUID, "level", level)
	return level
}

func (c *Classifier) callLLM(ctx context.Context, intent *types.Intent) (types.Level, error) {
	system, err := c.renderer.Render(prompt.InteractionClassificationSystem, nil)
	if err != nil {
		return "", err
	}
	user, err := c.renderer.Render(prompt.InteractionClassificationUser, map[string]any{
		"Target": intent.Target,
		"Text":   intent.Context.TextPart(noTextPlaceholder),
	})
	if err != nil {
		return "", err
	}

	image, _ := intent.Context.ImagePart()
	response, err := c.client.ChatCompletion(ctx, []types.Message{
		types.TextMessage(types.RoleSystem, system),
		types.UserTurn(user, image),
	})
	if err != nil {
		return "", err
	}
	return parseClassification(response)
}

// parseClassification validates the model's JSON verdict. Anything
// other than a recognized level is an error for the caller's fallback.
func parseClassification(response string) (types.Level, error) {
	var verdict struct {
		Level     string `json:"level"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(response)), &verdict); err != nil {
		return "", fmt.Errorf("invalid JSON in classification response: %w", err)
	}

	level := types.Level(strings.TrimSpace(verdict.Level))
	if !level.Valid() {
		return "", fmt.Errorf("invalid level %q", verdict.Level)
	}

	logging.Get(logging.CategoryIntent).Debugw("classification reasoning", "reasoning", verdict.Reasoning)
	return level, nil
}

// stripCodeFences unwraps a response the model wrapped in a markdown
// code block.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
