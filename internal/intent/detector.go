// Package intent turns raw signals into goals and decides how the
// eventual result should be presented. Both stages are single LLM
// calls with deliberate failure directions: detection degrades toward
// a generic intent, classification degrades toward Notify.
package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"contextos/internal/llm"
	"contextos/internal/logging"
	"contextos/internal/prompt"
	"contextos/internal/types"
)

// ErrorTarget marks an intent produced because detection itself
// failed. The agent still runs, so the failure surfaces to the user as
// a session instead of vanishing.
const ErrorTarget = "[ERROR]"

// noTextPlaceholder stands in for the text slot of image-only signals.
const noTextPlaceholder = "[NO TEXT]"

// Detector derives at most one actionable Intent per Signal.
type Detector struct {
	client   llm.Client
	renderer *prompt.Renderer
	userLang string
}

// NewDetector creates a Detector. userLang is the language goals are
// phrased in.
func NewDetector(client llm.Client, renderer *prompt.Renderer, userLang string) *Detector {
	if userLang == "" {
		userLang = "English"
	}
	return &Detector{client: client, renderer: renderer, userLang: userLang}
}

// Detect analyzes a signal. Returns nil when the signal implies no
// actionable goal; a signal that cannot be analyzed still produces an
// intent so the failure is visible downstream.
func (d *Detector) Detect(ctx context.Context, signal types.Signal) *types.Intent {
	log := logging.Get(logging.CategoryIntent)
	log.Infow("detecting intent", "signal", signal.Metadata.UUID, "source", signal.Source)

	response, err := d.callLLM(ctx, signal)
	if err != nil {
		log.Errorw("intent detection failed", "signal", signal.Metadata.UUID, "error", err)
		return &types.Intent{
			Target:   ErrorTarget,
			Source:   signal.Source,
			Context:  types.TextContent(err.Error()),
			Level:    types.LevelNotify,
			Metadata: signal.Metadata,
		}
	}

	intent := d.parseResponse(response, signal)
	if intent == nil {
		log.Infow("no actionable intent", "signal", signal.Metadata.UUID)
		return nil
	}
	log.Infow("intent detected", "signal", signal.Metadata.UUID, "target", intent.Target)
	return intent
}

func (d *Detector) callLLM(ctx context.Context, signal types.Signal) (string, error) {
	system, err := d.renderer.Render(prompt.IntentDetectionSystem, map[string]any{
		"UserLang": d.userLang,
	})
	if err != nil {
		return "", err
	}
	user, err := d.renderer.Render(prompt.IntentDetectionUser, map[string]any{
		"Text":   signal.Content.TextPart(noTextPlaceholder),
		"Source": signal.Source,
	})
	if err != nil {
		return "", err
	}

	image, _ := signal.Content.ImagePart()
	return d.client.ChatCompletion(ctx, []types.Message{
		types.TextMessage(types.RoleSystem, system),
		types.UserTurn(user, image),
	})
}

// parseResponse maps the model's JSON verdict onto an Intent. A null
// target means no intent; unparseable output degrades to a generic
// "process text" goal rather than losing the signal.
func (d *Detector) parseResponse(response string, signal types.Signal) *types.Intent {
	log := logging.Get(logging.CategoryIntent)

	var verdict struct {
		Target *string `json:"target"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(response)), &verdict); err != nil {
		log.Warnw("unparseable detection response, using generic intent",
			"error", err, "response", truncate(response, 200))
		return &types.Intent{
			Target:   "process text",
			Source:   signal.Source,
			Context:  signal.Content,
			Level:    types.LevelNotify,
			Metadata: signal.Metadata,
		}
	}

	if verdict.Target == nil || *verdict.Target == "null" || *verdict.Target == "None" {
		return nil
	}

	return &types.Intent{
		Target:   *verdict.Target,
		Source:   signal.Source,
		Context:  signal.Content,
		Level:    types.LevelNotify, // placeholder until classification
		Metadata: signal.Metadata,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
