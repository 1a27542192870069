package tools

import (
	"context"
	"fmt"
	"strings"

	"contextos/internal/llm"
	"contextos/internal/prompt"
	"contextos/internal/types"
)

// langNames expands short codes so the model sees a language name
// rather than a two-letter code.
var langNames = map[string]string{
	"en":   "English",
	"zh":   "Chinese",
	"ja":   "Japanese",
	"ko":   "Korean",
	"fr":   "French",
	"de":   "German",
	"es":   "Spanish",
	"auto": "auto-detect",
}

// NewTranslatorTool builds the LLM-backed translation tool.
// defaultTarget is the configured target language used when the agent
// does not pass one.
func NewTranslatorTool(client llm.Client, renderer *prompt.Renderer, defaultTarget string) *Tool {
	if defaultTarget == "" {
		defaultTarget = "English"
	}
	return &Tool{
		Name:        "translator",
		Description: fmt.Sprintf("Translate text between languages. Defaults to %s when no target language is given", defaultTarget),
		Schema: Schema{
			Required: []string{"text"},
			Properties: map[string]Property{
				"text": {
					Type:        "string",
					Description: "Text to translate",
				},
				"target_lang": {
					Type:        "string",
					Description: fmt.Sprintf("Target language name or code (e.g. \"zh\", \"French\"). Uses %q if not specified", defaultTarget),
					Default:     defaultTarget,
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			text := fmt.Sprint(args["text"])
			if strings.TrimSpace(text) == "" {
				return nil, fmt.Errorf("text is empty")
			}

			target := defaultTarget
			if v, ok := args["target_lang"]; ok && fmt.Sprint(v) != "" {
				target = fmt.Sprint(v)
			}
			if full, ok := langNames[strings.ToLower(target)]; ok {
				target = full
			}

			system, err := renderer.Render(prompt.TranslatorSystem, map[string]any{"TargetLang": target})
			if err != nil {
				return nil, err
			}

			translated, err := client.ChatCompletion(ctx, []types.Message{
				types.TextMessage(types.RoleSystem, system),
				types.TextMessage(types.RoleUser, text),
			})
			if err != nil {
				return nil, fmt.Errorf("translation failed: %w", err)
			}

			return map[string]any{
				"translated_text": strings.TrimSpace(translated),
				"target_lang":     target,
				"success":         true,
			}, nil
		},
	}
}
