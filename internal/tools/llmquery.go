package tools

import (
	"context"
	"fmt"
	"strings"

	"contextos/internal/llm"
	"contextos/internal/types"
)

// NewLLMQueryTool builds the general-purpose reasoning tool: a direct
// completion call for tasks that do not map to a specific tool.
func NewLLMQueryTool(client llm.Client) *Tool {
	return &Tool{
		Name:        "llm_query",
		Description: "Query the language model for reasoning, synthesis, or general task processing. Useful for tasks that do not map to specific tools",
		Schema: Schema{
			Required: []string{"prompt"},
			Properties: map[string]Property{
				"prompt": {
					Type:        "string",
					Description: "The query to send. Should be clear and specific about what you want",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			query := fmt.Sprint(args["prompt"])
			if strings.TrimSpace(query) == "" {
				return nil, fmt.Errorf("prompt is empty")
			}

			answer, err := client.ChatCompletion(ctx, []types.Message{
				types.TextMessage(types.RoleUser, query),
			})
			if err != nil {
				return nil, fmt.Errorf("query failed: %w", err)
			}
			return map[string]any{
				"answer":  strings.TrimSpace(answer),
				"success": true,
			}, nil
		},
	}
}
