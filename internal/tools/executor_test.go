package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExecuteUnknownAndDisabledTools(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(stubTool("sleeper"))
	if err := reg.Disable("sleeper"); err != nil {
		t.Fatal(err)
	}
	ex := NewExecutor(reg)

	if obs := ex.Execute(context.Background(), "ghost", nil); !strings.Contains(obs, "not found") {
		t.Errorf("unknown tool observation = %q", obs)
	}
	if obs := ex.Execute(context.Background(), "sleeper", nil); !strings.Contains(obs, "disabled") {
		t.Errorf("disabled tool observation = %q", obs)
	}
}

func TestExecuteMissingRequiredArgs(t *testing.T) {
	reg := NewRegistry()
	tool := stubTool("strict")
	tool.Schema.Required = []string{"input"}
	reg.MustRegister(tool)
	ex := NewExecutor(reg)

	obs := ex.Execute(context.Background(), "strict", map[string]any{})
	if !strings.Contains(obs, "Invalid parameters") || !strings.Contains(obs, "input") {
		t.Errorf("observation = %q", obs)
	}
}

func TestValidateArgsWrapsSentinel(t *testing.T) {
	tool := stubTool("strict")
	tool.Schema.Required = []string{"query", "lang"}

	err := tool.ValidateArgs(map[string]any{"lang": "fr"})
	if !errors.Is(err, ErrMissingRequiredArg) {
		t.Fatalf("expected ErrMissingRequiredArg, got %v", err)
	}
	if !strings.Contains(err.Error(), "query") {
		t.Errorf("error = %q, want the missing name listed", err)
	}
	if strings.Contains(err.Error(), "lang") {
		t.Errorf("error = %q, provided argument reported missing", err)
	}

	if err := tool.ValidateArgs(map[string]any{"query": "q", "lang": "fr"}); err != nil {
		t.Errorf("complete arguments rejected: %v", err)
	}
}

func TestExecuteNeverReturnsToolErrors(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Tool{
		Name:        "broken",
		Description: "always fails",
		Execute: func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("internal explosion")
		},
	})
	reg.MustRegister(&Tool{
		Name:        "panicky",
		Description: "always panics",
		Execute: func(_ context.Context, _ map[string]any) (any, error) {
			panic("boom")
		},
	})
	ex := NewExecutor(reg)

	obs := ex.Execute(context.Background(), "broken", nil)
	if !strings.Contains(obs, "Error executing tool 'broken'") {
		t.Errorf("error observation = %q", obs)
	}

	obs = ex.Execute(context.Background(), "panicky", nil)
	if !strings.Contains(obs, "panicked") {
		t.Errorf("panic observation = %q", obs)
	}
}

func TestExecuteTimeout(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Tool{
		Name:        "slow",
		Description: "sleeps past its deadline",
		Timeout:     20 * time.Millisecond,
		Execute: func(ctx context.Context, _ map[string]any) (any, error) {
			select {
			case <-time.After(5 * time.Second):
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})
	ex := NewExecutor(reg)

	obs := ex.Execute(context.Background(), "slow", nil)
	if !strings.Contains(obs, "timed out") {
		t.Errorf("timeout observation = %q", obs)
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   string
	}{
		{"nil result", nil, "No result"},
		{"plain string", "hello", "hello"},
		{"translated_text wins over result", map[string]any{"translated_text": "bonjour", "result": "x"}, "bonjour"},
		{"answer field", map[string]any{"answer": "42", "success": true}, "42"},
		{"error field", map[string]any{"error": "bad input", "success": false}, "Error: bad input"},
		{"key value fallback", map[string]any{"count": 3, "_debug": "x", "success": true}, "count: 3"},
		{"number", 7, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.result); got != tt.want {
				t.Errorf("extractText = %q, want %q", got, tt.want)
			}
		})
	}
}
