package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"contextos/internal/logging"
)

// DefaultToolTimeout bounds a tool execution when the tool itself does
// not declare one.
const DefaultToolTimeout = 30 * time.Second

// displayFields are tried in order when a tool returns a map; the
// first present field becomes the observation text.
var displayFields = []string{
	"translated_text", "text", "message", "answer", "result", "value", "content",
}

// Executor runs tools on behalf of the reasoning loop.
//
// Execute never returns an error: every failure mode, unknown tool,
// disabled tool, missing argument, tool error, panic or timeout, is
// rendered as an observation string. The loop reads observations; it
// must never terminate because a tool misbehaved.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an Executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute runs one tool call and returns the observation.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) string {
	log := logging.Get(logging.CategoryTools)

	tool, err := e.registry.Get(name)
	if err != nil {
		log.Warnw("tool lookup failed", "name", name, "error", err)
		if errors.Is(err, ErrToolDisabled) {
			return fmt.Sprintf("Error: Tool '%s' is currently disabled. Please enable it in settings.", name)
		}
		return fmt.Sprintf("Error: Tool '%s' not found.", name)
	}

	if err := tool.ValidateArgs(args); err != nil {
		log.Warnw("tool called with invalid arguments", "name", name, "error", err)
		return fmt.Sprintf("Error: Invalid parameters for tool '%s': %v", name, err)
	}

	timeout := tool.Timeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := runTool(callCtx, tool, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Errorw("tool timed out", "name", name, "timeout", timeout)
			return fmt.Sprintf("Tool '%s' execution timed out. The operation took too long to complete.", name)
		}
		log.Errorw("tool failed", "name", name, "error", err)
		return fmt.Sprintf("Error executing tool '%s': %v", name, err)
	}

	obs := extractText(result)
	log.Debugw("tool executed", "name", name, "observation_len", len(obs))
	return obs
}

// runTool invokes the tool, converting a panic into an error so a
// misbehaving tool cannot take down the consumer goroutine.
func runTool(ctx context.Context, tool *Tool, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return tool.Execute(ctx, args)
}

// extractText normalizes any tool result into observation text.
// Maps go through the display-field priority list, then an error
// field, then a key-value join that skips internal fields.
func extractText(result any) string {
	switch v := result.(type) {
	case nil:
		return "No result"
	case string:
		return v
	case map[string]any:
		for _, field := range displayFields {
			if val, ok := v[field]; ok {
				return fmt.Sprint(val)
			}
		}
		if errVal, ok := v["error"]; ok {
			return fmt.Sprintf("Error: %v", errVal)
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			if strings.HasPrefix(k, "_") || k == "success" {
				continue
			}
			keys = append(keys, k)
		}
		if len(keys) == 0 {
			return fmt.Sprint(v)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s: %v", k, v[k]))
		}
		return strings.Join(pairs, "\n")
	default:
		return fmt.Sprint(v)
	}
}
