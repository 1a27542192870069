// Package tools defines the agent's action surface: a registry of
// named tools and an executor that turns every outcome, success or
// failure, into an observation string the reasoning loop can read.
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Property describes one parameter of a tool.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// Schema defines a tool's parameters.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution. The returned value
// may be a string or a map; the executor normalizes it into an
// observation.
type ExecuteFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool is one registered action available to the agent.
type Tool struct {
	// Name is the unique identifier, also the action name the agent
	// emits.
	Name string

	// Description explains what the tool does, fed verbatim into the
	// agent's action catalogue.
	Description string

	// Schema defines the expected arguments.
	Schema Schema

	// Execute runs the tool.
	Execute ExecuteFunc

	// Timeout bounds one execution. Zero means the executor default.
	Timeout time.Duration
}

// Validate checks the tool definition.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// ValidateArgs checks a call's arguments against the schema's required
// list, wrapping ErrMissingRequiredArg with the missing names.
func (t *Tool) ValidateArgs(args map[string]any) error {
	var missing []string
	for _, req := range t.Schema.Required {
		if _, ok := args[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequiredArg, strings.Join(missing, ", "))
	}
	return nil
}
