// Package prompt bakes the engine's prompt templates into the binary
// and renders them by name. Templates are authored as text/template
// files under templates/ so prompt edits never touch Go code.
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names used by the engine stages.
const (
	IntentDetectionSystem           = "intent_detection_system"
	IntentDetectionUser             = "intent_detection_user"
	InteractionClassificationSystem = "interaction_classification_system"
	InteractionClassificationUser   = "interaction_classification_user"
	ReactAgentSystem                = "react_agent_system"
	ReactAgentUser                  = "react_agent_user"
	ReactAgentUserFollowup          = "react_agent_user_followup"
	TranslatorSystem                = "translator_system"
)

// ForcedFinishInstruction is appended to the user prompt on the final
// allowed iteration of the agent loop. It is the loop's only
// termination guarantee besides the iteration bound itself.
const ForcedFinishInstruction = "\n\n**IMPORTANT: This is the last iteration. You MUST contain the finish() action in this step to provide the final answer.**"

// Renderer renders named embedded templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded template set. Fails only if an
// embedded template is malformed, which is a build defect.
func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render executes the named template with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := r.templates.ExecuteTemplate(&sb, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", name, err)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
