// Package output turns a finished reason-act result into a Session:
// the Formatter shapes the two transcripts, the SessionBuilder applies
// level-derived configuration and UI hints.
package output

import (
	"unicode"

	"contextos/internal/agent"
	"contextos/internal/logging"
	"contextos/internal/types"
)

// Formatted is the intermediate between the engine stages and the
// session builder.
type Formatted struct {
	Level          types.Level
	Title          string
	Messages       []types.Message
	MessagesToUser []types.Message
	IntentUUID     string
	IntentContext  types.Content
	Source         string
}

// Formatter shapes agent results for presentation.
type Formatter struct{}

// NewFormatter creates a Formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format builds the paired transcripts from an execution result.
//
// The LLM transcript keeps the full working record (system prompt,
// composed user turn, raw assistant response). The UI transcript
// carries the same turns with the agent scaffolding stripped: an empty
// system slot, the signal's plain text as the user turn, and only the
// final answer from the assistant. Padding the UI side keeps the two
// transcripts the same length, which every later mutation relies on.
func (f *Formatter) Format(result *agent.Result, intent *types.Intent) *Formatted {
	log := logging.Get(logging.CategoryPipeline)
	log.Infow("formatting result", "intent", intent.Metadata.UUID, "target", intent.Target)

	title := intent.Target
	if title == "" {
		title = "Result"
	}
	title = capitalize(title)

	messages := []types.Message{
		types.TextMessage(types.RoleSystem, result.SystemPrompt),
		result.UserTurn,
		types.TextMessage(types.RoleAssistant, result.Assistant),
	}

	image, _ := intent.Context.ImagePart()
	messagesToUser := []types.Message{
		types.TextMessage(types.RoleSystem, ""),
		types.UserTurn(intent.Context.TextPart(""), image),
		types.TextMessage(types.RoleAssistant, result.FinalAnswer),
	}

	return &Formatted{
		Level:          intent.Level,
		Title:          title,
		Messages:       messages,
		MessagesToUser: messagesToUser,
		IntentUUID:     intent.Metadata.UUID,
		IntentContext:  intent.Context,
		Source:         intent.Source,
	}
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
