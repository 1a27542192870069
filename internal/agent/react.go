// Package agent implements the reason-act loop that fulfills intents:
// the model thinks, picks one action per step, observes the result,
// and finishes with a final answer within a bounded iteration budget.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"contextos/internal/llm"
	"contextos/internal/logging"
	"contextos/internal/prompt"
	"contextos/internal/tools"
	"contextos/internal/types"
)

// ErrNoFinish is returned when the loop exhausts its iteration budget
// without the model calling finish(). The forced-finish instruction on
// the last iteration makes this rare; when it happens anyway it is a
// fatal processing error for the signal.
var ErrNoFinish = errors.New("reason-act loop completed without finish action")

// ErrNoUserTurn is returned by ExecuteContinue when the transcript does
// not end with a user message.
var ErrNoUserTurn = errors.New("transcript does not end with a user turn")

const noTextPlaceholder = "[NO TEXT]"

// noResultPlaceholder stands in when finish() is called without a
// result parameter.
const noResultPlaceholder = "Task completed (no result provided)"

// step is one completed loop iteration.
type step struct {
	thought     string
	action      string
	params      map[string]any
	observation string
}

// Result is the outcome of a completed loop, carrying everything the
// formatter needs to build both transcripts.
type Result struct {
	// SystemPrompt is the system message the loop ran under.
	SystemPrompt string

	// UserTurn is the final composed user message, including the
	// rendered history of intermediate steps.
	UserTurn types.Message

	// Assistant is the model's raw finishing response.
	Assistant string

	// FinalAnswer is the cleaned result extracted from finish().
	FinalAnswer string

	// Iterations is how many loop steps ran, including the finish.
	Iterations int
}

// ContinueResult is the outcome of resuming a session transcript.
type ContinueResult struct {
	// ComposedUser replaces the trailing plain user turn in the LLM
	// transcript; it embeds the follow-up prompt and step history.
	ComposedUser types.Message

	// Assistant is the raw finishing response.
	Assistant types.Message

	// AssistantClean carries only the final answer.
	AssistantClean types.Message
}

// ReactAgent runs the loop. Safe for concurrent use; all state lives
// on the stack of each call.
type ReactAgent struct {
	client        llm.Client
	executor      *tools.Executor
	registry      *tools.Registry
	renderer      *prompt.Renderer
	maxIterations int
	userLang      string
}

// New creates a ReactAgent.
func New(client llm.Client, executor *tools.Executor, registry *tools.Registry, renderer *prompt.Renderer, maxIterations int, userLang string) *ReactAgent {
	if maxIterations < 1 {
		maxIterations = 5
	}
	if userLang == "" {
		userLang = "English"
	}
	return &ReactAgent{
		client:        client,
		executor:      executor,
		registry:      registry,
		renderer:      renderer,
		maxIterations: maxIterations,
		userLang:      userLang,
	}
}

// Execute fulfills an intent. Recoverable failures inside an iteration
// become observations; only budget exhaustion is returned as an error.
func (a *ReactAgent) Execute(ctx context.Context, intent *types.Intent) (*Result, error) {
	log := logging.Get(logging.CategoryAgent)
	log.Infow("starting reason-act loop", "intent", intent.Metadata.UUID, "target", intent.Target)

	systemPrompt, err := a.systemPrompt()
	if err != nil {
		return nil, err
	}
	image, _ := intent.Context.ImagePart()

	var history []step
	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		last := iteration == a.maxIterations
		log.Debugw("loop iteration", "n", iteration, "of", a.maxIterations, "forced_finish", last)

		userPrompt, err := a.renderer.Render(prompt.ReactAgentUser, map[string]any{
			"IntentTarget": intent.Target,
			"Text":         intent.Context.TextPart(noTextPlaceholder),
			"History":      formatHistory(history),
		})
		if err != nil {
			return nil, err
		}
		if last {
			userPrompt += prompt.ForcedFinishInstruction
		}
		userMsg := types.UserTurn(userPrompt, image)

		response, err := a.client.ChatCompletion(ctx, []types.Message{
			types.TextMessage(types.RoleSystem, systemPrompt),
			userMsg,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			history = appendErrorStep(history, err)
			continue
		}

		thought, action, params, err := parseResponse(response)
		if err != nil {
			history = appendErrorStep(history, err)
			continue
		}

		if isFinish(action) {
			log.Infow("loop finished", "intent", intent.Metadata.UUID, "iterations", iteration)
			return &Result{
				SystemPrompt: systemPrompt,
				UserTurn:     userMsg,
				Assistant:    response,
				FinalAnswer:  finalResult(params),
				Iterations:   iteration,
			}, nil
		}

		observation := a.executor.Execute(ctx, action, params)
		history = append(history, step{thought: thought, action: action, params: params, observation: observation})
	}

	log.Errorw("loop exhausted without finish", "intent", intent.Metadata.UUID, "iterations", a.maxIterations)
	return nil, ErrNoFinish
}

// ExecuteContinue resumes a session transcript after a new user turn.
// The transcript itself is not mutated; the caller applies the
// returned messages under its own write ownership.
func (a *ReactAgent) ExecuteContinue(ctx context.Context, session *types.Session) (*ContinueResult, error) {
	log := logging.Get(logging.CategoryAgent)
	log.Infow("continuing conversation", "session", session.Metadata.UUID, "title", session.Title)

	if len(session.Messages) == 0 || session.Messages[len(session.Messages)-1].Role != types.RoleUser {
		return nil, ErrNoUserTurn
	}

	payload := types.CloneMessages(session.Messages)
	lastTurn := payload[len(payload)-1]
	payload = payload[:len(payload)-1]

	userQuery := lastTurn.Text()
	image, _ := lastTurn.Image()

	var history []step
	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		last := iteration == a.maxIterations

		userPrompt, err := a.renderer.Render(prompt.ReactAgentUserFollowup, map[string]any{
			"Text":    userQuery,
			"History": formatHistory(history),
		})
		if err != nil {
			return nil, err
		}
		if last {
			userPrompt += prompt.ForcedFinishInstruction
		}
		userMsg := types.UserTurn(userPrompt, image)

		response, err := a.client.ChatCompletion(ctx, append(types.CloneMessages(payload), userMsg))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			history = appendErrorStep(history, err)
			continue
		}

		thought, action, params, err := parseResponse(response)
		if err != nil {
			history = appendErrorStep(history, err)
			continue
		}

		if isFinish(action) {
			log.Infow("continuation finished", "session", session.Metadata.UUID, "iterations", iteration)
			return &ContinueResult{
				ComposedUser:   userMsg,
				Assistant:      types.TextMessage(types.RoleAssistant, response),
				AssistantClean: types.TextMessage(types.RoleAssistant, finalResult(params)),
			}, nil
		}

		observation := a.executor.Execute(ctx, action, params)
		history = append(history, step{thought: thought, action: action, params: params, observation: observation})
	}

	log.Errorw("continuation exhausted without finish", "session", session.Metadata.UUID)
	return nil, ErrNoFinish
}

func (a *ReactAgent) systemPrompt() (string, error) {
	return a.renderer.Render(prompt.ReactAgentSystem, map[string]any{
		"ToolsDescription": a.registry.Describe(),
		"UserLang":         a.userLang,
	})
}

// appendErrorStep records a failed iteration so the model can observe
// and recover from it. The previous thought is carried forward to keep
// the history readable.
func appendErrorStep(history []step, err error) []step {
	lastThought := ""
	if len(history) > 0 {
		lastThought = history[len(history)-1].thought
	}
	return append(history, step{
		thought:     lastThought,
		action:      "error",
		params:      map[string]any{},
		observation: fmt.Sprintf("Error: %v", err),
	})
}

// formatHistory renders completed steps for the next prompt.
func formatHistory(history []step) string {
	if len(history) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, s := range history {
		fmt.Fprintf(&sb, "**Step %d:**\n", i+1)
		if s.thought != "" {
			fmt.Fprintf(&sb, "<thought>%s</thought>\n", s.thought)
		}
		params, err := json.Marshal(s.params)
		if err != nil {
			params = []byte("{}")
		}
		fmt.Fprintf(&sb, "<action>%s(%s)</action>\n", s.action, params)
		fmt.Fprintf(&sb, "Observation: %s\n\n", s.observation)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func isFinish(action string) bool {
	return strings.EqualFold(action, "finish")
}

// finalResult extracts the answer from finish() parameters, degrading
// to a placeholder when the model forgot the result parameter.
func finalResult(params map[string]any) string {
	v, ok := params["result"]
	if !ok {
		return noResultPlaceholder
	}
	s := fmt.Sprint(v)
	if s == "" {
		return noResultPlaceholder
	}
	return s
}
