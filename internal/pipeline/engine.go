package pipeline

import (
	"contextos/internal/agent"
	"contextos/internal/config"
	"contextos/internal/intent"
	"contextos/internal/llm"
	"contextos/internal/output"
	"contextos/internal/prompt"
	"contextos/internal/tools"
)

// Engine bundles the processing stages a signal flows through. Built
// as a unit so a config reload can swap the whole set atomically.
type Engine struct {
	Detector   *intent.Detector
	Classifier *intent.Classifier
	Agent      *agent.ReactAgent
	Formatter  *output.Formatter
	Builder    *output.SessionBuilder

	// Client is the shared LLM client behind every stage, exposed so
	// the LLM-backed builtin tools can reuse it.
	Client llm.Client
}

// NewEngine builds the stages from configuration, sharing one LLM
// client and the injected tool registry.
func NewEngine(cfg *config.Config, registry *tools.Registry, renderer *prompt.Renderer) (*Engine, error) {
	client, err := llm.New(cfg.Engine)
	if err != nil {
		return nil, err
	}

	executor := tools.NewExecutor(registry)
	lang := cfg.User.DefaultLanguage

	return &Engine{
		Detector:   intent.NewDetector(client, renderer, lang),
		Classifier: intent.NewClassifier(client, renderer),
		Agent:      agent.New(client, executor, registry, renderer, cfg.Engine.Iterations(), lang),
		Formatter:  output.NewFormatter(),
		Builder:    output.NewSessionBuilder(cfg.Session),
		Client:     client,
	}, nil
}
