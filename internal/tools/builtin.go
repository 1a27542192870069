package tools

import (
	"contextos/internal/config"
	"contextos/internal/llm"
	"contextos/internal/logging"
	"contextos/internal/prompt"
)

// RegisterBuiltins registers the builtin tools, leaving any not named
// in the config disabled rather than unregistered so they can be
// enabled at runtime.
func RegisterBuiltins(reg *Registry, client llm.Client, renderer *prompt.Renderer, cfg config.ToolsConfig) error {
	builtins := []*Tool{
		NewCalculatorTool(),
		NewTranslatorTool(client, renderer, cfg.TargetLanguage),
		NewLLMQueryTool(client),
	}

	log := logging.Get(logging.CategoryTools)
	for _, tool := range builtins {
		if err := reg.Register(tool); err != nil {
			return err
		}
		if !cfg.IsEnabled(tool.Name) {
			if err := reg.Disable(tool.Name); err != nil {
				return err
			}
			log.Infow("builtin tool disabled by config", "name", tool.Name)
		}
	}
	return nil
}
