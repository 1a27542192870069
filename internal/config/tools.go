package config

// ToolsConfig selects which builtin tools the agent may call.
type ToolsConfig struct {
	// Enabled lists tool names registered at startup.
	Enabled []string `yaml:"enabled"`

	// TargetLanguage is the translator tool's output language.
	TargetLanguage string `yaml:"target_language"`
}

// IsEnabled reports whether a tool name appears in the enabled list.
func (c ToolsConfig) IsEnabled(name string) bool {
	for _, n := range c.Enabled {
		if n == name {
			return true
		}
	}
	return false
}
