package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"contextos/internal/logging"
)

// Registry holds the available tools. Thread-safe; tools can be
// registered, enabled and disabled at runtime. The registry is passed
// explicitly to whoever needs it rather than living in a package
// global.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*Tool
	enabled map[string]bool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]*Tool),
		enabled: make(map[string]bool),
	}
}

// Register adds a tool, enabled by default. Duplicate names are an
// error.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool
	r.enabled[tool.Name] = true

	logging.Get(logging.CategoryTools).Debugw("registered tool", "name", tool.Name)
	return nil
}

// MustRegister registers a tool and panics on error. For static
// registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns an enabled tool by name. Distinguishes unknown from
// disabled so the executor can phrase the observation accordingly.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if !r.enabled[name] {
		return nil, fmt.Errorf("%w: %s", ErrToolDisabled, name)
	}
	return tool, nil
}

// Enable marks a tool as available to the agent.
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	r.enabled[name] = true
	return nil
}

// Disable hides a tool from the agent without unregistering it.
func (r *Registry) Disable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	r.enabled[name] = false
	return nil
}

// Names returns the enabled tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		if r.enabled[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Describe renders the enabled tools as an action catalogue for the
// agent's system prompt, one line per tool.
func (r *Registry) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		if r.enabled[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		tool := r.tools[name]
		params := make([]string, 0, len(tool.Schema.Properties))
		for p := range tool.Schema.Properties {
			params = append(params, p)
		}
		sort.Strings(params)
		fmt.Fprintf(&sb, "- %s(%s): %s\n", tool.Name, strings.Join(params, ", "), tool.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}
