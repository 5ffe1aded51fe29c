package tools

import (
	"fmt"
	"sort"
)

// Registry maps tool names to implementations
type Registry map[string]Tool

// NewRegistry registers every tool of every handler. Duplicate names are an error.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	tools := map[string]Tool{}
	for _, h := range handlers {
		for _, t := range h.Tools() {
			if _, dup := tools[t.Name()]; dup {
				return nil, fmt.Errorf("tool %q registered twice", t.Name())
			}
			tools[t.Name()] = t
		}
	}

	registry := Registry(tools)
	return &registry, nil
}

// GetTools returns all tools in the registry sorted by name
func (r *Registry) GetTools() []Tool {
	tools := make([]Tool, 0, len(*r))
	for _, tool := range *r {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetTool retrieves a tool by name from the registry
func (r Registry) GetTool(name string) (Tool, error) {
	tool, exists := r[name]
	if !exists {
		return nil, fmt.Errorf("tool %q not found in registry", name)
	}
	return tool, nil
}
