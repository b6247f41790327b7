package registry

import (
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tmc/langchaingo/llms"
)

// Registry records the tool definitions the server exposes, for startup
// logging and tests. mcp-go keeps the handlers.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]mcp.Tool
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{tools: map[string]mcp.Tool{}}
}

// Register stores a tool definition, replacing any tool of the same name.
func (r *Registry) Register(tool mcp.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Get returns a tool by name when present.
func (r *Registry) Get(name string) (mcp.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []mcp.Tool {
	r.mu.RLock()
	tools := make([]mcp.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	r.mu.RUnlock()

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Names returns the sorted tool names, optionally excluding those hidden by f.
func (r *Registry) Names(f *DisabledToolFilter) []string {
	var names []string
	for _, t := range r.Tools() {
		if f != nil && f.Disabled(t.Name) {
			continue
		}
		names = append(names, t.Name)
	}
	return names
}

// ModelContextSize exposes a model's context window, logged at startup so
// operators can compare it against configured page sizes.
func (r *Registry) ModelContextSize(modelName string) int {
	return llms.GetModelContextSize(modelName)
}
