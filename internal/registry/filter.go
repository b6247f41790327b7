package registry

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// DisabledToolFilter hides tools listed in tools.disabled (or
// MCPSHEETS_DISABLED_TOOLS) from discovery.
type DisabledToolFilter struct {
	disabled map[string]bool
}

// NewDisabledToolFilter constructs a filter for the given tool names.
// Matching is case-insensitive.
func NewDisabledToolFilter(names []string) *DisabledToolFilter {
	d := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			d[n] = true
		}
	}
	return &DisabledToolFilter{disabled: d}
}

// Disabled reports whether name is hidden.
func (f *DisabledToolFilter) Disabled(name string) bool {
	return f.disabled[strings.ToLower(name)]
}

// FilterTools implements server tool filtering semantics.
func (f *DisabledToolFilter) FilterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	if len(f.disabled) == 0 {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if f.Disabled(t.Name) {
			continue
		}
		out = append(out, t)
	}
	return out
}
