package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Hooks implements mcp-go server lifecycle callbacks for logging. Tool calls
// are timed from the before hook to the after hook of the same request id.
type Hooks struct {
	logger zerolog.Logger
	clock  func() time.Time

	mu      sync.Mutex
	started map[string]time.Time
}

// NewHooks constructs a Hooks instance with the provided logger.
func NewHooks(logger zerolog.Logger) *Hooks {
	return &Hooks{logger: logger, clock: time.Now, started: map[string]time.Time{}}
}

// Server returns the mcp-go hook set bound to h.
func (h *Hooks) Server() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		h.OnSessionStart(session.SessionID())
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		h.OnSessionEnd(session.SessionID())
	})
	hooks.AddAfterListTools(func(ctx context.Context, id any, req *mcp.ListToolsRequest, res *mcp.ListToolsResult) {
		h.logger.Info().Int("tools", len(res.Tools)).Msg("list_tools served")
	})
	hooks.AddAfterReadResource(func(ctx context.Context, id any, req *mcp.ReadResourceRequest, res *mcp.ReadResourceResult) {
		h.logger.Info().Str("uri", req.Params.URI).Msg("resource read served")
	})
	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		h.BeforeToolCall(id)
	})
	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		h.AfterToolCall(id, req.Params.Name, res)
	})
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		h.OnError(id, string(method), err)
	})
	return hooks
}

// OnSessionStart records the start of a client session.
func (h *Hooks) OnSessionStart(sessionID string) {
	h.logger.Info().Str("session_id", sessionID).Msg("session started")
}

// OnSessionEnd records the end of a client session.
func (h *Hooks) OnSessionEnd(sessionID string) {
	h.logger.Info().Str("session_id", sessionID).Msg("session ended")
}

// BeforeToolCall marks the start of the request.
func (h *Hooks) BeforeToolCall(id any) {
	h.mu.Lock()
	h.started[key(id)] = h.clock()
	h.mu.Unlock()
}

// AfterToolCall logs the outcome and duration of a tool call. Tool-level
// errors (IsError results) are logged at warn with their message.
func (h *Hooks) AfterToolCall(id any, tool string, res *mcp.CallToolResult) {
	evt := h.logger.Info()
	if res != nil && res.IsError {
		evt = h.logger.Warn().Str("error", resultText(res))
	}
	evt = evt.Str("tool", tool)
	if d, ok := h.elapsed(id); ok {
		evt = evt.Dur("duration", d)
	}
	evt.Msg("tool call served")
}

// OnError logs protocol-level failures and drops any pending timer.
func (h *Hooks) OnError(id any, method string, err error) {
	h.elapsed(id)
	h.logger.Error().Str("method", method).Err(err).Msg("request error")
}

// Pending reports how many tool calls are in flight.
func (h *Hooks) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.started)
}

func (h *Hooks) elapsed(id any) (time.Duration, bool) {
	k := key(id)
	h.mu.Lock()
	start, ok := h.started[k]
	delete(h.started, k)
	h.mu.Unlock()
	if !ok {
		return 0, false
	}
	return h.clock().Sub(start), true
}

func key(id any) string { return fmt.Sprint(id) }

func resultText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
