package mcperr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Code defines a canonical MCP error code used across tools.
type Code string

const (
	// Validation & Input
	Validation       Code = "VALIDATION"
	InvalidPageSize  Code = "INVALID_PAGE_SIZE"
	InvalidCursor    Code = "INVALID_CURSOR"
	InvalidGridShape Code = "INVALID_GRID_SHAPE"
	UnsupportedQuery Code = "UNSUPPORTED_QUERY"

	// Resource & Limits
	BusyResource Code = "BUSY_RESOURCE"
	Timeout      Code = "TIMEOUT"

	// Backend
	NotFound         Code = "NOT_FOUND"
	PermissionDenied Code = "PERMISSION_DENIED"
	UpstreamFailed   Code = "UPSTREAM_FAILED"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

// catalog maps canonical codes to guidance. Messages can be overridden per error.
var catalog = map[Code]Entry{
	Validation:       {Code: Validation, Message: "invalid inputs", Retryable: true, NextSteps: []string{"Correct the inputs per schema and retry"}},
	InvalidPageSize:  {Code: InvalidPageSize, Message: "page size must be between 1 and 1000", Retryable: true, NextSteps: []string{"Use a page size between 1 and 1000"}},
	InvalidCursor:    {Code: InvalidCursor, Message: "page token or start index is not valid for this listing", Retryable: true, NextSteps: []string{"Restart pagination from the first page", "Pass next_page_token or next_start_index exactly as returned"}},
	InvalidGridShape: {Code: InvalidGridShape, Message: "worksheet grid is not rectangular", Retryable: false, NextSteps: []string{"Inspect sheet_scans for the affected worksheet"}},
	UnsupportedQuery: {Code: UnsupportedQuery, Message: "query is not supported by this backend", Retryable: true, NextSteps: []string{"Use plain text or a single name contains '...' filter"}},

	BusyResource: {Code: BusyResource, Message: "concurrent request limit reached", Retryable: true, NextSteps: []string{"Retry after a short delay"}},
	Timeout:      {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, NextSteps: []string{"Lower the page size or restrict the sheets scanned", "Retry the same page"}},

	NotFound:         {Code: NotFound, Message: "spreadsheet or worksheet not found", Retryable: false, NextSteps: []string{"Verify spreadsheet_id via list_sheets", "Check worksheet names via get_sheet_names"}},
	PermissionDenied: {Code: PermissionDenied, Message: "insufficient permissions for this spreadsheet", Retryable: false, NextSteps: []string{"Share the spreadsheet with the configured account", "Check the credentials and token files"}},
	UpstreamFailed:   {Code: UpstreamFailed, Message: "spreadsheet backend request failed", Retryable: true, NextSteps: []string{"Retry after a short delay"}},
}

// Lookup returns the catalog entry for code.
func Lookup(code Code) (Entry, bool) {
	e, ok := catalog[code]
	return e, ok
}

// normalize builds a standard error string including next steps for MCP clients that
// surface only a message string. Format: "CODE: message" followed by a guidance tail.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", string(code), base)
	}
	if base == "" {
		base = e.Message
	}
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// FromText parses a "CODE: message" string, enriches it with catalog guidance,
// and returns an MCP tool error result.
func FromText(text string) *mcp.CallToolResult {
	t := strings.TrimSpace(text)
	if t == "" {
		return mcp.NewToolResultError(normalize(Validation, ""))
	}
	parts := strings.SplitN(t, ":", 2)
	code := Code(strings.TrimSpace(parts[0]))
	msg := ""
	if len(parts) > 1 {
		msg = strings.TrimSpace(parts[1])
	}
	return mcp.NewToolResultError(normalize(code, msg))
}

// New returns an MCP error result for a given code and optional message override.
func New(code Code, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, message))
}

// Wrapf formats details and returns an MCP error result for the code.
func Wrapf(code Code, format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, fmt.Sprintf(format, args...)))
}

// Classifier maps a sentinel error to a catalog code.
type Classifier struct {
	Target error
	Code   Code
}

// FromError picks the first classifier whose target matches err and renders
// err as the message. Context deadline errors map to TIMEOUT; anything
// unmatched is UPSTREAM_FAILED.
func FromError(err error, classes ...Classifier) *mcp.CallToolResult {
	return New(Classify(err, classes...), err.Error())
}

// Classify returns the code FromError would use.
func Classify(err error, classes ...Classifier) Code {
	for _, c := range classes {
		if errors.Is(err, c.Target) {
			return c.Code
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return UpstreamFailed
}
