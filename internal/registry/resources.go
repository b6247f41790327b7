package registry

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vinodismyname/mcpsheets/config"
)

// PaginationGuideURI identifies the pagination guide resource.
const PaginationGuideURI = "sheets://guides/pagination"

// PaginationGuide renders the markdown served at PaginationGuideURI.
func PaginationGuide() string {
	return fmt.Sprintf(`# Paging through Sheets tools

Every tool returns at most one page. Keep calling until pagination.has_more is false.

## Token tools: %[1]s, %[2]s

- Pass max_results (1-1000; defaults %[5]d and %[6]d).
- Pass pagination.next_page_token back unchanged as page_token. Never build or edit tokens.
- A token only belongs to the search that produced it. Changing query, order_by or any filter
  requires starting again without page_token.
- INVALID_CURSOR means the token is stale or foreign: restart from the first page.
- pagination.total_estimated is informational and may be absent.

## Offset tools: %[3]s, %[4]s

- Pass max_sheets or max_tables (1-1000; defaults %[7]d and %[8]d).
- Pass pagination.next_start_index as start_index. It is absent on the last page.
- A start_index past the end returns an empty page, not an error. A negative start_index is
  INVALID_CURSOR.
- Offsets index a list recomputed on every call. If the spreadsheet changes between calls,
  items can shift; re-read from start_index 0 when exact coverage matters.
- %[4]s applies min_rows and min_columns before paging, so keep them fixed across pages.
`, ToolListSheets, ToolSearchSpreadsheets, ToolGetSheetNames, ToolListTables,
		config.DefaultListSheetsPageSize, config.DefaultSearchPageSize,
		config.DefaultSheetNamesPageSize, config.DefaultTablesPageSize)
}

// RegisterResources exposes the static guides.
func RegisterResources(s *server.MCPServer) {
	guide := mcp.NewResource(
		PaginationGuideURI,
		"pagination_guide",
		mcp.WithResourceDescription("How to page through list_sheets, search_spreadsheets, get_sheet_names and list_tables"),
		mcp.WithMIMEType("text/markdown"),
	)
	s.AddResource(guide, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      PaginationGuideURI,
				MIMEType: "text/markdown",
				Text:     PaginationGuide(),
			},
		}, nil
	})
}
