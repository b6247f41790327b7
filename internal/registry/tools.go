package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/grid"
	"github.com/vinodismyname/mcpsheets/internal/listing"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/vinodismyname/mcpsheets/pkg/pagination"
	"github.com/vinodismyname/mcpsheets/pkg/validation"
)

// Tool names.
const (
	ToolListSheets         = "list_sheets"
	ToolSearchSpreadsheets = "search_spreadsheets"
	ToolGetSheetNames      = "get_sheet_names"
	ToolListTables         = "list_tables"
)

// --- Input schemas ---

// ListSheetsInput defines parameters for list_sheets.
type ListSheetsInput struct {
	MaxResults *int   `json:"max_results,omitempty" validate:"omitnil,min=1,max=1000" jsonschema_description:"Spreadsheets per page (1-1000, default 50)"`
	PageToken  string `json:"page_token,omitempty" validate:"omitempty,pagetoken" jsonschema_description:"next_page_token from the previous page; omit for the first page"`
}

// SearchSpreadsheetsInput defines parameters for search_spreadsheets.
type SearchSpreadsheetsInput struct {
	Query          string `json:"query,omitempty" jsonschema_description:"Plain text matched against file names, or a Drive query expression such as name contains 'budget'. Empty lists every spreadsheet"`
	MaxResults     *int   `json:"max_results,omitempty" validate:"omitnil,min=1,max=1000" jsonschema_description:"Results per page (1-1000, default 10)"`
	PageToken      string `json:"page_token,omitempty" validate:"omitempty,pagetoken" jsonschema_description:"next_page_token from the previous page of the same search"`
	OrderBy        string `json:"order_by,omitempty" validate:"omitempty,max=200" jsonschema_description:"Drive ordering, e.g. 'modifiedTime desc' (default) or 'name'"`
	SharedWithMe   bool   `json:"shared_with_me,omitempty" jsonschema_description:"Only spreadsheets shared with the account"`
	StarredOnly    bool   `json:"starred_only,omitempty" jsonschema_description:"Only starred spreadsheets"`
	IncludeTrashed bool   `json:"include_trashed,omitempty" jsonschema_description:"Also match spreadsheets in the trash"`
	CreatedAfter   string `json:"created_after,omitempty" validate:"omitempty,rfc3339" jsonschema_description:"RFC 3339 lower bound on creation time"`
	ModifiedAfter  string `json:"modified_after,omitempty" validate:"omitempty,rfc3339" jsonschema_description:"RFC 3339 lower bound on modification time"`
}

// GetSheetNamesInput defines parameters for get_sheet_names.
type GetSheetNamesInput struct {
	SpreadsheetID string `json:"spreadsheet_id" validate:"required,sheetid" jsonschema_description:"Spreadsheet id (Drive file id, or workbook path for the local backend)"`
	MaxSheets     *int   `json:"max_sheets,omitempty" validate:"omitnil,min=1,max=1000" jsonschema_description:"Worksheets per page (1-1000, default 100)"`
	StartIndex    *int   `json:"start_index,omitempty" validate:"omitnil,min=0" jsonschema_description:"0-based offset; pass next_start_index from the previous page"`
}

// ListTablesInput defines parameters for list_tables.
type ListTablesInput struct {
	SpreadsheetID string   `json:"spreadsheet_id" validate:"required,sheetid" jsonschema_description:"Spreadsheet id (Drive file id, or workbook path for the local backend)"`
	MaxTables     *int     `json:"max_tables,omitempty" validate:"omitnil,min=1,max=1000" jsonschema_description:"Tables per page (1-1000, default 50)"`
	StartIndex    *int     `json:"start_index,omitempty" validate:"omitnil,min=0" jsonschema_description:"0-based offset into the detected tables; pass next_start_index from the previous page"`
	Sheets        []string `json:"sheets,omitempty" validate:"omitempty,max=1000,dive,required" jsonschema_description:"Restrict the scan to these worksheet titles"`
	MinRows       int      `json:"min_rows,omitempty" validate:"omitempty,min=1" jsonschema_description:"Drop tables with fewer rows, header included (default 1)"`
	MinColumns    int      `json:"min_columns,omitempty" validate:"omitempty,min=1" jsonschema_description:"Drop tables with fewer columns (default 1)"`
}

// --- Output schemas ---

// SheetFile describes one spreadsheet in list_sheets and search_spreadsheets.
type SheetFile struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	MimeType       string   `json:"mime_type,omitempty"`
	CreatedTime    string   `json:"created_time,omitempty" jsonschema_description:"RFC 3339"`
	ModifiedTime   string   `json:"modified_time,omitempty" jsonschema_description:"RFC 3339"`
	CreatedDate    string   `json:"created_date,omitempty" jsonschema_description:"YYYY-MM-DD HH:MM:SS (UTC)"`
	ModifiedDate   string   `json:"modified_date,omitempty" jsonschema_description:"YYYY-MM-DD HH:MM:SS (UTC)"`
	Size           int64    `json:"size"`
	SizeFormatted  string   `json:"size_formatted"`
	Shared         bool     `json:"shared"`
	Starred        bool     `json:"starred"`
	Trashed        bool     `json:"trashed"`
	Owners         []string `json:"owners,omitempty"`
	Parents        []string `json:"parents,omitempty"`
	WebViewLink    string   `json:"web_view_link,omitempty"`
	WebContentLink string   `json:"web_content_link,omitempty"`
}

// TokenPagination is the continuation block of token-paged tools.
type TokenPagination struct {
	HasMore        bool   `json:"has_more"`
	NextPageToken  string `json:"next_page_token,omitempty" jsonschema_description:"Opaque; pass back unchanged as page_token"`
	TotalEstimated *int   `json:"total_estimated,omitempty" jsonschema_description:"Backend-reported total when available"`
}

// IndexPagination is the continuation block of offset-paged tools.
type IndexPagination struct {
	HasMore        bool `json:"has_more"`
	NextStartIndex *int `json:"next_start_index,omitempty" jsonschema_description:"Pass as start_index for the next page"`
	ReturnedCount  int  `json:"returned_count"`
	StartIndex     int  `json:"start_index"`
	EndIndex       int  `json:"end_index" jsonschema_description:"Exclusive end offset of this page"`
}

// PageSummary echoes the page request.
type PageSummary struct {
	ReturnedCount int `json:"returned_count"`
	MaxResults    int `json:"max_results"`
}

// ListSheetsOutput documents the list_sheets response.
type ListSheetsOutput struct {
	Sheets     []SheetFile     `json:"sheets"`
	Pagination TokenPagination `json:"pagination"`
	Summary    PageSummary     `json:"summary"`
	Message    string          `json:"message"`
}

// SearchParameters echoes the effective search filters.
type SearchParameters struct {
	Query          string `json:"query"`
	OrderBy        string `json:"order_by"`
	SharedWithMe   bool   `json:"shared_with_me"`
	StarredOnly    bool   `json:"starred_only"`
	IncludeTrashed bool   `json:"include_trashed"`
	CreatedAfter   string `json:"created_after,omitempty"`
	ModifiedAfter  string `json:"modified_after,omitempty"`
	MaxResults     int    `json:"max_results"`
}

// SearchSpreadsheetsOutput documents the search_spreadsheets response.
type SearchSpreadsheetsOutput struct {
	Spreadsheets     []SheetFile      `json:"spreadsheets"`
	Pagination       TokenPagination  `json:"pagination"`
	SearchParameters SearchParameters `json:"search_parameters"`
	SearchQuery      string           `json:"search_query" jsonschema_description:"Drive query sent to the backend"`
	Summary          PageSummary      `json:"summary"`
	Message          string           `json:"message"`
}

// SheetDetail describes one worksheet.
type SheetDetail struct {
	Title   string `json:"title"`
	SheetID int64  `json:"sheet_id"`
	Index   int    `json:"index"`
	Hidden  bool   `json:"hidden"`
	Type    string `json:"type,omitempty"`
}

// SpreadsheetInfo carries spreadsheet-level properties.
type SpreadsheetInfo struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Title         string `json:"title"`
	Locale        string `json:"locale,omitempty"`
	TimeZone      string `json:"time_zone,omitempty"`
}

// SheetNamesPagination adds the worksheet total to IndexPagination.
type SheetNamesPagination struct {
	IndexPagination
	TotalSheets int `json:"total_sheets"`
}

// GetSheetNamesOutput documents the get_sheet_names response.
type GetSheetNamesOutput struct {
	SheetNames      []string             `json:"sheet_names"`
	SheetDetails    []SheetDetail        `json:"sheet_details"`
	SheetCount      int                  `json:"sheet_count" jsonschema_description:"Worksheets on this page"`
	SpreadsheetInfo SpreadsheetInfo      `json:"spreadsheet_info"`
	Pagination      SheetNamesPagination `json:"pagination"`
	Message         string               `json:"message"`
}

// TableInfo describes one detected table.
type TableInfo struct {
	SheetID    int64      `json:"sheet_id"`
	SheetTitle string     `json:"sheet_title"`
	Range      grid.Range `json:"range" jsonschema_description:"0-based inclusive row/column bounds"`
	A1Range    string     `json:"a1_range"`
	Title      string     `json:"title"`
	HeaderRow  int        `json:"header_row" jsonschema_description:"0-based row index of the header"`
	Headers    []string   `json:"headers,omitempty"`
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	Confidence float64    `json:"confidence" jsonschema_description:"Header quality in [0,1]; informational only"`
}

// SheetScanInfo reports what was scanned on one worksheet.
type SheetScanInfo struct {
	SheetID   int64  `json:"sheet_id"`
	Title     string `json:"title"`
	Rows      int    `json:"rows"`
	Cols      int    `json:"cols"`
	Tables    int    `json:"tables"`
	Truncated bool   `json:"truncated,omitempty" jsonschema_description:"Grid was clipped to the configured cell budget"`
	Error     string `json:"error,omitempty" jsonschema_description:"Why this worksheet was skipped"`
}

// TablesPagination adds the table total to IndexPagination.
type TablesPagination struct {
	IndexPagination
	TotalTables int `json:"total_tables"`
}

// ListTablesOutput documents the list_tables response.
type ListTablesOutput struct {
	SpreadsheetID string           `json:"spreadsheet_id"`
	Tables        []TableInfo      `json:"tables"`
	TotalTables   int              `json:"total_tables"`
	TotalSheets   int              `json:"total_sheets"`
	SheetScans    []SheetScanInfo  `json:"sheet_scans"`
	Pagination    TablesPagination `json:"pagination"`
	Message       string           `json:"message"`
}

// classes maps listing, pagination and grid sentinels to catalog codes.
var classes = []mcperr.Classifier{
	{Target: pagination.ErrInvalidPageSize, Code: mcperr.InvalidPageSize},
	{Target: pagination.ErrInvalidCursor, Code: mcperr.InvalidCursor},
	{Target: grid.ErrInvalidGridShape, Code: mcperr.InvalidGridShape},
	{Target: listing.ErrUnsupportedQuery, Code: mcperr.UnsupportedQuery},
	{Target: listing.ErrNotFound, Code: mcperr.NotFound},
	{Target: listing.ErrPermissionDenied, Code: mcperr.PermissionDenied},
}

// RegisterListingTools wires the four listing tools onto s and records them in reg.
func RegisterListingTools(s *server.MCPServer, reg *Registry, svc *listing.Service) {
	listSheets := mcp.NewTool(
		ToolListSheets,
		mcp.WithDescription("List spreadsheets visible to the configured account, newest activity first as reported by the backend. Pages with an opaque page_token: pass next_page_token back unchanged while pagination.has_more is true. Errors include INVALID_PAGE_SIZE, INVALID_CURSOR (stale or foreign token; restart without it), PERMISSION_DENIED and UPSTREAM_FAILED."),
		mcp.WithInputSchema[ListSheetsInput](),
		mcp.WithOutputSchema[ListSheetsOutput](),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listSheets, bindArgs(listSheetsHandler(svc)))
	reg.Register(listSheets)

	search := mcp.NewTool(
		ToolSearchSpreadsheets,
		mcp.WithDescription("Search spreadsheets by name (plain text becomes name contains '...') or with a Drive query expression, optionally filtered by sharing, starring, trash and creation/modification time. Pages like list_sheets; a page_token is only valid for the exact same search. search_query echoes the expression sent to the backend. Errors include VALIDATION (timestamps must be RFC 3339), INVALID_PAGE_SIZE, INVALID_CURSOR and UNSUPPORTED_QUERY (local backend accepts only name filters)."),
		mcp.WithInputSchema[SearchSpreadsheetsInput](),
		mcp.WithOutputSchema[SearchSpreadsheetsOutput](),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(search, bindArgs(searchHandler(svc)))
	reg.Register(search)

	names := mcp.NewTool(
		ToolGetSheetNames,
		mcp.WithDescription("List the worksheets of one spreadsheet in tab order with sheet ids, hidden flags and spreadsheet properties. Pages by offset: pass pagination.next_start_index as start_index while has_more is true. A start_index past the end returns an empty page. Errors include NOT_FOUND, PERMISSION_DENIED, INVALID_PAGE_SIZE and INVALID_CURSOR (negative start_index)."),
		mcp.WithInputSchema[GetSheetNamesInput](),
		mcp.WithOutputSchema[GetSheetNamesOutput](),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(names, bindArgs(sheetNamesHandler(svc)))
	reg.Register(names)

	listTables := mcp.NewTool(
		ToolListTables,
		mcp.WithDescription("Detect rectangular tables on every worksheet (or the listed sheets) of a spreadsheet. Tables are separated by fully blank rows or columns; each comes with its A1 range, header row, headers, size and a confidence score. Results keep worksheet order, then top-to-bottom, left-to-right, and page by offset via start_index/next_start_index. min_rows and min_columns drop small regions before paging. sheet_scans reports per-worksheet sizes, clipping and skipped sheets (INVALID_GRID_SHAPE). Errors include NOT_FOUND (unknown spreadsheet or worksheet), INVALID_PAGE_SIZE and INVALID_CURSOR."),
		mcp.WithInputSchema[ListTablesInput](),
		mcp.WithOutputSchema[ListTablesOutput](),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listTables, bindArgs(listTablesHandler(svc)))
	reg.Register(listTables)
}

// bindArgs decodes arguments into T like mcp.NewTypedToolHandler, but
// reports decode failures through the error catalog.
func bindArgs[T any](h mcp.TypedToolHandlerFunc[T]) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in T
		if msg := validation.Bind(req.Params.Arguments, &in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		return h(ctx, req, in)
	}
}

func listSheetsHandler(svc *listing.Service) mcp.TypedToolHandlerFunc[ListSheetsInput] {
	return func(ctx context.Context, req mcp.CallToolRequest, in ListSheetsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		limit := intOr(in.MaxResults, config.DefaultListSheetsPageSize)
		page, err := svc.ListSheets(ctx, pagination.PageRequest{Limit: limit, Cursor: pagination.TokenCursor(in.PageToken)})
		if err != nil {
			return mcperr.FromError(err, classes...), nil
		}
		out := ListSheetsOutput{
			Sheets:     toSheetFiles(page.Items),
			Pagination: tokenPagination(page.PageResult),
			Summary:    PageSummary{ReturnedCount: len(page.Items), MaxResults: limit},
			Message:    page.Summary,
		}
		return structured(out, page.Summary, fileLines(out.Sheets)), nil
	}
}

func searchHandler(svc *listing.Service) mcp.TypedToolHandlerFunc[SearchSpreadsheetsInput] {
	return func(ctx context.Context, req mcp.CallToolRequest, in SearchSpreadsheetsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		q := listing.Query{
			Text:           strings.TrimSpace(in.Query),
			OrderBy:        strings.TrimSpace(in.OrderBy),
			SharedWithMe:   in.SharedWithMe,
			StarredOnly:    in.StarredOnly,
			IncludeTrashed: in.IncludeTrashed,
			CreatedAfter:   parseRFC3339(in.CreatedAfter),
			ModifiedAfter:  parseRFC3339(in.ModifiedAfter),
		}
		limit := intOr(in.MaxResults, config.DefaultSearchPageSize)
		page, err := svc.SearchSpreadsheets(ctx, q, pagination.PageRequest{Limit: limit, Cursor: pagination.TokenCursor(in.PageToken)})
		if err != nil {
			return mcperr.FromError(err, classes...), nil
		}
		out := SearchSpreadsheetsOutput{
			Spreadsheets: toSheetFiles(page.Items),
			Pagination:   tokenPagination(page.PageResult),
			SearchParameters: SearchParameters{
				Query:          page.Query.Text,
				OrderBy:        page.Query.OrderBy,
				SharedWithMe:   page.Query.SharedWithMe,
				StarredOnly:    page.Query.StarredOnly,
				IncludeTrashed: page.Query.IncludeTrashed,
				CreatedAfter:   strings.TrimSpace(in.CreatedAfter),
				ModifiedAfter:  strings.TrimSpace(in.ModifiedAfter),
				MaxResults:     limit,
			},
			SearchQuery: page.DriveQuery,
			Summary:     PageSummary{ReturnedCount: len(page.Items), MaxResults: limit},
			Message:     page.Summary,
		}
		return structured(out, page.Summary, fileLines(out.Spreadsheets)), nil
	}
}

func sheetNamesHandler(svc *listing.Service) mcp.TypedToolHandlerFunc[GetSheetNamesInput] {
	return func(ctx context.Context, req mcp.CallToolRequest, in GetSheetNamesInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		limit := intOr(in.MaxSheets, config.DefaultSheetNamesPageSize)
		start := intOr(in.StartIndex, 0)
		page, err := svc.GetSheetNames(ctx, strings.TrimSpace(in.SpreadsheetID), pagination.PageRequest{Limit: limit, Cursor: pagination.OffsetCursor(start)})
		if err != nil {
			return mcperr.FromError(err, classes...), nil
		}
		out := GetSheetNamesOutput{
			SheetNames:   make([]string, 0, len(page.Items)),
			SheetDetails: make([]SheetDetail, 0, len(page.Items)),
			SheetCount:   len(page.Items),
			SpreadsheetInfo: SpreadsheetInfo{
				SpreadsheetID: page.Workbook.SpreadsheetID,
				Title:         page.Workbook.Title,
				Locale:        page.Workbook.Locale,
				TimeZone:      page.Workbook.TimeZone,
			},
			Pagination: SheetNamesPagination{
				IndexPagination: indexPagination(page.PageResult, page.StartIndex),
				TotalSheets:     len(page.Workbook.Sheets),
			},
			Message: page.Summary,
		}
		var lines []string
		for _, ws := range page.Items {
			out.SheetNames = append(out.SheetNames, ws.Title)
			out.SheetDetails = append(out.SheetDetails, SheetDetail{Title: ws.Title, SheetID: ws.SheetID, Index: ws.Index, Hidden: ws.Hidden, Type: ws.Type})
			line := fmt.Sprintf("- %s (sheet_id=%d)", ws.Title, ws.SheetID)
			if ws.Hidden {
				line += " hidden"
			}
			lines = append(lines, line)
		}
		return structured(out, page.Summary, lines), nil
	}
}

func listTablesHandler(svc *listing.Service) mcp.TypedToolHandlerFunc[ListTablesInput] {
	return func(ctx context.Context, req mcp.CallToolRequest, in ListTablesInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		limit := intOr(in.MaxTables, config.DefaultTablesPageSize)
		start := intOr(in.StartIndex, 0)
		page, err := svc.ListTables(ctx, listing.TablesRequest{
			SpreadsheetID: strings.TrimSpace(in.SpreadsheetID),
			Sheets:        in.Sheets,
			MinRows:       in.MinRows,
			MinCols:       in.MinColumns,
			Page:          pagination.PageRequest{Limit: limit, Cursor: pagination.OffsetCursor(start)},
		})
		if err != nil {
			return mcperr.FromError(err, classes...), nil
		}
		total := 0
		if page.TotalEstimated != nil {
			total = *page.TotalEstimated
		}
		out := ListTablesOutput{
			SpreadsheetID: strings.TrimSpace(in.SpreadsheetID),
			Tables:        make([]TableInfo, 0, len(page.Items)),
			TotalTables:   total,
			TotalSheets:   page.TotalSheets,
			SheetScans:    make([]SheetScanInfo, 0, len(page.Scans)),
			Pagination: TablesPagination{
				IndexPagination: indexPagination(page.PageResult, page.StartIndex),
				TotalTables:     total,
			},
			Message: page.Summary,
		}
		var lines []string
		for _, t := range page.Items {
			out.Tables = append(out.Tables, TableInfo{
				SheetID:    t.SheetID,
				SheetTitle: t.SheetTitle,
				Range:      t.Range,
				A1Range:    t.A1Range,
				Title:      t.Title,
				HeaderRow:  t.HeaderRow,
				Headers:    t.Headers,
				Rows:       t.Rows,
				Cols:       t.Cols,
				Confidence: t.Confidence,
			})
			lines = append(lines, fmt.Sprintf("- %s %q rows=%d cols=%d conf=%.2f", t.A1Range, t.Title, t.Rows, t.Cols, t.Confidence))
		}
		for _, sc := range page.Scans {
			info := SheetScanInfo{SheetID: sc.SheetID, Title: sc.Title, Rows: sc.Rows, Cols: sc.Cols, Tables: sc.Tables, Truncated: sc.Truncated}
			if sc.Err != nil {
				info.Error = string(mcperr.Classify(sc.Err, classes...)) + ": " + sc.Err.Error()
				lines = append(lines, fmt.Sprintf("! skipped %q: %s", sc.Title, info.Error))
			}
			out.SheetScans = append(out.SheetScans, info)
		}
		return structured(out, page.Summary, lines), nil
	}
}

// structured attaches a concise text rendering for clients ignoring structured output.
func structured(out any, summary string, lines []string) *mcp.CallToolResult {
	res := mcp.NewToolResultStructured(out, summary)
	text := summary
	if len(lines) > 0 {
		text += "\n" + strings.Join(lines, "\n")
	}
	res.Content = []mcp.Content{mcp.NewTextContent(text)}
	return res
}

func tokenPagination[T any](r pagination.PageResult[T]) TokenPagination {
	return TokenPagination{HasMore: r.HasMore, NextPageToken: r.NextCursor.Token(), TotalEstimated: r.TotalEstimated}
}

func indexPagination[T any](r pagination.PageResult[T], start int) IndexPagination {
	p := IndexPagination{
		HasMore:       r.HasMore,
		ReturnedCount: len(r.Items),
		StartIndex:    start,
		EndIndex:      start + len(r.Items),
	}
	if r.HasMore {
		next := r.NextCursor.Offset()
		p.NextStartIndex = &next
	}
	return p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// parseRFC3339 expects input already checked by the rfc3339 validator.
func parseRFC3339(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

const displayLayout = "2006-01-02 15:04:05"

func toSheetFiles(es []listing.Entity) []SheetFile {
	out := make([]SheetFile, 0, len(es))
	for _, e := range es {
		f := SheetFile{
			ID:             e.ID,
			Name:           e.Name,
			MimeType:       e.MimeType,
			Size:           e.Size,
			SizeFormatted:  humanize.Bytes(uint64(max(e.Size, 0))),
			Shared:         e.Shared,
			Starred:        e.Starred,
			Trashed:        e.Trashed,
			Owners:         e.Owners,
			Parents:        e.Parents,
			WebViewLink:    e.WebViewLink,
			WebContentLink: e.WebContentLink,
		}
		if !e.CreatedTime.IsZero() {
			f.CreatedTime = e.CreatedTime.UTC().Format(time.RFC3339)
			f.CreatedDate = e.CreatedTime.UTC().Format(displayLayout)
		}
		if !e.ModifiedTime.IsZero() {
			f.ModifiedTime = e.ModifiedTime.UTC().Format(time.RFC3339)
			f.ModifiedDate = e.ModifiedTime.UTC().Format(displayLayout)
		}
		out = append(out, f)
	}
	return out
}

func fileLines(fs []SheetFile) []string {
	lines := make([]string, 0, len(fs))
	for _, f := range fs {
		line := fmt.Sprintf("- %s (id=%s, %s", f.Name, f.ID, f.SizeFormatted)
		if f.ModifiedDate != "" {
			line += ", modified " + f.ModifiedDate
		}
		lines = append(lines, line+")")
	}
	return lines
}
