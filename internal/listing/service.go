package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/grid"
	"github.com/vinodismyname/mcpsheets/internal/tables"
	"github.com/vinodismyname/mcpsheets/pkg/pagination"
)

// Service answers the listing and discovery tools over a Source. It keeps no
// state between pages: every cursor it hands out is either the backend's own
// token or a plain offset.
type Service struct {
	src       Source
	maxFanout int
}

// NewService binds a Service to src. maxFanout bounds concurrent worksheet
// fetches per ListTables call; values <= 0 use the configured default.
func NewService(src Source, maxFanout int) *Service {
	if maxFanout <= 0 {
		maxFanout = config.DefaultMaxFanout
	}
	return &Service{src: src, maxFanout: maxFanout}
}

// SheetsPage is one page of ListSheets.
type SheetsPage struct {
	pagination.PageResult[Entity]
	Summary string
}

// SearchPage is one page of SearchSpreadsheets.
type SearchPage struct {
	pagination.PageResult[Entity]
	Query      Query
	DriveQuery string
	Summary    string
}

// SheetNamesPage is one page of GetSheetNames.
type SheetNamesPage struct {
	pagination.PageResult[Worksheet]
	Workbook   Workbook
	StartIndex int
	Summary    string
}

// TablesRequest selects the worksheets and filters for ListTables.
type TablesRequest struct {
	SpreadsheetID string
	// Sheets restricts the scan to these worksheet titles; empty scans all.
	Sheets  []string
	MinRows int
	MinCols int
	Page    pagination.PageRequest
}

// SheetScan records what ListTables saw on one worksheet.
type SheetScan struct {
	SheetID   int64
	Title     string
	Rows      int
	Cols      int
	Truncated bool
	Tables    int
	// Err is a *SheetError when the worksheet could not be segmented.
	Err error
}

// TablesPage is one page of ListTables.
type TablesPage struct {
	pagination.PageResult[tables.Table]
	TotalSheets int
	Scans       []SheetScan
	StartIndex  int
	Summary     string
}

// ListSheets pages through every spreadsheet the backend can see.
func (s *Service) ListSheets(ctx context.Context, req pagination.PageRequest) (SheetsPage, error) {
	log := s.logger(ctx, "list_sheets")
	res, err := s.entities(Query{}).Page(ctx, req)
	if err != nil {
		log.Debug().Err(err).Msg("list failed")
		return SheetsPage{}, err
	}
	log.Debug().Int("returned", len(res.Items)).Bool("has_more", res.HasMore).Msg("listed spreadsheets")
	return SheetsPage{
		PageResult: res,
		Summary:    pageSummary("spreadsheet", len(res.Items), res.HasMore, "next_page_token"),
	}, nil
}

// SearchSpreadsheets pages through spreadsheets matching q. An empty q.Text
// matches every spreadsheet.
func (s *Service) SearchSpreadsheets(ctx context.Context, q Query, req pagination.PageRequest) (SearchPage, error) {
	log := s.logger(ctx, "search_spreadsheets")
	q.OrderBy = q.EffectiveOrderBy()
	res, err := s.entities(q).Page(ctx, req)
	if err != nil {
		log.Debug().Err(err).Str("query", q.Text).Msg("search failed")
		return SearchPage{}, err
	}
	log.Debug().Str("query", q.Text).Int("returned", len(res.Items)).Bool("has_more", res.HasMore).Msg("searched spreadsheets")
	return SearchPage{
		PageResult: res,
		Query:      q,
		DriveQuery: BuildDriveQuery(q),
		Summary:    pageSummary("matching spreadsheet", len(res.Items), res.HasMore, "next_page_token"),
	}, nil
}

func (s *Service) entities(q Query) *pagination.TokenPaginator[Entity] {
	return pagination.NewTokenPaginator(func(ctx context.Context, limit int, token string) (pagination.TokenPage[Entity], error) {
		return s.src.ListEntities(ctx, q, limit, token)
	})
}

// GetSheetNames pages through the worksheets of one spreadsheet in spreadsheet order.
func (s *Service) GetSheetNames(ctx context.Context, spreadsheetID string, req pagination.PageRequest) (SheetNamesPage, error) {
	log := s.logger(ctx, "get_sheet_names").With().Str("spreadsheet_id", spreadsheetID).Logger()
	if err := req.Validate(); err != nil {
		return SheetNamesPage{}, err
	}
	if req.Cursor.Mode() == pagination.ModeToken {
		return SheetNamesPage{}, fmt.Errorf("%w: expected start index", pagination.ErrInvalidCursor)
	}
	wb, err := s.src.Worksheets(ctx, spreadsheetID)
	if err != nil {
		log.Debug().Err(err).Msg("worksheets failed")
		return SheetNamesPage{}, err
	}
	res, err := pagination.NewIndexPaginator(wb.Sheets).Page(req)
	if err != nil {
		return SheetNamesPage{}, err
	}
	log.Debug().Int("total", len(wb.Sheets)).Int("returned", len(res.Items)).Msg("listed worksheets")
	return SheetNamesPage{
		PageResult: res,
		Workbook:   wb,
		StartIndex: startIndex(req.Cursor),
		Summary:    pageSummary("worksheet", len(res.Items), res.HasMore, "next_start_index"),
	}, nil
}

// ListTables detects tables on the selected worksheets and pages over the
// concatenated result. Worksheets are fetched concurrently but results keep
// worksheet order. A worksheet whose grid is not rectangular is reported in
// its SheetScan and skipped; any other backend error aborts the call.
func (s *Service) ListTables(ctx context.Context, req TablesRequest) (TablesPage, error) {
	log := s.logger(ctx, "list_tables").With().Str("spreadsheet_id", req.SpreadsheetID).Logger()
	if err := req.Page.Validate(); err != nil {
		return TablesPage{}, err
	}
	if req.Page.Cursor.Mode() == pagination.ModeToken {
		return TablesPage{}, fmt.Errorf("%w: expected start index", pagination.ErrInvalidCursor)
	}

	wb, err := s.src.Worksheets(ctx, req.SpreadsheetID)
	if err != nil {
		log.Debug().Err(err).Msg("worksheets failed")
		return TablesPage{}, err
	}
	sheets, err := selectSheets(wb.Sheets, req.Sheets)
	if err != nil {
		return TablesPage{}, err
	}

	scans := make([]SheetScan, len(sheets))
	found := make([][]tables.Table, len(sheets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxFanout)
	for i, ws := range sheets {
		g.Go(func() error {
			scans[i] = SheetScan{SheetID: ws.SheetID, Title: ws.Title}
			snap, err := s.src.FetchGrid(gctx, req.SpreadsheetID, ws)
			if err != nil {
				if errors.Is(err, grid.ErrInvalidGridShape) {
					scans[i].Err = &SheetError{SheetID: ws.SheetID, Title: ws.Title, Err: err}
					return nil
				}
				return &SheetError{SheetID: ws.SheetID, Title: ws.Title, Err: err}
			}
			scans[i].Rows, scans[i].Cols, scans[i].Truncated = snap.Rows(), snap.Cols(), snap.Truncated
			ts, err := tables.Detect(snap)
			if err != nil {
				scans[i].Err = &SheetError{SheetID: ws.SheetID, Title: ws.Title, Err: err}
				log.Warn().Err(err).Str("sheet", ws.Title).Msg("sheet skipped")
				return nil
			}
			found[i] = tables.Filter(ts, req.MinRows, req.MinCols)
			scans[i].Tables = len(found[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Debug().Err(err).Msg("fan-out failed")
		return TablesPage{}, err
	}

	var all []tables.Table
	for _, ts := range found {
		all = append(all, ts...)
	}
	res, err := pagination.NewIndexPaginator(all).Page(req.Page)
	if err != nil {
		return TablesPage{}, err
	}
	log.Debug().Int("sheets", len(sheets)).Int("tables", len(all)).Int("returned", len(res.Items)).Msg("listed tables")
	return TablesPage{
		PageResult:  res,
		TotalSheets: len(sheets),
		Scans:       scans,
		StartIndex:  startIndex(req.Page.Cursor),
		Summary:     pageSummary("table", len(res.Items), res.HasMore, "next_start_index"),
	}, nil
}

// selectSheets keeps workbook order and drops duplicate titles. Unknown titles
// fail with ErrNotFound.
func selectSheets(all []Worksheet, titles []string) ([]Worksheet, error) {
	if len(titles) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(titles))
	for _, t := range titles {
		want[t] = false
	}
	out := make([]Worksheet, 0, len(titles))
	for _, ws := range all {
		if seen, ok := want[ws.Title]; ok && !seen {
			want[ws.Title] = true
			out = append(out, ws)
		}
	}
	for _, t := range titles {
		if !want[t] {
			return nil, fmt.Errorf("listing: worksheet %q: %w", t, ErrNotFound)
		}
	}
	return out, nil
}

func startIndex(c pagination.Cursor) int {
	if c.Mode() == pagination.ModeOffset {
		return c.Offset()
	}
	return 0
}

func pageSummary(noun string, n int, hasMore bool, nextField string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Returned %d %s", n, noun)
	if n != 1 {
		b.WriteString("s")
	}
	if hasMore {
		fmt.Fprintf(&b, "; more available, pass %s to continue", nextField)
	} else {
		b.WriteString("; no more results")
	}
	return b.String()
}

func (s *Service) logger(ctx context.Context, op string) zerolog.Logger {
	return zerolog.Ctx(ctx).With().Str("op", op).Str("request_id", uuid.NewString()).Logger()
}
