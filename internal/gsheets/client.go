package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/grid"
	"github.com/vinodismyname/mcpsheets/internal/listing"
	"github.com/vinodismyname/mcpsheets/pkg/pagination"
)

const fileFields = "nextPageToken, files(id, name, mimeType, createdTime, modifiedTime, size, owners(displayName), shared, starred, trashed, parents, webViewLink, webContentLink)"

const sheetFields = "spreadsheetId,properties(title,locale,timeZone),sheets(properties(sheetId,title,index,hidden,sheetType))"

// Options configures a Client.
type Options struct {
	RetryAttempts uint
	RetryDelay    time.Duration
	// MaxGridCells clips fetched worksheets; 0 disables clipping.
	MaxGridCells int
}

// Client is the Google Drive + Sheets backend for listing.Service.
type Client struct {
	drive    *drive.Service
	sheets   *sheets.Service
	attempts uint
	delay    time.Duration
	maxCells int
}

// New authenticates with the configured credential files and builds a Client.
func New(ctx context.Context, cfg config.GoogleConfig, maxGridCells int) (*Client, error) {
	ts, err := TokenSource(ctx, cfg.CredentialsPath, cfg.TokenPath)
	if err != nil {
		return nil, err
	}
	return NewWithClientOptions(ctx, Options{
		RetryAttempts: uint(cfg.RetryAttempts),
		RetryDelay:    cfg.RetryDelay,
		MaxGridCells:  maxGridCells,
	}, option.WithTokenSource(ts))
}

// NewWithClientOptions builds a Client from raw Google API client options.
func NewWithClientOptions(ctx context.Context, opts Options, clientOpts ...option.ClientOption) (*Client, error) {
	d, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gsheets: drive service: %w", err)
	}
	s, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gsheets: sheets service: %w", err)
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = config.DefaultRetryAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = config.DefaultRetryDelay
	}
	return &Client{drive: d, sheets: s, attempts: opts.RetryAttempts, delay: opts.RetryDelay, maxCells: opts.MaxGridCells}, nil
}

// ListEntities runs one Drive files.list call.
func (c *Client) ListEntities(ctx context.Context, q listing.Query, limit int, token string) (pagination.TokenPage[listing.Entity], error) {
	call := c.drive.Files.List().
		Context(ctx).
		Q(listing.BuildDriveQuery(q)).
		PageSize(int64(limit)).
		Fields(googleapi.Field(fileFields))
	if q.OrderBy != "" {
		call = call.OrderBy(q.OrderBy)
	}
	if token != "" {
		call = call.PageToken(token)
	}

	var res *drive.FileList
	err := c.do(ctx, "files.list", func() error {
		var err error
		res, err = call.Do()
		return err
	})
	if err != nil {
		return pagination.TokenPage[listing.Entity]{}, mapError(err, token != "")
	}

	items := make([]listing.Entity, 0, len(res.Files))
	for _, f := range res.Files {
		items = append(items, toEntity(f))
	}
	return pagination.TokenPage[listing.Entity]{Items: items, NextToken: res.NextPageToken, Signaled: true}, nil
}

// Worksheets reads spreadsheet properties and the ordered worksheet list.
func (c *Client) Worksheets(ctx context.Context, spreadsheetID string) (listing.Workbook, error) {
	call := c.sheets.Spreadsheets.Get(spreadsheetID).Context(ctx).Fields(googleapi.Field(sheetFields))
	var ss *sheets.Spreadsheet
	err := c.do(ctx, "spreadsheets.get", func() error {
		var err error
		ss, err = call.Do()
		return err
	})
	if err != nil {
		return listing.Workbook{}, mapError(err, false)
	}

	wb := listing.Workbook{SpreadsheetID: spreadsheetID}
	if ss.Properties != nil {
		wb.Title, wb.Locale, wb.TimeZone = ss.Properties.Title, ss.Properties.Locale, ss.Properties.TimeZone
	}
	for _, sh := range ss.Sheets {
		if sh == nil || sh.Properties == nil {
			continue
		}
		p := sh.Properties
		wb.Sheets = append(wb.Sheets, listing.Worksheet{
			SheetID: p.SheetId,
			Title:   p.Title,
			Index:   int(p.Index),
			Hidden:  p.Hidden,
			Type:    p.SheetType,
		})
	}
	sort.SliceStable(wb.Sheets, func(i, j int) bool { return wb.Sheets[i].Index < wb.Sheets[j].Index })
	return wb, nil
}

// FetchGrid reads every value of one worksheet, unformatted. Non-grid sheets
// (charts) read as empty.
func (c *Client) FetchGrid(ctx context.Context, spreadsheetID string, ws listing.Worksheet) (*grid.Snapshot, error) {
	if ws.Type != "" && ws.Type != "GRID" {
		return grid.New(ws.SheetID, ws.Title, nil), nil
	}
	call := c.sheets.Spreadsheets.Values.Get(spreadsheetID, grid.QuoteSheet(ws.Title)).
		Context(ctx).
		MajorDimension("ROWS").
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING")
	var vr *sheets.ValueRange
	err := c.do(ctx, "values.get", func() error {
		var err error
		vr, err = call.Do()
		return err
	})
	if err != nil {
		return nil, mapError(err, false)
	}
	return grid.FromValues(ws.SheetID, ws.Title, vr.Values, c.maxCells), nil
}

func (c *Client) do(ctx context.Context, op string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			zerolog.Ctx(ctx).Warn().Str("call", op).Uint("attempt", n+1).Err(err).Msg("retrying google api call")
		}),
	)
}

// retryable reports rate limiting and server-side failures.
func retryable(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500 {
		return true
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}

// mapError classifies googleapi failures onto listing and pagination
// sentinels, keeping the original error in the chain.
func mapError(err error, withToken bool) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusNotFound:
			return fmt.Errorf("gsheets: %w: %w", listing.ErrNotFound, err)
		case gerr.Code == http.StatusUnauthorized, gerr.Code == http.StatusForbidden && !retryable(err):
			return fmt.Errorf("gsheets: %w: %w", listing.ErrPermissionDenied, err)
		case gerr.Code == http.StatusBadRequest && withToken:
			return fmt.Errorf("gsheets: %w: %w", pagination.ErrInvalidCursor, err)
		}
	}
	return fmt.Errorf("gsheets: %w", err)
}

func toEntity(f *drive.File) listing.Entity {
	e := listing.Entity{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		CreatedTime:    parseTime(f.CreatedTime),
		ModifiedTime:   parseTime(f.ModifiedTime),
		Size:           f.Size,
		Shared:         f.Shared,
		Starred:        f.Starred,
		Trashed:        f.Trashed,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		Parents:        f.Parents,
	}
	for _, o := range f.Owners {
		if o != nil {
			e.Owners = append(e.Owners, o.DisplayName)
		}
	}
	return e
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
