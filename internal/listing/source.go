package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vinodismyname/mcpsheets/internal/grid"
	"github.com/vinodismyname/mcpsheets/pkg/pagination"
)

var (
	// ErrNotFound indicates an unknown spreadsheet or worksheet.
	ErrNotFound = errors.New("listing: not found")
	// ErrPermissionDenied indicates the caller cannot access the spreadsheet.
	ErrPermissionDenied = errors.New("listing: permission denied")
)

// Entity describes one spreadsheet file visible to the backend.
type Entity struct {
	ID             string
	Name           string
	MimeType       string
	CreatedTime    time.Time
	ModifiedTime   time.Time
	Size           int64
	Shared         bool
	Starred        bool
	Trashed        bool
	WebViewLink    string
	WebContentLink string
	Owners         []string
	Parents        []string
}

// Worksheet is one tab of a spreadsheet, in spreadsheet order.
type Worksheet struct {
	SheetID int64
	Title   string
	Index   int
	Hidden  bool
	// Type is the backend sheet type ("GRID", "OBJECT"); empty means grid.
	Type string
}

// Workbook carries spreadsheet-level properties plus its ordered worksheets.
type Workbook struct {
	SpreadsheetID string
	Title         string
	Locale        string
	TimeZone      string
	Sheets        []Worksheet
}

// Query narrows an entity listing. The zero value lists every spreadsheet that
// is not in the trash.
type Query struct {
	Text           string
	OrderBy        string
	SharedWithMe   bool
	StarredOnly    bool
	IncludeTrashed bool
	CreatedAfter   *time.Time
	ModifiedAfter  *time.Time
}

// Source is the spreadsheet backend a Service pages over.
//
// ListEntities must return tokens that are only meaningful to the same
// backend; a token it cannot honor is reported as pagination.ErrInvalidCursor.
// FetchGrid returns a padded rectangular snapshot.
type Source interface {
	ListEntities(ctx context.Context, q Query, limit int, token string) (pagination.TokenPage[Entity], error)
	Worksheets(ctx context.Context, spreadsheetID string) (Workbook, error)
	FetchGrid(ctx context.Context, spreadsheetID string, ws Worksheet) (*grid.Snapshot, error)
}

// SheetError annotates a failure scoped to a single worksheet.
type SheetError struct {
	SheetID int64
	Title   string
	Err     error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q (id %d): %v", e.Title, e.SheetID, e.Err)
}

func (e *SheetError) Unwrap() error { return e.Err }
