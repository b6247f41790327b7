package workbooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/mcpsheets/internal/listing"
	"github.com/vinodismyname/mcpsheets/internal/security"
	"github.com/vinodismyname/mcpsheets/pkg/pagination"
)

func newTestSource(t *testing.T) (*Source, string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	writeWorkbook(t, filepath.Join(root, "Budget 2024.xlsx"),
		sheet{"Summary", [][]any{{"Total", "Amount"}, {"Q1", 10}, {"Q2", 12}}},
		sheet{"Detail", [][]any{{"Item", "Cost"}, {"Desk", 200}, {}, {"Name", "Role"}, {"Ada", "Eng"}}},
		sheet{"Empty", nil},
	)
	writeWorkbook(t, filepath.Join(root, "notes.xlsx"), sheet{"S", [][]any{{"x"}}})
	writeWorkbook(t, filepath.Join(root, "archive", "budget-old.xlsx"), sheet{"S", [][]any{{"y"}}})
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("x"), 0o644))

	sec, err := security.NewManager([]string{root}, nil)
	require.NoError(t, err)
	books := NewManager(Options{TTL: time.Minute, Validator: sec})
	t.Cleanup(func() { _ = books.Close(context.Background()) })
	return NewSource(sec, books, 0), root
}

func names(es []listing.Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Name)
	}
	return out
}

func TestListEntities_PathOrderPages(t *testing.T) {
	src, root := newTestSource(t)
	ctx := context.Background()

	p1, err := src.ListEntities(ctx, listing.Query{}, 2, "")
	require.NoError(t, err)
	require.Equal(t, []string{"Budget 2024.xlsx", "budget-old.xlsx"}, names(p1.Items))
	require.NotEmpty(t, p1.NextToken)
	require.True(t, p1.Signaled)
	require.Equal(t, 3, *p1.Total)

	first := p1.Items[0]
	require.Equal(t, filepath.Join(root, "Budget 2024.xlsx"), first.ID)
	require.Equal(t, mimeTypes[".xlsx"], first.MimeType)
	require.Positive(t, first.Size)
	require.Equal(t, []string{root}, first.Parents)

	p2, err := src.ListEntities(ctx, listing.Query{}, 2, p1.NextToken)
	require.NoError(t, err)
	require.Equal(t, []string{"notes.xlsx"}, names(p2.Items))
	require.Empty(t, p2.NextToken)
	require.Equal(t, 3, *p2.Total)
}

func TestListEntities_NameFilters(t *testing.T) {
	src, _ := newTestSource(t)
	ctx := context.Background()

	page, err := src.ListEntities(ctx, listing.Query{Text: "BUDGET"}, 10, "")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Budget 2024.xlsx", "budget-old.xlsx"}, names(page.Items))

	page, err = src.ListEntities(ctx, listing.Query{Text: "name = 'notes'"}, 10, "")
	require.NoError(t, err)
	require.Equal(t, []string{"notes.xlsx"}, names(page.Items))

	page, err = src.ListEntities(ctx, listing.Query{StarredOnly: true}, 10, "")
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Empty(t, page.NextToken)

	future := time.Now().Add(time.Hour)
	page, err = src.ListEntities(ctx, listing.Query{ModifiedAfter: &future}, 10, "")
	require.NoError(t, err)
	require.Empty(t, page.Items)

	_, err = src.ListEntities(ctx, listing.Query{Text: "'root' in parents"}, 10, "")
	require.ErrorIs(t, err, listing.ErrUnsupportedQuery)
}

func TestListEntities_OrderByNameDesc(t *testing.T) {
	src, _ := newTestSource(t)
	q := listing.Query{OrderBy: "name desc"}

	var got []string
	token := ""
	for {
		page, err := src.ListEntities(context.Background(), q, 1, token)
		require.NoError(t, err)
		got = append(got, names(page.Items)...)
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}
	require.Equal(t, []string{"notes.xlsx", "budget-old.xlsx", "Budget 2024.xlsx"}, got)
}

func TestListEntities_RejectsForeignTokens(t *testing.T) {
	src, _ := newTestSource(t)
	ctx := context.Background()

	page, err := src.ListEntities(ctx, listing.Query{}, 1, "")
	require.NoError(t, err)

	_, err = src.ListEntities(ctx, listing.Query{Text: "budget"}, 1, page.NextToken)
	require.ErrorIs(t, err, pagination.ErrInvalidCursor)

	_, err = src.ListEntities(ctx, listing.Query{}, 1, "%%%")
	require.ErrorIs(t, err, pagination.ErrInvalidCursor)
}

func TestWorksheetsAndFetchGrid(t *testing.T) {
	src, root := newTestSource(t)
	ctx := context.Background()

	wb, err := src.Worksheets(ctx, "Budget 2024.xlsx")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "Budget 2024.xlsx"), wb.SpreadsheetID)
	require.Equal(t, "Budget 2024", wb.Title)
	require.Len(t, wb.Sheets, 3)
	for i, want := range []string{"Summary", "Detail", "Empty"} {
		require.Equal(t, want, wb.Sheets[i].Title)
		require.Equal(t, i, wb.Sheets[i].Index)
		require.False(t, wb.Sheets[i].Hidden)
	}

	s, err := src.FetchGrid(ctx, wb.SpreadsheetID, wb.Sheets[1])
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	require.Equal(t, 5, s.Rows())
	require.Equal(t, 2, s.Cols())
	require.Equal(t, "Desk", s.Cell(1, 0).String())
	require.True(t, s.IsEmpty(2, 0))

	empty, err := src.FetchGrid(ctx, wb.SpreadsheetID, wb.Sheets[2])
	require.NoError(t, err)
	require.Zero(t, empty.Rows())
}

func TestWorksheets_AccessErrors(t *testing.T) {
	src, _ := newTestSource(t)
	ctx := context.Background()

	_, err := src.Worksheets(ctx, "missing.xlsx")
	require.ErrorIs(t, err, listing.ErrNotFound)

	_, err = src.Worksheets(ctx, "readme.txt")
	require.ErrorIs(t, err, listing.ErrPermissionDenied)

	outside := filepath.Join(t.TempDir(), "x.xlsx")
	writeWorkbook(t, outside, sheet{"S", [][]any{{"z"}}})
	_, err = src.Worksheets(ctx, outside)
	require.ErrorIs(t, err, listing.ErrPermissionDenied)
}

func TestListTablesOverLocalWorkbook(t *testing.T) {
	src, _ := newTestSource(t)
	svc := listing.NewService(src, 2)

	page, err := svc.ListTables(context.Background(), listing.TablesRequest{
		SpreadsheetID: "Budget 2024.xlsx",
		Page:          pagination.PageRequest{Limit: 10},
	})
	require.NoError(t, err)
	require.Equal(t, 3, page.TotalSheets)
	require.Len(t, page.Items, 3)
	require.Equal(t, "Total", page.Items[0].Title)
	require.Equal(t, "'Summary'!A1:B3", page.Items[0].A1Range)
	require.Equal(t, "Item", page.Items[1].Title)
	require.Equal(t, "Name", page.Items[2].Title)
	require.False(t, page.HasMore)
}
