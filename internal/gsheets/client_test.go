package gsheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/vinodismyname/mcpsheets/internal/listing"
	"github.com/vinodismyname/mcpsheets/pkg/pagination"
)

func newTestClient(t *testing.T, h http.HandlerFunc, maxCells int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewWithClientOptions(context.Background(),
		Options{RetryAttempts: 3, RetryDelay: time.Millisecond, MaxGridCells: maxCells},
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func apiError(code int, reason string) map[string]any {
	return map[string]any{"error": map[string]any{
		"code":    code,
		"message": reason,
		"errors":  []map[string]any{{"reason": reason, "message": reason}},
	}}
}

func TestListEntities_Request(t *testing.T) {
	var params url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		params = r.URL.Query()
		require.True(t, strings.HasSuffix(r.URL.Path, "/files"), r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"nextPageToken": "tok-2",
			"files": []map[string]any{{
				"id":           "abc",
				"name":         "Budget 2024",
				"mimeType":     listing.SpreadsheetMimeType,
				"createdTime":  "2024-01-02T03:04:05.000Z",
				"modifiedTime": "2024-02-03T04:05:06.000Z",
				"size":         "2048",
				"owners":       []map[string]any{{"displayName": "Ada"}},
				"shared":       true,
				"webViewLink":  "https://docs.google.com/spreadsheets/d/abc",
			}},
		})
	}, 0)

	q := listing.Query{Text: "budget", OrderBy: "name"}
	page, err := c.ListEntities(context.Background(), q, 25, "tok-1")
	require.NoError(t, err)

	require.Equal(t, listing.BuildDriveQuery(q), params.Get("q"))
	require.Equal(t, "25", params.Get("pageSize"))
	require.Equal(t, "name", params.Get("orderBy"))
	require.Equal(t, "tok-1", params.Get("pageToken"))
	require.Contains(t, params.Get("fields"), "nextPageToken")

	require.True(t, page.Signaled)
	require.Equal(t, "tok-2", page.NextToken)
	require.Len(t, page.Items, 1)
	e := page.Items[0]
	require.Equal(t, "abc", e.ID)
	require.Equal(t, "Budget 2024", e.Name)
	require.EqualValues(t, 2048, e.Size)
	require.True(t, e.Shared)
	require.Equal(t, []string{"Ada"}, e.Owners)
	require.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), e.ModifiedTime.UTC())
}

func TestListEntities_OmitsEmptyOptionalParams(t *testing.T) {
	var params url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		params = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{"files": []any{}})
	}, 0)

	page, err := c.ListEntities(context.Background(), listing.Query{}, 10, "")
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Empty(t, page.NextToken)
	require.NotContains(t, params, "pageToken")
	require.NotContains(t, params, "orderBy")
}

func TestListEntities_RejectedToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, apiError(http.StatusBadRequest, "invalid"))
	}, 0)

	_, err := c.ListEntities(context.Background(), listing.Query{}, 10, "stale")
	require.ErrorIs(t, err, pagination.ErrInvalidCursor)

	var gerr *googleapi.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, http.StatusBadRequest, gerr.Code)
}

func TestListEntities_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, apiError(http.StatusServiceUnavailable, "backendError"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": []map[string]any{{"id": "x", "name": "X"}}})
	}, 0)

	page, err := c.ListEntities(context.Background(), listing.Query{}, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.EqualValues(t, 3, calls.Load())
}

func TestListEntities_DoesNotRetryPermissionErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusForbidden, apiError(http.StatusForbidden, "insufficientPermissions"))
	}, 0)

	_, err := c.ListEntities(context.Background(), listing.Query{}, 10, "")
	require.ErrorIs(t, err, listing.ErrPermissionDenied)
	require.EqualValues(t, 1, calls.Load())
}

func TestWorksheets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/v4/spreadsheets/sheet-1"), r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"spreadsheetId": "sheet-1",
			"properties":    map[string]any{"title": "Ops", "locale": "en_US", "timeZone": "Europe/Paris"},
			"sheets": []map[string]any{
				{"properties": map[string]any{"sheetId": 7, "title": "Second", "index": 1, "sheetType": "GRID"}},
				{"properties": map[string]any{"sheetId": 0, "title": "First", "index": 0, "sheetType": "GRID"}},
				{"properties": map[string]any{"sheetId": 9, "title": "Chart", "index": 2, "sheetType": "OBJECT", "hidden": true}},
			},
		})
	}, 0)

	wb, err := c.Worksheets(context.Background(), "sheet-1")
	require.NoError(t, err)
	require.Equal(t, "Ops", wb.Title)
	require.Equal(t, "Europe/Paris", wb.TimeZone)
	require.Len(t, wb.Sheets, 3)
	require.Equal(t, "First", wb.Sheets[0].Title)
	require.Equal(t, "Second", wb.Sheets[1].Title)
	require.EqualValues(t, 7, wb.Sheets[1].SheetID)
	require.True(t, wb.Sheets[2].Hidden)
	require.Equal(t, "OBJECT", wb.Sheets[2].Type)
}

func TestWorksheets_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, apiError(http.StatusNotFound, "notFound"))
	}, 0)

	_, err := c.Worksheets(context.Background(), "missing")
	require.ErrorIs(t, err, listing.ErrNotFound)
}

func TestFetchGrid_PadsShortRows(t *testing.T) {
	var params url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/values/")
		params = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{
			"range":          "Data!A1:C3",
			"majorDimension": "ROWS",
			"values": [][]any{
				{"Name", "Qty", "Price"},
				{"Apple", 3},
				{},
			},
		})
	}, 0)

	s, err := c.FetchGrid(context.Background(), "sheet-1", listing.Worksheet{SheetID: 4, Title: "Data", Type: "GRID"})
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	require.Equal(t, 3, s.Rows())
	require.Equal(t, 3, s.Cols())
	require.EqualValues(t, 4, s.SheetID)
	require.Equal(t, "Apple", s.Cell(1, 0).String())
	require.True(t, s.IsEmpty(1, 2))
	require.True(t, s.IsEmpty(2, 0))
	require.Equal(t, "UNFORMATTED_VALUE", params["valueRenderOption"][0])
	require.Equal(t, "ROWS", params["majorDimension"][0])
}

func TestFetchGrid_Clips(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"values": [][]any{{"a", "b"}, {"c", "d"}, {"e", "f"}}})
	}, 4)

	s, err := c.FetchGrid(context.Background(), "sheet-1", listing.Worksheet{Title: "Data"})
	require.NoError(t, err)
	require.True(t, s.Truncated)
	require.Equal(t, 2, s.Rows())
}

func TestFetchGrid_SkipsNonGridSheets(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{})
	}, 0)

	s, err := c.FetchGrid(context.Background(), "sheet-1", listing.Worksheet{Title: "Chart", Type: "OBJECT"})
	require.NoError(t, err)
	require.Zero(t, s.Rows())
	require.Zero(t, calls.Load())
}

func TestRetryable(t *testing.T) {
	require.True(t, retryable(&googleapi.Error{Code: http.StatusTooManyRequests}))
	require.True(t, retryable(&googleapi.Error{Code: http.StatusBadGateway}))
	require.True(t, retryable(&googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}))
	require.False(t, retryable(&googleapi.Error{Code: http.StatusForbidden}))
	require.False(t, retryable(&googleapi.Error{Code: http.StatusNotFound}))
	require.False(t, retryable(errors.New("boom")))
}
