package workbooks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/mcpsheets/internal/grid"
	"github.com/vinodismyname/mcpsheets/internal/listing"
	"github.com/vinodismyname/mcpsheets/internal/security"
	"github.com/vinodismyname/mcpsheets/pkg/pagination"
)

const tokenScope = "files"

var mimeTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xlsm": "application/vnd.ms-excel.sheet.macroEnabled.12",
	".xltx": "application/vnd.openxmlformats-officedocument.spreadsheetml.template",
	".xltm": "application/vnd.ms-excel.template.macroEnabled.12",
}

// Source serves spreadsheets from the local allow-listed directories. The
// spreadsheet id of a local workbook is its canonical path.
type Source struct {
	sec      *security.Manager
	books    *Manager
	maxCells int
}

// NewSource binds the allow-list and handle cache into a listing.Source.
// maxGridCells <= 0 disables clipping.
func NewSource(sec *security.Manager, books *Manager, maxGridCells int) *Source {
	return &Source{sec: sec, books: books, maxCells: maxGridCells}
}

type keyedFile struct {
	key  string
	file security.File
}

// ListEntities walks the allow-list and pages with a keyset resume token bound
// to the query. Only name filters are supported; starred and shared filters
// match nothing locally.
func (s *Source) ListEntities(ctx context.Context, q listing.Query, limit int, token string) (pagination.TokenPage[listing.Entity], error) {
	var out pagination.TokenPage[listing.Entity]
	term, exact, err := listing.NameTerm(q.Text)
	if err != nil {
		return out, err
	}
	qh := pagination.HashQuery(listing.BuildDriveQuery(q) + "|" + q.OrderBy)

	after := ""
	if token != "" {
		rt, err := pagination.DecodeResumeToken(token)
		if err != nil {
			return out, err
		}
		if rt.Src != tokenScope || rt.Qh != qh {
			return out, fmt.Errorf("%w: token was issued for a different query", pagination.ErrInvalidCursor)
		}
		after = rt.K
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	var matches []keyedFile
	total := 0
	if !q.StarredOnly && !q.SharedWithMe {
		files, err := s.sec.Walk()
		if err != nil {
			return out, err
		}
		field, desc := parseOrder(q.OrderBy)
		for _, f := range files {
			if !matchFile(f, q, term, exact) {
				continue
			}
			matches = append(matches, keyedFile{key: sortKey(f, field), file: f})
		}
		sort.Slice(matches, func(i, j int) bool {
			if desc {
				return matches[i].key > matches[j].key
			}
			return matches[i].key < matches[j].key
		})
		total = len(matches)
		if after != "" {
			start := sort.Search(len(matches), func(i int) bool {
				if desc {
					return matches[i].key < after
				}
				return matches[i].key > after
			})
			matches = matches[start:]
		}
	}

	out.Total = &total
	more := len(matches) > limit
	if more {
		matches = matches[:limit]
	}
	out.Items = make([]listing.Entity, 0, len(matches))
	for _, m := range matches {
		out.Items = append(out.Items, toEntity(m.file))
	}
	if more {
		next, err := pagination.EncodeResumeToken(pagination.ResumeToken{Src: tokenScope, Qh: qh, K: matches[len(matches)-1].key})
		if err != nil {
			return out, err
		}
		out.NextToken = next
	}
	out.Signaled = true
	return out, nil
}

// Worksheets lists the tabs of a local workbook in workbook order.
func (s *Source) Worksheets(ctx context.Context, spreadsheetID string) (listing.Workbook, error) {
	wb := listing.Workbook{SpreadsheetID: spreadsheetID}
	err := s.read(ctx, spreadsheetID, func(path string, f *excelize.File) error {
		wb.SpreadsheetID = path
		wb.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		ids := make(map[string]int, len(f.GetSheetMap()))
		for id, name := range f.GetSheetMap() {
			ids[name] = id
		}
		for i, name := range f.GetSheetList() {
			visible, err := f.GetSheetVisible(name)
			if err != nil {
				return err
			}
			wb.Sheets = append(wb.Sheets, listing.Worksheet{
				SheetID: int64(ids[name]),
				Title:   name,
				Index:   i,
				Hidden:  !visible,
			})
		}
		return nil
	})
	return wb, err
}

// FetchGrid reads every row of one worksheet as displayed text.
func (s *Source) FetchGrid(ctx context.Context, spreadsheetID string, ws listing.Worksheet) (*grid.Snapshot, error) {
	var snap *grid.Snapshot
	err := s.read(ctx, spreadsheetID, func(_ string, f *excelize.File) error {
		rows, err := f.GetRows(ws.Title)
		if err != nil {
			return err
		}
		snap = grid.FromStrings(ws.SheetID, ws.Title, rows, s.maxCells)
		return nil
	})
	return snap, err
}

// read opens (or reuses) the workbook and runs fn under its read lock. A
// handle evicted between open and read is reopened once.
func (s *Source) read(ctx context.Context, spreadsheetID string, fn func(path string, f *excelize.File) error) error {
	for attempt := 0; ; attempt++ {
		id, err := s.books.Open(ctx, spreadsheetID)
		if err != nil {
			return mapError(err)
		}
		h, ok := s.books.Get(id)
		if !ok {
			if attempt == 0 {
				continue
			}
			return fmt.Errorf("workbooks: %s: %w", spreadsheetID, ErrHandleNotFound)
		}
		err = s.books.WithRead(id, func(f *excelize.File) error { return fn(h.Path, f) })
		if errors.Is(err, ErrHandleNotFound) && attempt == 0 {
			continue
		}
		return err
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, security.ErrNotFound):
		return fmt.Errorf("workbooks: %w: %w", listing.ErrNotFound, err)
	case errors.Is(err, security.ErrNotAllowed), errors.Is(err, security.ErrUnsupportedExtension):
		return fmt.Errorf("workbooks: %w: %w", listing.ErrPermissionDenied, err)
	}
	return err
}

func matchFile(f security.File, q listing.Query, term string, exact bool) bool {
	name := filepath.Base(f.Path)
	if term != "" {
		if exact {
			stem := strings.TrimSuffix(name, filepath.Ext(name))
			if name != term && stem != term {
				return false
			}
		} else if !strings.Contains(strings.ToLower(name), strings.ToLower(term)) {
			return false
		}
	}
	mod := f.Info.ModTime()
	if q.ModifiedAfter != nil && !mod.After(*q.ModifiedAfter) {
		return false
	}
	if q.CreatedAfter != nil && !mod.After(*q.CreatedAfter) {
		return false
	}
	return true
}

// parseOrder understands "name", "modifiedTime" and "createdTime" with an
// optional "desc"; any other ordering falls back to path order.
func parseOrder(orderBy string) (field string, desc bool) {
	first := strings.TrimSpace(strings.SplitN(orderBy, ",", 2)[0])
	parts := strings.Fields(first)
	if len(parts) == 0 {
		return "", false
	}
	desc = len(parts) > 1 && strings.EqualFold(parts[1], "desc")
	switch parts[0] {
	case "name", "name_natural":
		return "name", desc
	case "modifiedTime", "createdTime", "recency":
		return "time", desc
	}
	return "", desc
}

// sortKey orders lexicographically and ends with the path so keys are unique.
func sortKey(f security.File, field string) string {
	switch field {
	case "name":
		return strings.ToLower(filepath.Base(f.Path)) + "\x00" + f.Path
	case "time":
		return fmt.Sprintf("%020d", f.Info.ModTime().UnixNano()) + "\x00" + f.Path
	}
	return f.Path
}

func toEntity(f security.File) listing.Entity {
	mod := f.Info.ModTime().UTC()
	return listing.Entity{
		ID:           f.Path,
		Name:         filepath.Base(f.Path),
		MimeType:     mimeTypes[strings.ToLower(filepath.Ext(f.Path))],
		CreatedTime:  mod,
		ModifiedTime: mod,
		Size:         f.Info.Size(),
		WebViewLink:  (&url.URL{Scheme: "file", Path: filepath.ToSlash(f.Path)}).String(),
		Parents:      []string{filepath.Dir(f.Path)},
	}
}
