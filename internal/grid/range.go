package grid

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// Range is an inclusive, 0-based bounding box.
type Range struct {
	StartRow int `json:"start_row"`
	StartCol int `json:"start_col"`
	EndRow   int `json:"end_row"`
	EndCol   int `json:"end_col"`
}

// Rows returns the number of rows spanned.
func (r Range) Rows() int { return r.EndRow - r.StartRow + 1 }

// Cols returns the number of columns spanned.
func (r Range) Cols() int { return r.EndCol - r.StartCol + 1 }

// Contains reports whether (row, col) lies inside the range.
func (r Range) Contains(row, col int) bool {
	return row >= r.StartRow && row <= r.EndRow && col >= r.StartCol && col <= r.EndCol
}

// Overlaps reports whether the two ranges share at least one cell.
func (r Range) Overlaps(o Range) bool {
	return r.StartRow <= o.EndRow && o.StartRow <= r.EndRow && r.StartCol <= o.EndCol && o.StartCol <= r.EndCol
}

// A1 renders the range in A1 notation, qualified with the sheet title when
// one is given (e.g. 'Sales Q1'!A1:C10).
func (r Range) A1(sheetTitle string) (string, error) {
	tl, err := excelize.CoordinatesToCellName(r.StartCol+1, r.StartRow+1)
	if err != nil {
		return "", err
	}
	br, err := excelize.CoordinatesToCellName(r.EndCol+1, r.EndRow+1)
	if err != nil {
		return "", err
	}
	if sheetTitle == "" {
		return tl + ":" + br, nil
	}
	return QuoteSheet(sheetTitle) + "!" + tl + ":" + br, nil
}

// QuoteSheet wraps a sheet title in single quotes, doubling embedded quotes.
func QuoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
