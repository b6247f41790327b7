package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidGridShape indicates a snapshot whose rows do not all share one length.
var ErrInvalidGridShape = errors.New("grid: invalid grid shape")

// Snapshot is an immutable rectangular view of one worksheet's cell values.
// Row and column indices are 0-based.
type Snapshot struct {
	SheetID int64
	Title   string
	// Truncated is set when the collaborator clipped the grid to a cell budget.
	Truncated bool

	rows [][]Cell
	cols int
}

// New wraps rows as given without padding. Use Validate (or let the detector
// do it) to reject ragged input.
func New(sheetID int64, title string, rows [][]Cell) *Snapshot {
	cp := make([][]Cell, len(rows))
	for i, r := range rows {
		cp[i] = append([]Cell(nil), r...)
	}
	cols := 0
	if len(cp) > 0 {
		cols = len(cp[0])
	}
	return &Snapshot{SheetID: sheetID, Title: title, rows: cp, cols: cols}
}

// FromValues builds a padded snapshot from collaborator row data where short
// rows omit trailing empty cells. maxCells <= 0 disables clipping.
func FromValues(sheetID int64, title string, values [][]any, maxCells int) *Snapshot {
	width := 0
	for _, r := range values {
		if len(r) > width {
			width = len(r)
		}
	}
	keepRows, keepCols, truncated := clip(len(values), width, maxCells)

	rows := make([][]Cell, keepRows)
	for i := 0; i < keepRows; i++ {
		row := make([]Cell, keepCols)
		for c := 0; c < keepCols && c < len(values[i]); c++ {
			row[c] = FromValue(values[i][c])
		}
		rows[i] = row
	}
	return &Snapshot{SheetID: sheetID, Title: title, Truncated: truncated, rows: rows, cols: keepCols}
}

// FromStrings is FromValues for text-only sources such as excelize.GetRows.
func FromStrings(sheetID int64, title string, values [][]string, maxCells int) *Snapshot {
	anyRows := make([][]any, len(values))
	for i, r := range values {
		row := make([]any, len(r))
		for c, v := range r {
			row[c] = v
		}
		anyRows[i] = row
	}
	return FromValues(sheetID, title, anyRows, maxCells)
}

func clip(rows, cols, maxCells int) (int, int, bool) {
	if maxCells <= 0 || cols == 0 || rows*cols <= maxCells {
		return rows, cols, false
	}
	keepRows := maxCells / cols
	if keepRows == 0 {
		return 1, maxCells, true
	}
	return keepRows, cols, true
}

// Validate checks the rectangular invariant.
func (s *Snapshot) Validate() error {
	for i, r := range s.rows {
		if len(r) != s.cols {
			return fmt.Errorf("%w: sheet %q row %d has %d cells, want %d", ErrInvalidGridShape, s.Title, i, len(r), s.cols)
		}
	}
	return nil
}

// Rows returns the number of rows.
func (s *Snapshot) Rows() int { return len(s.rows) }

// Cols returns the number of columns.
func (s *Snapshot) Cols() int { return s.cols }

// Cell returns the cell at (row, col); out-of-range coordinates read as empty.
func (s *Snapshot) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.rows) || col < 0 || col >= len(s.rows[row]) {
		return Cell{}
	}
	return s.rows[row][col]
}

// IsEmpty is shorthand for Cell(row, col).IsEmpty().
func (s *Snapshot) IsEmpty(row, col int) bool {
	return s.Cell(row, col).IsEmpty()
}
