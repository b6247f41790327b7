package tables

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpsheets/internal/grid"
)

func snap(rows ...[]any) *grid.Snapshot {
	return grid.FromValues(11, "Sheet1", rows, 0)
}

func TestDetect_TwoStackedTables(t *testing.T) {
	s := snap(
		[]any{"Item", "Qty"},
		[]any{"Pen", "10"},
		[]any{},
		[]any{"Name", "Age"},
		[]any{"Al", "30"},
	)
	got, err := Detect(s)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, grid.Range{StartRow: 0, StartCol: 0, EndRow: 1, EndCol: 1}, got[0].Range)
	require.Equal(t, "Item", got[0].Title)
	require.Equal(t, 0, got[0].HeaderRow)
	require.Equal(t, []string{"Item", "Qty"}, got[0].Headers)
	require.Equal(t, "'Sheet1'!A1:B2", got[0].A1Range)
	require.Equal(t, int64(11), got[0].SheetID)

	require.Equal(t, grid.Range{StartRow: 3, StartCol: 0, EndRow: 4, EndCol: 1}, got[1].Range)
	require.Equal(t, "Name", got[1].Title)
	require.Equal(t, 3, got[1].HeaderRow)
}

func TestDetect_BlankGrid(t *testing.T) {
	got, err := Detect(snap([]any{"", nil}, []any{}, []any{" "}))
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = Detect(grid.New(1, "Empty", nil))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDetect_SingleContentRowSpansGrid(t *testing.T) {
	got, err := Detect(snap([]any{"a", "b", "c"}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, grid.Range{StartRow: 0, StartCol: 0, EndRow: 0, EndCol: 2}, got[0].Range)
}

func TestDetect_NoSeparatorsYieldsBoundingBox(t *testing.T) {
	got, err := Detect(snap(
		[]any{nil, "h1", "h2"},
		[]any{nil, 1.0, nil},
		[]any{nil, nil, 2.0},
	))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, grid.Range{StartRow: 0, StartCol: 1, EndRow: 2, EndCol: 2}, got[0].Range)
	require.Equal(t, "h1", got[0].Title)
}

func TestDetect_SingleCellIsland(t *testing.T) {
	got, err := Detect(snap(
		[]any{nil, nil, nil},
		[]any{nil, "x", nil},
	))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, grid.Range{StartRow: 1, StartCol: 1, EndRow: 1, EndCol: 1}, got[0].Range)
	require.Equal(t, 1, got[0].Rows)
	require.Equal(t, 1, got[0].Cols)
}

func TestDetect_SideBySideTablesTrimIndependently(t *testing.T) {
	// Left table spans rows 0-1, right table spans rows 0-2 in the same band.
	got, err := Detect(snap(
		[]any{"L1", "L2", nil, "R1"},
		[]any{"a", "b", nil, "x"},
		[]any{nil, nil, nil, "y"},
	))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, grid.Range{StartRow: 0, StartCol: 0, EndRow: 1, EndCol: 1}, got[0].Range)
	require.Equal(t, grid.Range{StartRow: 0, StartCol: 3, EndRow: 2, EndCol: 3}, got[1].Range)
	require.Equal(t, "R1", got[1].Title)
}

func TestDetect_InteriorBlankRowWithinRunIsKept(t *testing.T) {
	// Row 1 is blank for column A only; row 1 is still a content row (col C),
	// so A0..A2 stays one run and its interior blank is retained.
	got, err := Detect(snap(
		[]any{"A", nil, "C"},
		[]any{nil, nil, "c"},
		[]any{"a", nil, nil},
	))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, grid.Range{StartRow: 0, StartCol: 0, EndRow: 2, EndCol: 0}, got[0].Range)
	require.Equal(t, grid.Range{StartRow: 0, StartCol: 2, EndRow: 1, EndCol: 2}, got[1].Range)
}

func TestDetect_TitleSkipsBlankLeadingHeaderCell(t *testing.T) {
	got, err := Detect(snap(
		[]any{nil, "Revenue"},
		[]any{"2024", 10.0},
	))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Revenue", got[0].Title)
	require.Equal(t, []string{"", "Revenue"}, got[0].Headers)
}

func TestDetect_RaggedSnapshotFails(t *testing.T) {
	s := grid.New(1, "Bad", [][]grid.Cell{{grid.String("a"), grid.String("b")}, {grid.String("c")}})
	_, err := Detect(s)
	require.Error(t, err)
	require.True(t, errors.Is(err, grid.ErrInvalidGridShape))
}

func TestDetect_Confidence(t *testing.T) {
	got, err := Detect(snap(
		[]any{"Name", "Value"},
		[]any{"a", 1.0},
		[]any{},
		[]any{1.0, 1.0},
		[]any{2.0, 3.0},
	))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Greater(t, got[0].Confidence, got[1].Confidence)
	for _, tb := range got {
		require.GreaterOrEqual(t, tb.Confidence, 0.0)
		require.LessOrEqual(t, tb.Confidence, 1.0)
	}
}

func TestFilter_MinRowsAndCols(t *testing.T) {
	ts := []Table{{Rows: 1, Cols: 1}, {Rows: 3, Cols: 1}, {Rows: 3, Cols: 2}}
	require.Len(t, Filter(ts, 1, 1), 3)
	require.Len(t, Filter(ts, 2, 1), 2)
	require.Len(t, Filter(ts, 2, 2), 1)
}

func randomSnapshot(r *rand.Rand) *grid.Snapshot {
	rows := r.Intn(12)
	cols := r.Intn(12)
	values := make([][]any, rows)
	for i := range values {
		values[i] = make([]any, cols)
		for j := range values[i] {
			if r.Float64() < 0.35 {
				values[i][j] = "v"
			}
		}
	}
	return grid.FromValues(1, "Rand", values, 0)
}

func TestDetect_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 500; iter++ {
		s := randomSnapshot(r)
		got, err := Detect(s)
		require.NoError(t, err)

		// non-overlap
		for i := range got {
			for j := i + 1; j < len(got); j++ {
				require.False(t, got[i].Range.Overlaps(got[j].Range), "iter %d: %v overlaps %v", iter, got[i].Range, got[j].Range)
			}
		}

		// every non-empty cell is covered exactly once
		for row := 0; row < s.Rows(); row++ {
			for col := 0; col < s.Cols(); col++ {
				if s.IsEmpty(row, col) {
					continue
				}
				hits := 0
				for _, tb := range got {
					if tb.Range.Contains(row, col) {
						hits++
					}
				}
				require.Equal(t, 1, hits, "iter %d: cell (%d,%d)", iter, row, col)
			}
		}

		// edges hold content
		for _, tb := range got {
			rg := tb.Range
			require.True(t, rowHasContent(s, rg.StartRow, rg), "iter %d top edge blank", iter)
			require.True(t, rowHasContent(s, rg.EndRow, rg), "iter %d bottom edge blank", iter)
			require.True(t, colHasContent(s, rg.StartCol, rg), "iter %d left edge blank", iter)
			require.True(t, colHasContent(s, rg.EndCol, rg), "iter %d right edge blank", iter)
		}

		// ordering and idempotence
		for i := 1; i < len(got); i++ {
			a, b := got[i-1].Range, got[i].Range
			require.True(t, a.StartRow < b.StartRow || (a.StartRow == b.StartRow && a.StartCol < b.StartCol))
		}
		again, err := Detect(s)
		require.NoError(t, err)
		require.Equal(t, got, again)
	}
}

func rowHasContent(s *grid.Snapshot, row int, rg grid.Range) bool {
	for c := rg.StartCol; c <= rg.EndCol; c++ {
		if !s.IsEmpty(row, c) {
			return true
		}
	}
	return false
}

func colHasContent(s *grid.Snapshot, col int, rg grid.Range) bool {
	for r := rg.StartRow; r <= rg.EndRow; r++ {
		if !s.IsEmpty(r, col) {
			return true
		}
	}
	return false
}
