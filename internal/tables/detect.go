package tables

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/vinodismyname/mcpsheets/internal/grid"
)

// Table describes a detected rectangular region of content within one worksheet.
// HeaderRow is the grid row index of the first row of the range.
type Table struct {
	SheetID    int64      `json:"sheet_id"`
	SheetTitle string     `json:"sheet_title"`
	Range      grid.Range `json:"range"`
	A1Range    string     `json:"a1_range,omitempty"`
	Title      string     `json:"title"`
	HeaderRow  int        `json:"header_row"`
	Headers    []string   `json:"headers,omitempty"`
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	Confidence float64    `json:"confidence"`
}

type span struct{ lo, hi int }

// Detect segments a snapshot into non-overlapping tables.
//
// Content rows are grouped into maximal bands separated by blank rows; inside
// each band, content columns are grouped into maximal runs separated by blank
// columns. Every (band, run) pair is trimmed to its content bounding box. The
// result is ordered by (StartRow, StartCol) and is deterministic for a given
// snapshot. Ragged snapshots fail with grid.ErrInvalidGridShape.
func Detect(s *grid.Snapshot) ([]Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	nRows, nCols := s.Rows(), s.Cols()

	rowHas := make([]bool, nRows)
	for r := 0; r < nRows; r++ {
		for c := 0; c < nCols; c++ {
			if !s.IsEmpty(r, c) {
				rowHas[r] = true
				break
			}
		}
	}

	cands := make([]grid.Range, 0, 8)
	colHas := make([]bool, nCols)
	for _, band := range runs(rowHas) {
		for c := 0; c < nCols; c++ {
			colHas[c] = false
			for r := band.lo; r <= band.hi; r++ {
				if !s.IsEmpty(r, c) {
					colHas[c] = true
					break
				}
			}
		}
		for _, cr := range runs(colHas) {
			rg, ok := trim(s, grid.Range{StartRow: band.lo, StartCol: cr.lo, EndRow: band.hi, EndCol: cr.hi})
			if ok {
				cands = append(cands, rg)
			}
		}
	}

	out := make([]Table, 0, len(cands))
	for i, rg := range cands {
		out = append(out, build(s, rg, i+1))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Range.StartRow != out[j].Range.StartRow {
			return out[i].Range.StartRow < out[j].Range.StartRow
		}
		return out[i].Range.StartCol < out[j].Range.StartCol
	})
	return out, nil
}

// runs returns maximal spans of consecutive true flags.
func runs(flags []bool) []span {
	var out []span
	start := -1
	for i, f := range flags {
		switch {
		case f && start < 0:
			start = i
		case !f && start >= 0:
			out = append(out, span{lo: start, hi: i - 1})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, span{lo: start, hi: len(flags) - 1})
	}
	return out
}

// trim shrinks rg until its edge rows and columns all hold content.
func trim(s *grid.Snapshot, rg grid.Range) (grid.Range, bool) {
	rowBlank := func(r int) bool {
		for c := rg.StartCol; c <= rg.EndCol; c++ {
			if !s.IsEmpty(r, c) {
				return false
			}
		}
		return true
	}
	colBlank := func(c int) bool {
		for r := rg.StartRow; r <= rg.EndRow; r++ {
			if !s.IsEmpty(r, c) {
				return false
			}
		}
		return true
	}

	for rg.StartRow <= rg.EndRow && rowBlank(rg.StartRow) {
		rg.StartRow++
	}
	for rg.EndRow >= rg.StartRow && rowBlank(rg.EndRow) {
		rg.EndRow--
	}
	if rg.StartRow > rg.EndRow {
		return rg, false
	}
	for rg.StartCol <= rg.EndCol && colBlank(rg.StartCol) {
		rg.StartCol++
	}
	for rg.EndCol >= rg.StartCol && colBlank(rg.EndCol) {
		rg.EndCol--
	}
	return rg, rg.StartCol <= rg.EndCol
}

func build(s *grid.Snapshot, rg grid.Range, n int) Table {
	header := make([]string, 0, rg.Cols())
	title := ""
	for c := rg.StartCol; c <= rg.EndCol; c++ {
		v := s.Cell(rg.StartRow, c).String()
		if title == "" && strings.TrimSpace(v) != "" {
			title = strings.TrimSpace(v)
		}
		header = append(header, v)
	}
	if title == "" {
		title = fmt.Sprintf("Table %d", n)
	}
	a1, err := rg.A1(s.Title)
	if err != nil {
		a1 = ""
	}
	return Table{
		SheetID:    s.SheetID,
		SheetTitle: s.Title,
		Range:      rg,
		A1Range:    a1,
		Title:      title,
		HeaderRow:  rg.StartRow,
		Headers:    trimTrailingEmpties(header),
		Rows:       rg.Rows(),
		Cols:       rg.Cols(),
		Confidence: round3(headerConfidence(header)),
	}
}

// headerConfidence favors unique, mostly text-like headers.
func headerConfidence(hdr []string) float64 {
	nonEmpty := 0
	numeric := 0
	uniq := map[string]struct{}{}
	for _, v := range hdr {
		s := strings.TrimSpace(v)
		if s == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
			numeric++
		}
		uniq[strings.ToLower(s)] = struct{}{}
	}
	if nonEmpty == 0 {
		return 0
	}
	uniqRatio := float64(len(uniq)) / float64(nonEmpty)
	numericRatio := float64(numeric) / float64(nonEmpty)
	return clamp01(0.5*uniqRatio + 0.5*(1.0-numericRatio))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func trimTrailingEmpties(xs []string) []string {
	i := len(xs)
	for i > 0 {
		if strings.TrimSpace(xs[i-1]) != "" {
			break
		}
		i--
	}
	return xs[:i]
}

// Filter drops tables smaller than the given minimums. Values below 1 are
// treated as 1.
func Filter(ts []Table, minRows, minCols int) []Table {
	if minRows <= 1 && minCols <= 1 {
		return ts
	}
	out := make([]Table, 0, len(ts))
	for _, t := range ts {
		if t.Rows >= minRows && t.Cols >= minCols {
			out = append(out, t)
		}
	}
	return out
}
