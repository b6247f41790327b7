package grid

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a cell value.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindBool
)

// Cell is a single scalar cell value. The zero value is an empty cell.
type Cell struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// Empty returns an empty cell.
func Empty() Cell { return Cell{} }

// String returns a text cell. Whitespace-only text is treated as empty.
func String(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{kind: KindString, str: s}
}

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{kind: KindNumber, num: f} }

// Bool returns a boolean cell.
func Bool(b bool) Cell { return Cell{kind: KindBool, b: b} }

// FromValue converts a loosely typed collaborator value (as decoded from JSON
// by the Sheets API, or produced by tests) into a Cell.
func FromValue(v any) Cell {
	switch x := v.(type) {
	case nil:
		return Cell{}
	case Cell:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return Number(f)
		}
		return String(x.String())
	default:
		return String(fmt.Sprint(x))
	}
}

// Kind reports the value kind.
func (c Cell) Kind() Kind { return c.kind }

// IsEmpty reports whether the cell carries no value.
func (c Cell) IsEmpty() bool { return c.kind == KindEmpty }

// String renders the cell as display text.
func (c Cell) String() string {
	switch c.kind {
	case KindString:
		return c.str
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindBool:
		if c.b {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}
