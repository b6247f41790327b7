package pagination

import (
	"errors"
	"fmt"
)

// Page size bounds shared by every paginated operation.
const (
	MinLimit = 1
	MaxLimit = 1000
)

var (
	// ErrInvalidPageSize indicates a limit outside [MinLimit, MaxLimit].
	ErrInvalidPageSize = errors.New("pagination: invalid page size")
	// ErrInvalidCursor indicates a malformed, expired, or rejected cursor. It is
	// never a synonym for "no more results".
	ErrInvalidCursor = errors.New("pagination: invalid cursor")
)

// Mode identifies which continuation style a cursor carries.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeToken
	ModeOffset
)

func (m Mode) String() string {
	switch m {
	case ModeToken:
		return "token"
	case ModeOffset:
		return "offset"
	default:
		return "none"
	}
}

// Cursor is either absent (zero value), an opaque token, or a numeric offset.
type Cursor struct {
	mode   Mode
	token  string
	offset int
}

// TokenCursor wraps an opaque continuation token. An empty token is an absent cursor.
func TokenCursor(token string) Cursor {
	if token == "" {
		return Cursor{}
	}
	return Cursor{mode: ModeToken, token: token}
}

// OffsetCursor wraps a start offset.
func OffsetCursor(offset int) Cursor {
	return Cursor{mode: ModeOffset, offset: offset}
}

func (c Cursor) Mode() Mode { return c.mode }
func (c Cursor) Token() string { return c.token }
func (c Cursor) Offset() int { return c.offset }
func (c Cursor) IsZero() bool { return c.mode == ModeNone }

// PageRequest asks for at most Limit items starting at Cursor.
type PageRequest struct {
	Limit  int
	Cursor Cursor
}

// Validate checks the page size bounds.
func (r PageRequest) Validate() error {
	return ValidateLimit(r.Limit)
}

// ValidateLimit rejects page sizes outside [MinLimit, MaxLimit].
func ValidateLimit(limit int) error {
	if limit < MinLimit || limit > MaxLimit {
		return fmt.Errorf("%w: limit %d outside [%d, %d]", ErrInvalidPageSize, limit, MinLimit, MaxLimit)
	}
	return nil
}

// PageResult is the uniform page shape for both pagination modes.
// NextCursor is non-zero iff HasMore, and uses the same mode as the request.
// TotalEstimated is nil when the backing source does not report a total.
type PageResult[T any] struct {
	Items          []T
	HasMore        bool
	NextCursor     Cursor
	TotalEstimated *int
}
