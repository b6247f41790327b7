package pagination

import "fmt"

// IndexPaginator pages over a fully materialized, ordered sequence.
type IndexPaginator[T any] struct {
	items []T
}

// NewIndexPaginator binds a paginator to items. The slice is not copied; callers
// must not mutate it while paging.
func NewIndexPaginator[T any](items []T) *IndexPaginator[T] {
	return &IndexPaginator[T]{items: items}
}

// Len returns the size of the underlying sequence.
func (p *IndexPaginator[T]) Len() int { return len(p.items) }

// Page returns items [offset, min(offset+limit, N)). An offset outside [0, N)
// yields an empty page with HasMore=false: a stale cursor after the source
// shrank is expected, not a caller bug.
func (p *IndexPaginator[T]) Page(req PageRequest) (PageResult[T], error) {
	var out PageResult[T]
	if err := req.Validate(); err != nil {
		return out, err
	}

	offset := 0
	switch req.Cursor.Mode() {
	case ModeNone:
	case ModeOffset:
		offset = req.Cursor.Offset()
	default:
		return out, fmt.Errorf("%w: expected offset cursor, got %s", ErrInvalidCursor, req.Cursor.Mode())
	}

	n := len(p.items)
	total := n
	out.TotalEstimated = &total
	out.Items = make([]T, 0)

	if offset < 0 || offset >= n {
		return out, nil
	}

	end := offset + req.Limit
	if end > n {
		end = n
	}
	out.Items = append(out.Items, p.items[offset:end]...)
	if offset+req.Limit < n {
		out.HasMore = true
		out.NextCursor = OffsetCursor(offset + req.Limit)
	}
	return out, nil
}
