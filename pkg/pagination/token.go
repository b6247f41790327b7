package pagination

import (
	"context"
	"fmt"
)

// TokenPage is one page as returned by a token-paginated collaborator.
type TokenPage[T any] struct {
	Items     []T
	NextToken string
	// Signaled reports whether the presence of NextToken is authoritative.
	// Collaborators that always hand back a resume token set it to false, and
	// "more" is then inferred from a full page.
	Signaled bool
	// Total is the collaborator-reported total, when it reports one.
	Total *int
}

// TokenFetchFunc requests up to limit items starting at token ("" for the first page).
// A token the backend rejects must surface as an error wrapping ErrInvalidCursor.
// Returning more than limit items is an error.
type TokenFetchFunc[T any] func(ctx context.Context, limit int, token string) (TokenPage[T], error)

// TokenPaginator delegates paging to a collaborator's own opaque tokens and
// never materializes the full result set.
type TokenPaginator[T any] struct {
	fetch TokenFetchFunc[T]
}

// NewTokenPaginator binds a paginator to a collaborator fetch function.
func NewTokenPaginator[T any](fetch TokenFetchFunc[T]) *TokenPaginator[T] {
	return &TokenPaginator[T]{fetch: fetch}
}

// Page fetches exactly one collaborator page and re-wraps it.
func (p *TokenPaginator[T]) Page(ctx context.Context, req PageRequest) (PageResult[T], error) {
	var out PageResult[T]
	if err := req.Validate(); err != nil {
		return out, err
	}

	token := ""
	switch req.Cursor.Mode() {
	case ModeNone:
	case ModeToken:
		token = req.Cursor.Token()
	default:
		return out, fmt.Errorf("%w: expected page token, got %s", ErrInvalidCursor, req.Cursor.Mode())
	}

	page, err := p.fetch(ctx, req.Limit, token)
	if err != nil {
		return out, err
	}

	if len(page.Items) > req.Limit {
		return out, fmt.Errorf("pagination: collaborator returned %d items for limit %d", len(page.Items), req.Limit)
	}
	out.Items = page.Items
	if out.Items == nil {
		out.Items = make([]T, 0)
	}
	out.TotalEstimated = page.Total

	hasMore := page.NextToken != ""
	if !page.Signaled {
		hasMore = hasMore && len(page.Items) >= req.Limit
	}
	if hasMore {
		out.HasMore = true
		out.NextCursor = TokenCursor(page.NextToken)
	}
	return out, nil
}
