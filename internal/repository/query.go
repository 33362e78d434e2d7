package repository

import (
	"log/slog"

	"github.com/iyhunko/product-catalog/internal/apperr"
)

// PageQuery selects one page of the listing.
type PageQuery struct {
	Limit int
	// After is nil for the first page.
	After *Paginator
}

// NewPageQuery clamps limit to [1, 100] (0 means the default of 10) and decodes token.
func NewPageQuery(limit int, token string) (PageQuery, error) {
	q := PageQuery{Limit: DefaultPaginationLimit}
	if limit > 0 {
		q.Limit = min(maxPaginationLimit, limit)
	}

	if token == "" {
		return q, nil
	}

	paginator, err := DecodePageToken(token)
	if err != nil {
		slog.Info("failed to decode page token", slog.Any("err", err), slog.String("token", token))
		return PageQuery{}, apperr.NewValidationError("token", "invalid page token")
	}
	q.After = paginator
	return q, nil
}
