package sql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/iyhunko/product-catalog/internal/apperr"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
)

// maxIDQuery orders by the numeric suffix so prod_1000 sorts after prod_999.
const maxIDQuery = `SELECT id FROM products WHERE id ~ '^prod_[0-9]+$' ORDER BY CAST(substring(id FROM 6) AS NUMERIC) DESC LIMIT 1`

// SequentialIDGenerator derives the next prod_NNN identifier from the highest stored one.
//
// It reads and increments without a lock; concurrent creators may compute the same id,
// in which case the primary key rejects the second insert with *apperr.DuplicateIDError.
type SequentialIDGenerator struct {
	db  rowQuerier
	now func() time.Time
}

// NewSequentialIDGenerator creates a SequentialIDGenerator reading from db.
func NewSequentialIDGenerator(db rowQuerier) *SequentialIDGenerator {
	return &SequentialIDGenerator{db: db, now: time.Now}
}

// NextID returns the next identifier. When the store cannot be read it falls back to
// an identifier built from the current Unix time in milliseconds. It only fails when
// ctx is already done.
func (g *SequentialIDGenerator) NextID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.Infrastructure("generate product id", err)
	}

	var maxID string
	err := g.db.QueryRowContext(ctx, maxIDQuery).Scan(&maxID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.FirstID, nil
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", apperr.Infrastructure("generate product id", ctxErr)
		}
		id := model.FormatID(uint64(g.now().UnixMilli()))
		metrics.ProductIDFallbacks.Inc()
		slog.Warn("failed to read current max product id, using clock based id",
			slog.String("product_id", id),
			slog.Any("err", err))
		return id, nil
	}

	n, ok := model.ParseIDNumber(maxID)
	if !ok {
		slog.Warn("stored product id is not parsable", slog.String("product_id", maxID))
		return model.FirstID, nil
	}
	return model.FormatID(n + 1), nil
}
