package sql

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/shopspring/decimal"
)

const productColumns = "id, name, price, min_order_qty, image_path, created_at, updated_at"

// ErrMalformedRow is returned when a stored row cannot be decoded into a product.
var ErrMalformedRow = errors.New("malformed product row")

type rowScanner interface {
	Scan(dest ...any) error
}

// productRow mirrors the products relation column by column.
type productRow struct {
	ID          sql.NullString
	Name        sql.NullString
	Price       decimal.NullDecimal
	MinOrderQty sql.NullString
	ImagePath   sql.NullString
	CreatedAt   sql.NullTime
	UpdatedAt   sql.NullTime
}

func scanProduct(s rowScanner) (*model.Product, error) {
	var row productRow
	if err := s.Scan(&row.ID, &row.Name, &row.Price, &row.MinOrderQty, &row.ImagePath, &row.CreatedAt, &row.UpdatedAt); err != nil {
		return nil, err
	}
	return row.toProduct()
}

// toProduct is the single construction point of model.Product from storage.
func (r productRow) toProduct() (*model.Product, error) {
	switch {
	case !r.ID.Valid || !model.ValidID(r.ID.String):
		return nil, fmt.Errorf("%w: invalid id %q", ErrMalformedRow, r.ID.String)
	case !r.Name.Valid || r.Name.String == "":
		return nil, fmt.Errorf("%w: product %s has no name", ErrMalformedRow, r.ID.String)
	case !r.Price.Valid || r.Price.Decimal.IsNegative():
		return nil, fmt.Errorf("%w: product %s has invalid price", ErrMalformedRow, r.ID.String)
	case !r.MinOrderQty.Valid:
		return nil, fmt.Errorf("%w: product %s has no minimum order quantity", ErrMalformedRow, r.ID.String)
	case !r.CreatedAt.Valid || !r.UpdatedAt.Valid:
		return nil, fmt.Errorf("%w: product %s has no timestamps", ErrMalformedRow, r.ID.String)
	case r.UpdatedAt.Time.Before(r.CreatedAt.Time):
		return nil, fmt.Errorf("%w: product %s updated before creation", ErrMalformedRow, r.ID.String)
	}

	product := &model.Product{
		ID:          r.ID.String,
		Name:        r.Name.String,
		Price:       r.Price.Decimal,
		MinOrderQty: r.MinOrderQty.String,
		CreatedAt:   r.CreatedAt.Time.UTC(),
		UpdatedAt:   r.UpdatedAt.Time.UTC(),
	}
	if r.ImagePath.Valid {
		imagePath := r.ImagePath.String
		product.ImagePath = &imagePath
	}
	return product, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
