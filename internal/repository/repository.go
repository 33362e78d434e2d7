package repository

import (
	"context"

	"github.com/iyhunko/product-catalog/internal/model"
)

// ProductRepository is the only component allowed to read or write the products relation.
//
// Absent rows are reported through the found/deleted booleans, never as errors.
// Errors are *apperr.ValidationError, *apperr.DuplicateIDError or *apperr.InfrastructureError.
type ProductRepository interface {
	// List returns all products, newest first.
	List(ctx context.Context) ([]model.Product, error)
	// ListPage returns at most q.Limit products in listing order, starting after q.After.
	ListPage(ctx context.Context, q PageQuery) ([]model.Product, error)
	// Search returns products whose name contains substr (case-insensitive), newest first.
	Search(ctx context.Context, substr string) ([]model.Product, error)
	FindByID(ctx context.Context, id string) (product *model.Product, found bool, err error)
	Create(ctx context.Context, input model.ProductInput) (*model.Product, error)
	// Update applies only the fields present in patch. An empty patch returns the current row.
	Update(ctx context.Context, id string, patch model.ProductPatch) (product *model.Product, found bool, err error)
	DeleteByID(ctx context.Context, id string) (deleted bool, err error)
	Ping(ctx context.Context) error
}

// IDGenerator produces the next product identifier.
type IDGenerator interface {
	NextID(ctx context.Context) (string, error)
}
