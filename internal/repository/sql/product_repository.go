package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iyhunko/product-catalog/internal/apperr"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// DefaultQueryTimeout bounds store operations when the caller sets no deadline.
const DefaultQueryTimeout = 5 * time.Second

// ProductRepository implements repository.ProductRepository on PostgreSQL.
type ProductRepository struct {
	db           *sql.DB
	ids          repository.IDGenerator
	queryTimeout time.Duration
	now          func() time.Time
}

// Option configures a ProductRepository.
type Option func(*ProductRepository)

// WithQueryTimeout bounds every operation by d.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *ProductRepository) {
		if d > 0 {
			r.queryTimeout = d
		}
	}
}

// WithIDGenerator replaces the sequential identifier generator.
func WithIDGenerator(ids repository.IDGenerator) Option {
	return func(r *ProductRepository) {
		r.ids = ids
	}
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db *sql.DB, opts ...Option) *ProductRepository {
	r := &ProductRepository{
		db:           db,
		ids:          NewSequentialIDGenerator(db),
		queryTimeout: DefaultQueryTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

func (r *ProductRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.queryTimeout)
}

// timestamp returns the current time at the precision PostgreSQL stores.
func (r *ProductRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// Create inserts a new product and returns the row as stored.
func (r *ProductRepository) Create(ctx context.Context, input model.ProductInput) (*model.Product, error) {
	if input.Name == nil {
		return nil, apperr.NewValidationError("name", "is required")
	}
	if input.Price == nil {
		return nil, apperr.NewValidationError("price", "is required")
	}
	minOrderQty := ""
	if input.MinOrderQty != nil {
		minOrderQty = *input.MinOrderQty
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.ids.NextID(ctx)
	if err != nil {
		return nil, err
	}
	// the row write must not start once the caller gave up
	if err := ctx.Err(); err != nil {
		return nil, apperr.Infrastructure("create product", err)
	}

	now := r.timestamp()
	query := `INSERT INTO products (id, name, price, min_order_qty, image_path, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING ` + productColumns

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, apperr.Infrastructure("create product", fmt.Errorf("failed to prepare insert statement: %w", err))
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, id, *input.Name, *input.Price, minOrderQty, nullString(input.ImagePath), now, now))
	if err != nil {
		return nil, classify("create product", id, fmt.Errorf("failed to insert product: %w", err))
	}

	return product, nil
}

// List retrieves all products, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`
	return r.query(ctx, "list products", query)
}

// ListPage retrieves one page of the listing using the (created_at, id) keyset.
func (r *ProductRepository) ListPage(ctx context.Context, q repository.PageQuery) ([]model.Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	if q.After == nil {
		query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC LIMIT $1`
		return r.query(ctx, "list products page", query, limit)
	}
	query := `SELECT ` + productColumns + ` FROM products
	          WHERE (created_at, id) < ($1, $2)
	          ORDER BY created_at DESC, id DESC LIMIT $3`
	return r.query(ctx, "list products page", query, q.After.LastCreatedAt.UTC(), q.After.LastID, limit)
}

// Search retrieves products whose name contains substr, ignoring case.
func (r *ProductRepository) Search(ctx context.Context, substr string) ([]model.Product, error) {
	if substr == "" {
		return r.List(ctx)
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE name ILIKE $1 ESCAPE '\' ORDER BY created_at DESC, id DESC`
	return r.query(ctx, "search products", query, "%"+escapeLike(substr)+"%")
}

func (r *ProductRepository) query(ctx context.Context, op, query string, args ...interface{}) ([]model.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, apperr.Infrastructure(op, fmt.Errorf("failed to prepare select statement: %w", err))
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, apperr.Infrastructure(op, fmt.Errorf("failed to query products: %w", err))
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.Infrastructure(op, fmt.Errorf("failed to scan product: %w", err))
		}
		products = append(products, *product)
	}

	if err = rows.Err(); err != nil {
		return nil, apperr.Infrastructure(op, fmt.Errorf("error iterating rows: %w", err))
	}

	return products, nil
}

// FindByID retrieves a single product by ID.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*model.Product, bool, error) {
	if !model.ValidID(id) {
		return nil, false, apperr.NewValidationError("id", "must have the form prod_NNN")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, false, apperr.Infrastructure("find product", fmt.Errorf("failed to prepare select statement: %w", err))
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, apperr.Infrastructure("find product", fmt.Errorf("failed to query product: %w", err))
	}

	return product, true, nil
}

// Update applies the supplied fields of patch. updated_at only moves when a value actually changes,
// and it always moves forward.
func (r *ProductRepository) Update(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, bool, error) {
	if !model.ValidID(id) {
		return nil, false, apperr.NewValidationError("id", "must have the form prod_NNN")
	}
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	var (
		sets    []string
		changes []string
		args    []interface{}
	)
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		changes = append(changes, fmt.Sprintf("%s IS DISTINCT FROM $%d", column, len(args)))
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.MinOrderQty != nil {
		set("min_order_qty", *patch.MinOrderQty)
	}
	if patch.ImagePath.Set {
		set("image_path", nullString(patch.ImagePath.Value))
	}

	args = append(args, r.timestamp())
	sets = append(sets, fmt.Sprintf("updated_at = GREATEST($%d, updated_at + interval '1 microsecond')", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d AND (%s) RETURNING %s`,
		strings.Join(sets, ", "), len(args), strings.Join(changes, " OR "), productColumns)

	product, err := r.update(ctx, id, query, args)
	if err != nil {
		return nil, false, err
	}
	if product == nil {
		// nothing changed or the row is gone
		return r.FindByID(ctx, id)
	}
	return product, true, nil
}

func (r *ProductRepository) update(ctx context.Context, id, query string, args []interface{}) (*model.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return nil, apperr.Infrastructure("update product", err)
	}

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, apperr.Infrastructure("update product", fmt.Errorf("failed to prepare update statement: %w", err))
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("update product", id, fmt.Errorf("failed to update product: %w", err))
	}
	return product, nil
}

// DeleteByID deletes a product by ID and reports whether a row was removed.
func (r *ProductRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	if !model.ValidID(id) {
		return false, apperr.NewValidationError("id", "must have the form prod_NNN")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM products WHERE id = $1`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return false, apperr.Infrastructure("delete product", fmt.Errorf("failed to prepare delete statement: %w", err))
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return false, apperr.Infrastructure("delete product", fmt.Errorf("failed to delete product: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperr.Infrastructure("delete product", fmt.Errorf("failed to get rows affected: %w", err))
	}

	return rowsAffected > 0, nil
}

// Ping checks that the database is reachable.
func (r *ProductRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return apperr.Infrastructure("ping database", err)
	}
	return nil
}

// classify maps constraint violations to typed errors; everything else is an infrastructure failure.
// Both the pgx and the lib/pq drivers are understood.
func classify(op, id string, err error) error {
	var code, detail, constraint string
	var pgError *pgconn.PgError
	var pqError *pq.Error
	switch {
	case errors.As(err, &pgError):
		code, detail, constraint = pgError.Code, pgError.Detail, pgError.ConstraintName
	case errors.As(err, &pqError):
		code, detail, constraint = string(pqError.Code), pqError.Detail, pqError.Constraint
	}

	switch code {
	case pqUniqueViolationErrCode:
		return &apperr.DuplicateIDError{ID: id, Detail: detail}
	case pqCheckViolationErrCode:
		return apperr.NewValidationError("", "violates constraint "+constraint)
	}
	return apperr.Infrastructure(op, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
