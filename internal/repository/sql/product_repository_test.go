package sql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iyhunko/product-catalog/internal/apperr"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "name", "price", "min_order_qty", "image_path", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*ProductRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewProductRepository(db), mock
}

func strPtr(s string) *string {
	return &s
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestProductRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

	t.Run("successful creation on empty table", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		repo.now = func() time.Time { return now }

		mock.ExpectQuery(regexp.QuoteMeta(maxIDQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectPrepare("INSERT INTO products").
			ExpectQuery().
			WithArgs("prod_001", "Steel Rod", decimal.RequireFromString("450.50"), "10 units", nil, now, now).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_001", "Steel Rod", "450.50", "10 units", nil, now, now))

		product, err := repo.Create(ctx, model.ProductInput{
			Name:        strPtr("Steel Rod"),
			Price:       decPtr("450.50"),
			MinOrderQty: strPtr("10 units"),
		})
		require.NoError(t, err)

		assert.Equal(t, "prod_001", product.ID)
		assert.Equal(t, "Steel Rod", product.Name)
		assert.True(t, product.Price.Equal(decimal.RequireFromString("450.50")))
		assert.Equal(t, "10 units", product.MinOrderQty)
		assert.Nil(t, product.ImagePath)
		assert.Equal(t, now, product.CreatedAt)
		assert.Equal(t, product.CreatedAt, product.UpdatedAt)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increments the highest stored id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		repo.now = func() time.Time { return now }

		mock.ExpectQuery(regexp.QuoteMeta(maxIDQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("prod_041"))
		mock.ExpectPrepare("INSERT INTO products").
			ExpectQuery().
			WithArgs("prod_042", "Copper Wire", sqlmock.AnyArg(), "1 dozen", "https://cdn.example.com/products/a.png", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_042", "Copper Wire", "12", "1 dozen", "https://cdn.example.com/products/a.png", now, now))

		product, err := repo.Create(ctx, model.ProductInput{
			Name:        strPtr("Copper Wire"),
			Price:       decPtr("12"),
			MinOrderQty: strPtr("1 dozen"),
			ImagePath:   strPtr("https://cdn.example.com/products/a.png"),
		})
		require.NoError(t, err)

		assert.Equal(t, "prod_042", product.ID)
		require.NotNil(t, product.ImagePath)
		assert.Equal(t, "https://cdn.example.com/products/a.png", *product.ImagePath)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing name or price is a validation error", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		_, err := repo.Create(ctx, model.ProductInput{Price: decPtr("1")})
		assert.True(t, apperr.IsValidation(err))

		_, err = repo.Create(ctx, model.ProductInput{Name: strPtr("Bolt")})
		assert.True(t, apperr.IsValidation(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("primary key collision is a duplicate id error", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(maxIDQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("prod_007"))
		mock.ExpectPrepare("INSERT INTO products").
			ExpectQuery().
			WillReturnError(&pgconn.PgError{Code: "23505", Detail: "Key (id)=(prod_008) already exists."})

		_, err := repo.Create(ctx, model.ProductInput{Name: strPtr("Nut"), Price: decPtr("0.10")})

		require.Error(t, err)
		assert.True(t, apperr.IsDuplicateID(err))
		var dupErr *apperr.DuplicateIDError
		require.True(t, errors.As(err, &dupErr))
		assert.Equal(t, "prod_008", dupErr.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("check constraint violation is a validation error", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(maxIDQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectPrepare("INSERT INTO products").
			ExpectQuery().
			WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "products_price_check"})

		_, err := repo.Create(ctx, model.ProductInput{Name: strPtr("Gold"), Price: decPtr("1000001")})

		assert.True(t, apperr.IsValidation(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled context does not write", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := repo.Create(cancelled, model.ProductInput{Name: strPtr("Nail"), Price: decPtr("1")})

		assert.True(t, apperr.IsInfrastructure(err))
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure is an infrastructure error", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(maxIDQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectPrepare("INSERT INTO products").
			WillReturnError(errors.New("connection refused"))

		_, err := repo.Create(ctx, model.ProductInput{Name: strPtr("Nail"), Price: decPtr("1")})

		assert.True(t, apperr.IsInfrastructure(err))
		assert.False(t, apperr.IsValidation(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("successful find", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare(regexp.QuoteMeta("SELECT " + productColumns + " FROM products WHERE id = $1")).
			ExpectQuery().
			WithArgs("prod_001").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_001", "Steel Rod", 450.5, "10 units", "products/rod.jpg", now, now))

		product, found, err := repo.FindByID(ctx, "prod_001")
		require.NoError(t, err)
		require.True(t, found)

		assert.Equal(t, "prod_001", product.ID)
		assert.True(t, product.Price.Equal(decimal.RequireFromString("450.5")))
		require.NotNil(t, product.ImagePath)
		assert.Equal(t, "products/rod.jpg", *product.ImagePath)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("product not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("FROM products WHERE id").
			ExpectQuery().
			WithArgs("prod_404").
			WillReturnRows(sqlmock.NewRows(columns))

		product, found, err := repo.FindByID(ctx, "prod_404")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, product)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed id is rejected without a query", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		_, found, err := repo.FindByID(ctx, "'; DROP TABLE products; --")

		assert.False(t, found)
		assert.True(t, apperr.IsValidation(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed row fails visibly", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("FROM products WHERE id").
			ExpectQuery().
			WithArgs("prod_002").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_002", "", "1", "1", nil, now, now))

		_, _, err := repo.FindByID(ctx, "prod_002")

		assert.True(t, apperr.IsInfrastructure(err))
		assert.ErrorIs(t, err, ErrMalformedRow)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure is an infrastructure error", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("FROM products WHERE id").
			ExpectQuery().
			WithArgs("prod_003").
			WillReturnError(context.DeadlineExceeded)

		_, found, err := repo.FindByID(ctx, "prod_003")

		assert.False(t, found)
		assert.True(t, apperr.IsTimeout(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_List(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("list newest first", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare(regexp.QuoteMeta("SELECT " + productColumns + " FROM products ORDER BY created_at DESC, id DESC")).
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_002", "Product 2", "149.99", "5", nil, now, now).
				AddRow("prod_001", "Product 1", "99.99", "10", nil, now.Add(-time.Hour), now.Add(-time.Hour)))

		products, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "prod_002", products[0].ID)
		assert.Equal(t, "prod_001", products[1].ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty table returns empty slice", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("FROM products ORDER BY").
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows(columns))

		products, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_ListPage(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("first page uses limit only", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT $1")).
			ExpectQuery().
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_003", "Product 3", "1.00", "", nil, now, now).
				AddRow("prod_002", "Product 2", "2.00", "", nil, now, now))

		products, err := repo.ListPage(ctx, repository.PageQuery{Limit: 2})
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "prod_003", products[0].ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("next page starts after the cursor", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		cursor := repository.Paginator{LastID: "prod_002", LastCreatedAt: now}

		mock.ExpectPrepare(regexp.QuoteMeta("WHERE (created_at, id) < ($1, $2)")).
			ExpectQuery().
			WithArgs(now, "prod_002", 10).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_001", "Product 1", "3.00", "", nil, now.Add(-time.Hour), now.Add(-time.Hour)))

		products, err := repo.ListPage(ctx, repository.PageQuery{After: &cursor})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "prod_001", products[0].ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_Search(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("escapes wildcards", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("WHERE name ILIKE").
			ExpectQuery().
			WithArgs(`%50\%\_off%`).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_001", "Rod 50%_off", "1", "1", nil, now, now))

		products, err := repo.Search(ctx, "50%_off")
		require.NoError(t, err)
		assert.Len(t, products, 1)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty substring lists everything", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("FROM products ORDER BY").
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.Search(ctx, "")
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `steel`, escapeLike("steel"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\d`, escapeLike(`c:\d`))
}

func TestProductRepository_Update(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	t.Run("price only update", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		repo.now = func() time.Time { return now }

		query := "UPDATE products SET price = $1, updated_at = GREATEST($2, updated_at + interval '1 microsecond') " +
			"WHERE id = $3 AND (price IS DISTINCT FROM $1) RETURNING " + productColumns
		mock.ExpectPrepare(regexp.QuoteMeta(query)).
			ExpectQuery().
			WithArgs(decimal.NewFromInt(500), now, "prod_001").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_001", "Steel Rod", "500", "10 units", nil, created, now))

		price := decimal.NewFromInt(500)
		product, found, err := repo.Update(ctx, "prod_001", model.ProductPatch{Price: &price})
		require.NoError(t, err)
		require.True(t, found)

		assert.True(t, product.Price.Equal(price))
		assert.Equal(t, "Steel Rod", product.Name)
		assert.Equal(t, "10 units", product.MinOrderQty)
		assert.True(t, product.UpdatedAt.After(product.CreatedAt))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clearing the image sets null", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		repo.now = func() time.Time { return now }

		mock.ExpectPrepare(regexp.QuoteMeta("UPDATE products SET name = $1, image_path = $2, updated_at")).
			ExpectQuery().
			WithArgs("Steel Bar", nil, now, "prod_001").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_001", "Steel Bar", "500", "10 units", nil, created, now))

		product, found, err := repo.Update(ctx, "prod_001", model.ProductPatch{
			Name:      strPtr("Steel Bar"),
			ImagePath: model.Some[*string](nil),
		})
		require.NoError(t, err)
		require.True(t, found)
		assert.Nil(t, product.ImagePath)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty patch returns the current row", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("FROM products WHERE id").
			ExpectQuery().
			WithArgs("prod_001").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_001", "Steel Rod", "450.50", "10 units", nil, created, created))

		product, found, err := repo.Update(ctx, "prod_001", model.ProductPatch{})
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, created, product.UpdatedAt)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unchanged values keep updated_at", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		repo.now = func() time.Time { return now }

		mock.ExpectPrepare("UPDATE products SET name").
			ExpectQuery().
			WithArgs("Steel Rod", now, "prod_001").
			WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectPrepare("FROM products WHERE id").
			ExpectQuery().
			WithArgs("prod_001").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("prod_001", "Steel Rod", "450.50", "10 units", nil, created, created))

		product, found, err := repo.Update(ctx, "prod_001", model.ProductPatch{Name: strPtr("Steel Rod")})
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, created, product.UpdatedAt)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("UPDATE products SET").
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectPrepare("FROM products WHERE id").
			ExpectQuery().
			WithArgs("prod_404").
			WillReturnRows(sqlmock.NewRows(columns))

		product, found, err := repo.Update(ctx, "prod_404", model.ProductPatch{MinOrderQty: strPtr("3")})
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, product)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update failure is an infrastructure error", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("UPDATE products SET").
			ExpectQuery().
			WillReturnError(sql.ErrConnDone)

		_, found, err := repo.Update(ctx, "prod_001", model.ProductPatch{Price: decPtr("1")})

		assert.False(t, found)
		assert.True(t, apperr.IsInfrastructure(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_DeleteByID(t *testing.T) {
	ctx := context.Background()

	t.Run("successful delete", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("DELETE FROM products WHERE id").
			ExpectExec().
			WithArgs("prod_001").
			WillReturnResult(sqlmock.NewResult(0, 1))

		deleted, err := repo.DeleteByID(ctx, "prod_001")
		require.NoError(t, err)
		assert.True(t, deleted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("product not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectPrepare("DELETE FROM products WHERE id").
			ExpectExec().
			WithArgs("prod_404").
			WillReturnResult(sqlmock.NewResult(0, 0))

		deleted, err := repo.DeleteByID(ctx, "prod_404")
		require.NoError(t, err)
		assert.False(t, deleted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	repo := NewProductRepository(db)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = repo.Ping(context.Background())
	assert.True(t, apperr.IsInfrastructure(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{"pgx unique violation", &pgconn.PgError{Code: "23505"}, func(t *testing.T, err error) {
			assert.True(t, apperr.IsDuplicateID(err))
		}},
		{"lib/pq unique violation", &pq.Error{Code: "23505", Detail: "Key (id)=(prod_001) already exists."}, func(t *testing.T, err error) {
			var dup *apperr.DuplicateIDError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, "prod_001", dup.ID)
			assert.Contains(t, dup.Detail, "already exists")
		}},
		{"lib/pq check violation", &pq.Error{Code: "23514", Constraint: "products_name_check"}, func(t *testing.T, err error) {
			assert.True(t, apperr.IsValidation(err))
			assert.Contains(t, err.Error(), "products_name_check")
		}},
		{"other driver error", &pq.Error{Code: "57P01"}, func(t *testing.T, err error) {
			assert.True(t, apperr.IsInfrastructure(err))
		}},
		{"plain error", errors.New("broken pipe"), func(t *testing.T, err error) {
			assert.True(t, apperr.IsInfrastructure(err))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, classify("create product", "prod_001", tt.err))
		})
	}
}
