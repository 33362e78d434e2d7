package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iyhunko/product-catalog/internal/apperr"
	"github.com/iyhunko/product-catalog/internal/cache"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/sqs"
)

const sideEffectTimeout = 5 * time.Second

// ImageManager stores and removes product images.
type ImageManager interface {
	Store(ctx context.Context, buf []byte, nameHint string) (string, error)
	Remove(ctx context.Context, ref string) error
}

// Publisher announces catalog changes.
type Publisher interface {
	PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error
}

// ProductService is the entry point for catalog reads and mutations.
type ProductService struct {
	repo      repository.ProductRepository
	images    ImageManager
	cache     cache.ListingCache
	publisher Publisher
	now       func() time.Time
}

// NewProductService wires the service. A nil listingCache disables caching and a nil publisher disables change messages.
func NewProductService(repo repository.ProductRepository, images ImageManager, listingCache cache.ListingCache, publisher Publisher) *ProductService {
	if listingCache == nil {
		listingCache = cache.NoopCache{}
	}
	return &ProductService{
		repo:      repo,
		images:    images,
		cache:     listingCache,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateProduct validates input and inserts a new product. Any image must already be uploaded.
func (ps *ProductService) CreateProduct(ctx context.Context, input model.ProductInput) (*model.Product, error) {
	if input.Name == nil {
		return nil, apperr.NewValidationError("name", "is required")
	}
	name, err := validateName(*input.Name)
	if err != nil {
		return nil, err
	}
	if input.Price == nil {
		return nil, apperr.NewValidationError("price", "is required")
	}
	if err := validatePrice(*input.Price); err != nil {
		return nil, err
	}
	if input.MinOrderQty == nil {
		return nil, apperr.NewValidationError("min_order_qty", "is required")
	}
	qty, err := validateMinOrderQty(*input.MinOrderQty)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, apperr.Infrastructure("create product", err)
	}

	created, err := ps.repo.Create(ctx, model.ProductInput{
		Name:        &name,
		Price:       input.Price,
		MinOrderQty: &qty,
		ImagePath:   normalizeImagePath(input.ImagePath),
	})
	if err != nil {
		return nil, err
	}

	metrics.ProductsCreated.Inc()
	slog.Info("product created", slog.String("product_id", created.ID))
	ps.afterMutation(ctx, sqs.ActionCreated, created)

	return created, nil
}

// UpdateProduct applies patch to an existing product. At least one field is required.
func (ps *ProductService) UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error) {
	if patch.IsEmpty() {
		return nil, apperr.NewValidationError("", "at least one field is required")
	}
	if !model.ValidID(id) {
		return nil, apperr.NewValidationError("id", "must have the form prod_NNN")
	}
	if patch.Name != nil {
		name, err := validateName(*patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	if patch.MinOrderQty != nil {
		qty, err := validateMinOrderQty(*patch.MinOrderQty)
		if err != nil {
			return nil, err
		}
		patch.MinOrderQty = &qty
	}
	if patch.ImagePath.Set {
		patch.ImagePath.Value = normalizeImagePath(patch.ImagePath.Value)
	}

	existing, found, err := ps.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &apperr.NotFoundError{ID: id}
	}

	updated, found, err := ps.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &apperr.NotFoundError{ID: id}
	}

	if patch.ImagePath.Set && existing.HasImage() && !sameRef(existing.ImagePath, updated.ImagePath) {
		ps.removeImage(ctx, id, *existing.ImagePath)
	}

	metrics.ProductsUpdated.Inc()
	slog.Info("product updated", slog.String("product_id", id))
	ps.afterMutation(ctx, sqs.ActionUpdated, updated)

	return updated, nil
}

// DeleteProduct removes the product image (best effort) and then the row.
func (ps *ProductService) DeleteProduct(ctx context.Context, id string) error {
	product, found, err := ps.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return &apperr.NotFoundError{ID: id}
	}

	if product.HasImage() {
		ps.removeImage(ctx, id, *product.ImagePath)
	}

	deleted, err := ps.repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return &apperr.NotFoundError{ID: id}
	}

	metrics.ProductsDeleted.Inc()
	slog.Info("product deleted", slog.String("product_id", id))
	ps.afterMutation(ctx, sqs.ActionDeleted, product)

	return nil
}

// GetProduct returns a single product or a NotFoundError.
func (ps *ProductService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	product, found, err := ps.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &apperr.NotFoundError{ID: id}
	}
	return product, nil
}

// ListProducts returns every product, newest first, reading through the listing cache.
func (ps *ProductService) ListProducts(ctx context.Context) ([]model.Product, error) {
	cached, hit, err := ps.cache.Get(ctx)
	switch {
	case err != nil:
		metrics.ListingCacheRequests.WithLabelValues("error").Inc()
		slog.Warn("listing cache unavailable", slog.Any("err", err))
	case hit:
		metrics.ListingCacheRequests.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.ListingCacheRequests.WithLabelValues("miss").Inc()
	}

	// the generation is read before the store so a write landing meanwhile voids the fill
	generation, genErr := ps.cache.Generation(ctx)
	products, err := ps.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		slog.Warn("listing cache generation unavailable, fill skipped", slog.Any("err", genErr))
		return products, nil
	}
	if err := ps.cache.Set(ctx, products, generation); err != nil {
		slog.Warn("failed to fill listing cache", slog.Any("err", err))
	}
	return products, nil
}

// ListProductsPage returns one page of the listing and the token of the next page,
// empty when this is the last one. Pages bypass the listing cache.
func (ps *ProductService) ListProductsPage(ctx context.Context, limit int, token string) ([]model.Product, string, error) {
	q, err := repository.NewPageQuery(limit, token)
	if err != nil {
		return nil, "", err
	}
	pageSize := q.Limit
	q.Limit++

	products, err := ps.repo.ListPage(ctx, q)
	if err != nil {
		return nil, "", err
	}
	if len(products) <= pageSize {
		return products, "", nil
	}
	products = products[:pageSize]
	return products, repository.NewPaginator(products[pageSize-1]).Encode(), nil
}

// SearchProducts returns products whose name contains q, ignoring case.
func (ps *ProductService) SearchProducts(ctx context.Context, q string) ([]model.Product, error) {
	return ps.repo.Search(ctx, q)
}

// UploadImage validates and stores an image, returning the reference to pass on create or update.
func (ps *ProductService) UploadImage(ctx context.Context, buf []byte, filename string) (string, error) {
	return ps.images.Store(ctx, buf, filename)
}

// Ping checks the relational store.
func (ps *ProductService) Ping(ctx context.Context) error {
	return ps.repo.Ping(ctx)
}

func (ps *ProductService) removeImage(ctx context.Context, id, ref string) {
	if err := ps.images.Remove(ctx, ref); err != nil {
		metrics.ImageRemoveFailures.Inc()
		slog.Warn("failed to remove product image, object left orphaned",
			slog.String("product_id", id),
			slog.String("reference", ref),
			slog.Any("err", err))
	}
}

// afterMutation refreshes the read path and announces the change. Failures are logged only.
func (ps *ProductService) afterMutation(ctx context.Context, action sqs.Action, product *model.Product) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := ps.cache.Invalidate(ctx); err != nil {
		slog.Error("Failed to invalidate listing cache", slog.Any("err", err), slog.String("product_id", product.ID))
	}

	if ps.publisher == nil {
		return
	}
	msg := sqs.NewProductMessage(action, product, ps.now())
	if err := ps.publisher.PublishProductMessage(ctx, msg); err != nil {
		// Log error but don't fail the request
		slog.Error("Failed to send SQS message", slog.Any("err", err), slog.String("action", string(action)), slog.String("product_id", product.ID))
	}
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
