package controller

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/model"
)

// ProductService is the catalog behaviour the HTTP layer needs.
type ProductService interface {
	CreateProduct(ctx context.Context, input model.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListProductsPage(ctx context.Context, limit int, token string) ([]model.Product, string, error)
	SearchProducts(ctx context.Context, q string) ([]model.Product, error)
	UploadImage(ctx context.Context, buf []byte, filename string) (string, error)
}

// ProductController handles HTTP requests for product operations.
type ProductController struct {
	productService ProductService
}

// NewProductController creates a new ProductController with the given product service.
func NewProductController(productService ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// CreateProduct handles the HTTP POST request for creating a new product.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	createdProduct, err := pc.productService.CreateProduct(c.Request.Context(), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toProductResponse(createdProduct))
}

// UpdateProduct handles the HTTP PATCH request for a partial update.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	updated, err := pc.productService.UpdateProduct(c.Request.Context(), c.Param("id"), req.toPatch())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(updated))
}

// DeleteProduct handles the HTTP DELETE request for deleting a product by ID.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	if err := pc.productService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "product deleted successfully"})
}

// GetProduct handles the HTTP GET request for a single product.
func (pc *ProductController) GetProduct(c *gin.Context) {
	product, err := pc.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(product))
}

// ListProducts handles the HTTP GET request for the listing. ?q= filters by name;
// ?limit= or ?token= switch to keyset pages.
func (pc *ProductController) ListProducts(c *gin.Context) {
	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	var (
		products []model.Product
		next     string
		err      error
	)
	switch q := strings.TrimSpace(query.Q); {
	case q != "":
		products, err = pc.productService.SearchProducts(c.Request.Context(), q)
	case query.Limit > 0 || query.Token != "":
		products, next, err = pc.productService.ListProductsPage(c.Request.Context(), query.Limit, query.Token)
	default:
		products, err = pc.productService.ListProducts(c.Request.Context())
	}
	if err != nil {
		writeError(c, err)
		return
	}

	resp := toListResponse(products)
	resp.NextPageToken = next
	c.JSON(http.StatusOK, resp)
}
