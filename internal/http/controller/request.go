package controller

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents the request body for creating a product.
type CreateProductRequest struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	MinOrderQty *string          `json:"min_order_qty"`
	ImagePath   *string          `json:"image_path"`
}

func (r CreateProductRequest) toInput() model.ProductInput {
	return model.ProductInput{
		Name:        r.Name,
		Price:       r.Price,
		MinOrderQty: r.MinOrderQty,
		ImagePath:   r.ImagePath,
	}
}

// UpdateProductRequest represents the request body for a partial update.
// Absent fields are left untouched; "image_path": null clears the image.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	MinOrderQty *string          `json:"min_order_qty"`
	ImagePath   NullableString   `json:"image_path"`
}

func (r UpdateProductRequest) toPatch() model.ProductPatch {
	patch := model.ProductPatch{
		Name:        r.Name,
		Price:       r.Price,
		MinOrderQty: r.MinOrderQty,
	}
	if r.ImagePath.Set {
		patch.ImagePath = model.Some(r.ImagePath.Value)
	}
	return patch
}

// NullableString tells an explicit null apart from an absent field.
type NullableString struct {
	Set   bool
	Value *string
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// ProductResponse represents the response body for a product.
type ProductResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Price       json.Number `json:"price"`
	MinOrderQty string      `json:"min_order_qty"`
	ImagePath   *string     `json:"image_path"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
}

// ListProductsQuery holds the listing query parameters.
type ListProductsQuery struct {
	Q     string `form:"q"`
	Limit int    `form:"limit" binding:"omitempty,min=1"`
	Token string `form:"token"`
}

// ListProductsResponse represents the response body for listing products.
type ListProductsResponse struct {
	Products      []ProductResponse `json:"products"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

func toProductResponse(product *model.Product) ProductResponse {
	return ProductResponse{
		ID:          product.ID,
		Name:        product.Name,
		Price:       json.Number(product.Price.String()),
		MinOrderQty: product.MinOrderQty,
		ImagePath:   product.ImagePath,
		CreatedAt:   product.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   product.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toListResponse(products []model.Product) ListProductsResponse {
	resp := ListProductsResponse{Products: make([]ProductResponse, 0, len(products))}
	for i := range products {
		resp.Products = append(resp.Products, toProductResponse(&products[i]))
	}
	return resp
}
