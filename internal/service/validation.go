package service

import (
	"strings"
	"unicode/utf8"

	"github.com/iyhunko/product-catalog/internal/apperr"
	"github.com/shopspring/decimal"
)

const (
	MaxNameLength        = 100
	MaxMinOrderQtyLength = 100
)

var MaxPrice = decimal.NewFromInt(1_000_000)

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.NewValidationError("name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", apperr.NewValidationError("name", "must be at most 100 characters")
	}
	return name, nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperr.NewValidationError("price", "must not be negative")
	}
	if price.GreaterThan(MaxPrice) {
		return apperr.NewValidationError("price", "must not exceed 1000000")
	}
	return nil
}

func validateMinOrderQty(qty string) (string, error) {
	qty = strings.TrimSpace(qty)
	if qty == "" {
		return "", apperr.NewValidationError("min_order_qty", "must not be empty")
	}
	if utf8.RuneCountInString(qty) > MaxMinOrderQtyLength {
		return "", apperr.NewValidationError("min_order_qty", "must be at most 100 characters")
	}
	return qty, nil
}

// normalizeImagePath maps blank references to no image.
func normalizeImagePath(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
