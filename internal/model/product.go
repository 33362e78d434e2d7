package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// IDPrefix is the prefix of every product identifier.
	IDPrefix = "prod_"
	// FirstID is assigned when no parsable identifier exists yet.
	FirstID = "prod_001"

	idMinDigits = 3
)

var idPattern = regexp.MustCompile(`^prod_[0-9]{3,}$`)

// Product represents a catalog product.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	MinOrderQty string          `json:"min_order_qty"`
	ImagePath   *string         `json:"image_path"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HasImage reports whether the product references an image.
func (p *Product) HasImage() bool {
	return p.ImagePath != nil && *p.ImagePath != ""
}

// ProductInput holds the fields for a new product. Name and Price are mandatory.
type ProductInput struct {
	Name        *string
	Price       *decimal.Decimal
	MinOrderQty *string
	ImagePath   *string
}

// Optional marks a value that may be absent from a partial update.
// Set distinguishes "not supplied" from a supplied zero value.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns a supplied Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// ProductPatch holds a partial update. Nil pointers are left untouched.
// ImagePath with a nil Value clears the image.
type ProductPatch struct {
	Name        *string
	Price       *decimal.Decimal
	MinOrderQty *string
	ImagePath   Optional[*string]
}

// IsEmpty reports whether the patch names no field at all.
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Price == nil && p.MinOrderQty == nil && !p.ImagePath.Set
}

// ValidID reports whether id has the prod_NNN form.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// FormatID renders n as prod_ followed by at least three zero-padded digits.
func FormatID(n uint64) string {
	return fmt.Sprintf("%s%0*d", IDPrefix, idMinDigits, n)
}

var digitsPattern = regexp.MustCompile(`[0-9]+`)

// ParseIDNumber extracts the numeric suffix of a prod_<digits> identifier.
func ParseIDNumber(id string) (uint64, bool) {
	if len(id) <= len(IDPrefix) || id[:len(IDPrefix)] != IDPrefix {
		return 0, false
	}
	digits := digitsPattern.FindString(id[len(IDPrefix):])
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
