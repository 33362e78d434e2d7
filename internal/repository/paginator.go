package repository

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iyhunko/product-catalog/internal/model"
)

var (
	// ErrInvalidPaginationToken is returned when a pagination token cannot be decoded.
	ErrInvalidPaginationToken = errors.New("token is invalid")
)

const (
	// DefaultPaginationLimit is the default number of items per page.
	DefaultPaginationLimit = 10
	maxPaginationLimit     = 100
)

// Paginator is the keyset cursor of the listing order (created_at DESC, id DESC):
// the next page starts strictly after the last product returned.
type Paginator struct {
	LastID        string
	LastCreatedAt time.Time
}

// NewPaginator returns the cursor positioned after p.
func NewPaginator(p model.Product) Paginator {
	return Paginator{LastID: p.ID, LastCreatedAt: p.CreatedAt}
}

// Encode encodes the paginator state into a URL-safe token.
func (t Paginator) Encode() string {
	key := fmt.Sprintf("%s,%s", t.LastCreatedAt.UTC().Format(time.RFC3339Nano), t.LastID)
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodePageToken decodes a token produced by Encode.
func DecodePageToken(encodedToken string) (*Paginator, error) {
	bytes, err := base64.RawURLEncoding.DecodeString(encodedToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 token: %w", err)
	}
	createdPart, id, ok := strings.Cut(string(bytes), ",")
	if !ok {
		return nil, fmt.Errorf("invalid token format: %w", ErrInvalidPaginationToken)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdPart)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token timestamp: %w", err)
	}
	if !model.ValidID(id) {
		return nil, fmt.Errorf("invalid token product id: %w", ErrInvalidPaginationToken)
	}

	return &Paginator{
		LastID:        id,
		LastCreatedAt: createdAt,
	}, nil
}
