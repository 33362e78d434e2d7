package image

import "context"

// ObjectStore persists image objects under keys. Delete of a missing key succeeds.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}
