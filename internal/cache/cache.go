package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	// ListingKey holds the serialized public product listing.
	ListingKey = "catalog:products:all"
	// GenerationKey counts invalidations; a fill is only stored for the generation it was read under.
	GenerationKey = "catalog:products:gen"
	DefaultTTL    = 60 * time.Second
)

// ListingCache serves the public product listing between mutations.
//
// Fills are guarded by a generation: read Generation before loading the listing
// from the store and pass it to Set. Set is a no-op when Invalidate ran in between.
type ListingCache interface {
	Get(ctx context.Context) (products []model.Product, hit bool, err error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, products []model.Product, generation int64) error
	Invalidate(ctx context.Context) error
}

// KEYS[1] listing, KEYS[2] generation; ARGV[1] payload, ARGV[2] expected generation, ARGV[3] ttl in ms.
var setIfGenerationScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// KEYS[1] listing, KEYS[2] generation.
var invalidateScript = redis.NewScript(`
local generation = redis.call('INCR', KEYS[2])
redis.call('DEL', KEYS[1])
return generation
`)

// redisClient is the subset of redis.UniversalClient used here.
type redisClient interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisCache keeps the listing in Redis with a TTL.
type RedisCache struct {
	client redisClient
	key    string
	genKey string
	ttl    time.Duration
}

// NewRedisCache creates a new RedisCache.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return newRedisCache(client, ttl)
}

func newRedisCache(client redisClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{
		client: client,
		key:    ListingKey,
		genKey: GenerationKey,
		ttl:    ttl,
	}
}

// Get returns the cached listing. A miss is not an error.
func (c *RedisCache) Get(ctx context.Context) ([]model.Product, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get listing from redis: %w", err)
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal listing: %w", err)
	}
	return products, true, nil
}

// Generation returns the current invalidation count, 0 when nothing was invalidated yet.
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, c.genKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get listing generation from redis: %w", err)
	}
	return generation, nil
}

// Set stores the listing unless the generation moved past generation.
func (c *RedisCache) Set(ctx context.Context, products []model.Product, generation int64) error {
	if products == nil {
		products = []model.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}

	stored, err := setIfGenerationScript.Run(ctx, c.client,
		[]string{c.key, c.genKey},
		string(data), strconv.FormatInt(generation, 10), c.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to set listing in redis: %w", err)
	}
	if stored == 0 {
		slog.Debug("listing changed while loading, cache fill skipped", slog.Int64("generation", generation))
	}
	return nil
}

// Invalidate drops the cached listing and bumps the generation.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := invalidateScript.Run(ctx, c.client, []string{c.key, c.genKey}).Err(); err != nil {
		return fmt.Errorf("failed to invalidate listing: %w", err)
	}
	return nil
}

// NoopCache always misses. It is used when no Redis address is configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context) ([]model.Product, bool, error) { return nil, false, nil }
func (NoopCache) Generation(context.Context) (int64, error)          { return 0, nil }
func (NoopCache) Set(context.Context, []model.Product, int64) error  { return nil }
func (NoopCache) Invalidate(context.Context) error                   { return nil }

var (
	_ ListingCache = (*RedisCache)(nil)
	_ ListingCache = NoopCache{}
)
