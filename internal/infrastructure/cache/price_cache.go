package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/period"
	"stockledger/pkg/logger"
)

const (
	priceKeyPrefix  = "stockledger:price:"
	noPriceMarker   = "-"
	defaultPriceTTL = 6 * time.Hour
)

// KV is the subset of the Redis API the price cache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// PriceCache is a read-through Redis cache in front of a period.PriceReader.
// Missing prices are cached too, so a delivery of an unpriced item does not
// hit the database on every line. Redis failures fall through to the source.
type PriceCache struct {
	kv     KV
	source period.PriceReader
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// PriceCacheOption configures a PriceCache.
type PriceCacheOption func(*PriceCache)

// WithPriceTTL sets the expiration of cached prices.
func WithPriceTTL(ttl time.Duration) PriceCacheOption {
	return func(c *PriceCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewPriceCache wraps source with a Redis cache.
func NewPriceCache(kv KV, source period.PriceReader, opts ...PriceCacheOption) *PriceCache {
	c := &PriceCache{
		kv:     kv,
		source: source,
		ttl:    defaultPriceTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ period.PriceReader = (*PriceCache)(nil)

func priceKey(periodID, itemID id.ID) string {
	return priceKeyPrefix + periodID.String() + ":" + itemID.String()
}

// GetPrice returns the locked price of itemID in periodID, or nil.
func (c *PriceCache) GetPrice(ctx context.Context, periodID, itemID id.ID) (*period.LockedPrice, error) {
	key := priceKey(periodID, itemID)

	raw, err := c.kv.Get(ctx, key).Result()
	switch {
	case err == nil:
		if price, ok := decodePrice(ctx, key, raw); ok {
			c.hits.Add(1)
			return price, nil
		}
	case errors.Is(err, redis.Nil):
	default:
		logger.Warn(ctx, "price cache read failed", "key", key, "error", err)
	}

	c.misses.Add(1)

	price, err := c.source.GetPrice(ctx, periodID, itemID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, price)
	return price, nil
}

func (c *PriceCache) store(ctx context.Context, key string, price *period.LockedPrice) {
	value := noPriceMarker
	if price != nil {
		data, err := json.Marshal(price)
		if err != nil {
			logger.Warn(ctx, "price cache encode failed", "key", key, "error", err)
			return
		}
		value = string(data)
	}

	if err := c.kv.Set(ctx, key, value, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "price cache write failed", "key", key, "error", err)
	}
}

// decodePrice returns ok=false when the cached value is unreadable.
func decodePrice(ctx context.Context, key, raw string) (*period.LockedPrice, bool) {
	if raw == noPriceMarker {
		return nil, true
	}
	var price period.LockedPrice
	if err := json.Unmarshal([]byte(raw), &price); err != nil {
		logger.Warn(ctx, "price cache entry corrupted", "key", key, "error", err)
		return nil, false
	}
	return &price, true
}

// Stats returns cache statistics.
func (c *PriceCache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// String implements fmt.Stringer.
func (s CacheStats) String() string {
	return fmt.Sprintf("hits=%d misses=%d", s.Hits, s.Misses)
}
