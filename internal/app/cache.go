package app

import (
	"github.com/rafaelleal24/inventory/internal/adapters/config"
	"github.com/rafaelleal24/inventory/internal/adapters/http/middleware"
	"github.com/rafaelleal24/inventory/internal/adapters/memcache"
	"github.com/rafaelleal24/inventory/internal/adapters/redis"
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/rafaelleal24/inventory/internal/core/service"
)

const (
	orderCachePrefix       = "order-cache"
	idempotencyCachePrefix = "idempotency-cache"
)

type caches struct {
	orders      port.CachePort[domain.Order]
	idempotency port.CachePort[service.IdempotencyEntry[domain.Order]]
	rateLimiter middleware.RateLimiter
}

func newRedisCaches(client *redis.Client) *caches {
	return &caches{
		orders:      redis.NewCache[domain.Order](client, orderCachePrefix),
		idempotency: redis.NewCache[service.IdempotencyEntry[domain.Order]](client, idempotencyCachePrefix),
		rateLimiter: redis.NewRateLimiter(client),
	}
}

// newLocalCaches keeps everything in process. Idempotency and rate limits then
// only hold per replica. Idempotency keys get their own bound so order reads
// cannot push an in-flight key out.
func newLocalCaches(cfg config.CacheConfig) (*caches, error) {
	orders, err := memcache.NewCache[domain.Order](cfg.LocalSize)
	if err != nil {
		return nil, err
	}
	idempotency, err := memcache.NewCache[service.IdempotencyEntry[domain.Order]](cfg.IdempotencySize)
	if err != nil {
		return nil, err
	}
	rateLimiter, err := memcache.NewRateLimiter(cfg.LocalSize)
	if err != nil {
		return nil, err
	}
	return &caches{orders: orders, idempotency: idempotency, rateLimiter: rateLimiter}, nil
}
