package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/hykura1501/e-commerce/internal/logging"
	"github.com/hykura1501/e-commerce/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// ProductCache is a read-through cache in front of the catalog service.
// Cache errors are logged and fall back to the catalog.
type ProductCache struct {
	rdb  *redis.Client
	ttl  time.Duration
	next usecase.ProductCatalog
}

func NewProductCache(rdb *redis.Client, ttl time.Duration, next usecase.ProductCatalog) *ProductCache {
	return &ProductCache{rdb: rdb, ttl: ttl, next: next}
}

func (c *ProductCache) Get(ctx context.Context, productID string) (domain.Product, error) {
	key := "product:" + productID
	log := logging.FromCtx(ctx)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p domain.Product
		if jerr := json.Unmarshal(raw, &p); jerr == nil {
			return p, nil
		}
		log.Warn("drop undecodable product cache entry", "product_id", productID)
	case !errors.Is(err, redis.Nil):
		log.Warn("product cache read failed", "product_id", productID, "err", err)
	}

	p, err := c.next.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if b, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			log.Warn("product cache write failed", "product_id", productID, "err", err)
		}
	}
	return p, nil
}

var _ usecase.ProductCatalog = (*ProductCache)(nil)
