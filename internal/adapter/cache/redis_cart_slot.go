package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/hykura1501/e-commerce/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisCartSlots hands out one anonymous-cart slot per visitor session.
type RedisCartSlots struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCartSlots(rdb *redis.Client, ttl time.Duration) *RedisCartSlots {
	return &RedisCartSlots{rdb: rdb, ttl: ttl}
}

func (s *RedisCartSlots) For(sessionID string) *RedisCartSlot {
	return &RedisCartSlot{rdb: s.rdb, ttl: s.ttl, key: "cart:local:" + sessionID}
}

// RedisCartSlot stores the whole line list as one JSON value. Every write
// replaces the value and refreshes its expiry.
type RedisCartSlot struct {
	rdb *redis.Client
	ttl time.Duration
	key string
}

func (s *RedisCartSlot) Read(ctx context.Context) ([]domain.CartItem, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	var items []domain.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return items, nil
}

func (s *RedisCartSlot) Write(ctx context.Context, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, b, s.ttl).Err()
}

func (s *RedisCartSlot) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}

var _ usecase.LocalStore = (*RedisCartSlot)(nil)
