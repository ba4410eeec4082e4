package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"storefront-checkout/internal/pkg/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// stock:available:{variant_id} -> available units
	keyAvailable = "stock:available:%s"
	// dedup:{scope}:{id} -> "1"
	keyDedup = "dedup:%s:%s"
)

func NewRedisClient(cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connected successfully", "addr", cfg.Addr)
	return rdb, nil
}

type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func (c *AvailabilityCache) SetAvailable(ctx context.Context, variantID uuid.UUID, available int) error {
	return c.client.Set(ctx, fmt.Sprintf(keyAvailable, variantID), available, c.ttl).Err()
}

func (c *AvailabilityCache) GetAvailable(ctx context.Context, variantID uuid.UUID) (int, bool, error) {
	raw, err := c.client.Get(ctx, fmt.Sprintf(keyAvailable, variantID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt availability entry for %s: %w", variantID, err)
	}
	return n, true, nil
}

type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeduper(client *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

func (d *Deduper) FirstSeen(ctx context.Context, scope, id string) (bool, error) {
	return d.client.SetNX(ctx, fmt.Sprintf(keyDedup, scope, id), "1", d.ttl).Result()
}

func (d *Deduper) Forget(ctx context.Context, scope, id string) error {
	return d.client.Del(ctx, fmt.Sprintf(keyDedup, scope, id)).Err()
}
