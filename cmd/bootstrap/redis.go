package bootstrap

import (
	"context"
	"log/slog"

	"storefront-checkout/internal/infra/cache"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/usecase/shared"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var RedisModule = fx.Module("redis",
	fx.Provide(
		NewRedis,
		NewAvailabilityCache,
		NewDeduper,
	),
)

// NewRedis returns nil when Redis is disabled; the cache constructors then
// fall back to no-op implementations.
func NewRedis(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		logger.Info("Redisは無効です。キャッシュと重複排除はスキップされます")
		return nil, nil
	}
	client, err := cache.NewRedisClient(cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func NewAvailabilityCache(client *redis.Client, cfg config.Config) shared.AvailabilityCache {
	if client == nil {
		return cache.NoopAvailabilityCache{}
	}
	return cache.NewAvailabilityCache(client, cfg.Redis.AvailableTTL)
}

func NewDeduper(client *redis.Client, cfg config.Config) shared.Deduper {
	if client == nil {
		return cache.NoopDeduper{}
	}
	return cache.NewDeduper(client, cfg.Redis.DedupTTL)
}
