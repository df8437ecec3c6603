package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/danmechanic/glucid/internal/config"
	"github.com/danmechanic/glucid/internal/health"
	"github.com/danmechanic/glucid/internal/state"
	redisstorage "github.com/danmechanic/glucid/internal/storage/redis"
)

// NewRedisClient 创建Redis客户端；未启用时返回 nil
func NewRedisClient(ctx context.Context, cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Debug("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))
	return client, nil
}

// NewStateStore 有 Redis 时使用 RedisStore，否则内存存储
func NewStateStore(client *redisstorage.Client) state.Store {
	if client == nil {
		return state.NewMemoryStore()
	}
	return state.NewRedisStore(client.Client, client.Prefix())
}

// AddRedisChecker 添加Redis检查器到聚合器
func AddRedisChecker(aggregator *health.Aggregator, client *redisstorage.Client) {
	if client != nil {
		aggregator.AddChecker(health.NewRedisChecker(client))
	}
}
