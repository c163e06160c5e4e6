package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

const redisDialTimeout = 2 * time.Second

// NewRedisClient 创建Redis客户端但不检查连通性，由健康检查器负责启用缓存
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// OpenRedis 初始化与Redis的连接，并用 PING 确认连接可用
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := NewRedisClient(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("无法连接到Redis %s: %w", cfg.Address, err)
	}
	return rdb, nil
}
