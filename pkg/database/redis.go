package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"nursing-archive-go/pkg/log"
)

// NewRedis 创建 Redis 客户端并验证连通性，返回注入用的 *redis.Client。
func NewRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	log.Info("Redis 客户端连接成功")
	return rdb, nil
}
