package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// ErrRedisNotConfigured is returned by InitRedis when no address variable is set.
var ErrRedisNotConfigured = errors.New("REDIS_ADDR (or REDIS_URI/REDIS_URL) environment variable is not set")

// InitRedis connects the cache and job queue client. Redis is optional; callers fall back on
// ErrRedisNotConfigured.
func InitRedis(ctx context.Context, cfg StoreConfig) error {
	if cfg.RedisAddr == "" {
		return ErrRedisNotConfigured
	}
	opt, err := redisOptions(cfg.RedisAddr)
	if err != nil {
		return err
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}

	RedisClient = client
	return nil
}

// redisOptions accepts either a redis:// URL or a bare host:port.
func redisOptions(addr string) (*redis.Options, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}
