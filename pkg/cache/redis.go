package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-teacher-portal/pkg/config"
)

// NewRedis returns a Redis client for the grade list cache. A nil client is returned when caching
// is disabled so repositories fall back to cache misses.
func NewRedis(cfg config.RedisConfig, grades config.GradesConfig) (*redis.Client, error) {
	if !grades.CacheEnabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", client.Options().Addr, err)
	}
	return client, nil
}
