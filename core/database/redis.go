package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/gallerybot/core/logger"
)

// ConnectRedis opens a Redis client and waits until the server answers PING.
func ConnectRedis(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	start := time.Now()
	pings, err := waitReady(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}, readyWait, readyInterval)
	attrs := []any{
		slog.String("event", "redis.connect"),
		slog.String("host", cfg.Addr),
		slog.Int("db", cfg.DB),
		slog.Int("attempts", pings),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		_ = client.Close()
		logger.RDS.Error("redis ping failed", append(attrs, logger.Err(err))...)
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	logger.RDS.Info("redis connected", attrs...)
	return client, nil
}
