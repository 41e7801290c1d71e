package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Connect parses a redis:// URL and verifies connectivity.
func Connect(ctx context.Context, rawURL string) (*goredis.Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// ConnectOptional dials Redis when rawURL is set. An empty or unreachable URL
// is logged and yields a nil client so callers can fall back.
func ConnectOptional(ctx context.Context, rawURL string, logger *slog.Logger) (*goredis.Client, func()) {
	if strings.TrimSpace(rawURL) == "" {
		logger.Info("REDIS_URL not set, idempotency keys fall back to the primary store")
		return nil, func() {}
	}
	client, err := Connect(ctx, rawURL)
	if err != nil {
		logger.Warn("failed to connect to redis, idempotency keys fall back to the primary store", slog.String("error", err.Error()))
		return nil, func() {}
	}
	logger.Info("redis connection established")
	return client, func() { _ = client.Close() }
}
