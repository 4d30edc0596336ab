package db

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens the client used for order locks and OTP codes.
// It fails fast when the server does not answer a ping.
func ConnectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
