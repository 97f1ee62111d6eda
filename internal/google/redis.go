package google

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nubip/schedsync/internal/config"
)

// ConnectRedis opens a client for the token store and checks it answers.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewTokenProvider builds the token store selected by cfg.
func NewTokenProvider(ctx context.Context, cfg *config.Config) (TokenProvider, func() error, error) {
	if cfg.Google.TokenStore != config.TokenStoreRedis {
		return NewFileTokenProvider(cfg.Google.TokenDir), func() error { return nil }, nil
	}
	client, err := ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return NewRedisTokenProvider(client, cfg.Redis.KeyPrefix), client.Close, nil
}
