package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voice-qa-server/internal/config"
	"voice-qa-server/internal/observability"

	"github.com/redis/go-redis/v9"
)

var ErrNotInitialized = errors.New("redis client not initialized")

// Cache lookups sit on the call path, so reads and writes get short deadlines.
const (
	dialTimeout = 2 * time.Second
	ioTimeout   = 300 * time.Millisecond
)

// Client is a thin go-redis wrapper. A nil *Client is valid and reports
// itself as disabled.
type Client struct {
	rdb    *redis.Client
	logger *observability.Logger
}

// NewClient connects to Redis. It returns a nil client and no error when
// Redis is disabled in cfg.
func NewClient(cfg config.RedisConfig, logger *observability.Logger) (*Client, error) {
	ctx := observability.WithFields(context.Background(),
		observability.Field{Key: "redis_addr", Value: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		observability.Field{Key: "redis_db", Value: cfg.DB},
	)
	if !cfg.Enabled {
		logger.Info(ctx, "answer cache disabled")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info(ctx, "answer cache connected")
	return &Client{rdb: rdb, logger: logger}, nil
}

// NewFromRedis wraps an existing go-redis client.
func NewFromRedis(rdb *redis.Client, logger *observability.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

func (c *Client) IsEnabled() bool {
	return c != nil && c.rdb != nil
}

// Get returns the value under key. A missing key yields redis.Nil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if !c.IsEnabled() {
		return "", ErrNotInitialized
	}
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if !c.IsEnabled() {
		return ErrNotInitialized
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Close() error {
	if !c.IsEnabled() {
		return nil
	}
	return c.rdb.Close()
}
