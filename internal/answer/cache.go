package answer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	redisclient "voice-qa-server/internal/clients/redis"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "answer:"

// CacheKey normalizes a question so trivially different transcriptions of
// the same question share an entry.
func CacheKey(question string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	normalized = strings.TrimRight(normalized, "?.! ")
	sum := sha256.Sum256([]byte(normalized))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (NoopCache) Set(context.Context, string, string, time.Duration) error { return nil }

// RedisCache stores answers in Redis.
type RedisCache struct {
	client *redisclient.Client
}

// NewRedisCache returns a Redis-backed cache, or a NoopCache when the client
// is disabled.
func NewRedisCache(client *redisclient.Client) Cache {
	if !client.IsEnabled() {
		return NoopCache{}
	}
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl)
}
