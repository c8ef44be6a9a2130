package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Hamza-cpp/research-assistant/internal/config"
	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

// ErrMiss is returned by Get when no summary is cached for the key.
var ErrMiss = errors.New("cache miss")

// RedisCache memoizes summary results as JSON strings with a TTL.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

var _ ports.SummaryCache = (*RedisCache)(nil)

// NewRedisClient opens a client from config without contacting the server.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisCache wraps a client. An empty prefix and zero TTL fall back to
// "research-assistant:summary:" and no expiry.
func NewRedisCache(client redis.Cmdable, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "research-assistant:summary:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached summary or ErrMiss.
func (c *RedisCache) Get(ctx context.Context, key string) (domain.SummaryResult, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SummaryResult{}, ErrMiss
	}
	if err != nil {
		return domain.SummaryResult{}, fmt.Errorf("get summary %s: %w", key, err)
	}
	return decode(raw)
}

// Set stores a summary under key.
func (c *RedisCache) Set(ctx context.Context, key string, result domain.SummaryResult) error {
	raw, err := encode(result)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set summary %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

func encode(result domain.SummaryResult) ([]byte, error) {
	if result.KeyConcepts == nil {
		result.KeyConcepts = []string{}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (domain.SummaryResult, error) {
	var result domain.SummaryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.SummaryResult{}, fmt.Errorf("unmarshal summary: %w", err)
	}
	if result.KeyConcepts == nil {
		result.KeyConcepts = []string{}
	}
	return result, nil
}
