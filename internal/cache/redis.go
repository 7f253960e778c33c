// Package cache keeps completions and filter options in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"study-evaluator/internal/schemas"
)

const (
	completionPrefix = "completion:"
	filterOptionsKey = "filter-options"
	filterOptionsTTL = 10 * time.Minute
)

// Redis wraps the Redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis creates a client for addr. It does not dial.
func NewRedis(addr, password string, db int) *Redis {
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})}
}

func (c *Redis) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *Redis) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

func (c *Redis) GetCompletion(ctx context.Context, key string) (string, bool, error) {
	v, err := c.Client.Get(ctx, completionPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Redis) SetCompletion(ctx context.Context, key, text string, ttl time.Duration) error {
	return c.Client.Set(ctx, completionPrefix+key, text, ttl).Err()
}

func (c *Redis) GetFilterOptions(ctx context.Context) (schemas.FilterOptions, bool, error) {
	var opts schemas.FilterOptions
	b, err := c.Client.Get(ctx, filterOptionsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return opts, false, nil
	}
	if err != nil {
		return opts, false, err
	}
	if err := json.Unmarshal(b, &opts); err != nil {
		return opts, false, fmt.Errorf("decode cached filter options: %w", err)
	}
	return opts, true, nil
}

func (c *Redis) SetFilterOptions(ctx context.Context, opts schemas.FilterOptions) error {
	b, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, filterOptionsKey, b, filterOptionsTTL).Err()
}

// InvalidateFilterOptions drops the cached options after new results land.
func (c *Redis) InvalidateFilterOptions(ctx context.Context) error {
	return c.Client.Del(ctx, filterOptionsKey).Err()
}
