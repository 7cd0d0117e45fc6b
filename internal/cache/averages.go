package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultAverageTTL    = 240 * time.Hour
	defaultAveragePrefix = "avg_salary"
)

// AverageRecord is the last average salary computed for a table.
type AverageRecord struct {
	Value      float64   `json:"value"`
	ComputedAt time.Time `json:"computed_at"`
}

// AverageCache remembers the previous run's average so a run can report the change.
type AverageCache interface {
	Get(ctx context.Context, table string) (*AverageRecord, bool, error)
	Set(ctx context.Context, table string, record AverageRecord) error
	Close() error
}

type redisAverageCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisAverageCache builds a cache keyed by the fully qualified table name.
func NewRedisAverageCache(addr, password string, db int, ttl time.Duration, prefix string) (AverageCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return newRedisAverageCache(client, ttl, prefix), nil
}

func newRedisAverageCache(client *redis.Client, ttl time.Duration, prefix string) *redisAverageCache {
	if ttl <= 0 {
		ttl = defaultAverageTTL
	}
	if prefix == "" {
		prefix = defaultAveragePrefix
	}
	return &redisAverageCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *redisAverageCache) key(table string) string {
	return fmt.Sprintf("%s:%s", c.prefix, table)
}

func (c *redisAverageCache) Get(ctx context.Context, table string) (*AverageRecord, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, c.key(table)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec AverageRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("decode cached average: %w", err)
	}
	return &rec, true, nil
}

func (c *redisAverageCache) Set(ctx context.Context, table string, record AverageRecord) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(table), payload, c.ttl).Err()
}

func (c *redisAverageCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
