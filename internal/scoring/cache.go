package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Cache stores finite scores per trip id with insert-if-absent semantics.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, tripID string) (float64, bool, error)
	PutIfAbsent(ctx context.Context, tripID string, score float64) error
	Clear(ctx context.Context) error
}

// MemoryCache is a process-local Cache. The zero value is ready to use.
type MemoryCache struct {
	m sync.Map // trip id -> float64
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(_ context.Context, tripID string) (float64, bool, error) {
	v, ok := c.m.Load(tripID)
	if !ok {
		return 0, false, nil
	}
	return v.(float64), true, nil
}

func (c *MemoryCache) PutIfAbsent(_ context.Context, tripID string, score float64) error {
	c.m.LoadOrStore(tripID, score)
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.m.Clear()
	return nil
}

// DefaultRedisKey is the hash RedisCache keeps its scores in.
const DefaultRedisKey = "shiftsim:ride_scores"

// RedisCache shares scores between API replicas through one Redis hash.
type RedisCache struct {
	rdb *redis.Client
	key string
}

// NewRedisCache returns a RedisCache storing scores under key, or
// DefaultRedisKey when key is empty.
func NewRedisCache(rdb *redis.Client, key string) *RedisCache {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCache{rdb: rdb, key: key}
}

// OpenRedis parses a redis:// URL and verifies the server answers.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("scoring.OpenRedis: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("scoring.OpenRedis: ping: %w", err)
	}
	return rdb, nil
}

func (c *RedisCache) Get(ctx context.Context, tripID string) (float64, bool, error) {
	s, err := c.rdb.HGet(ctx, c.key, tripID).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("scoring.RedisCache.Get: %w", err)
	}
	return s, true, nil
}

func (c *RedisCache) PutIfAbsent(ctx context.Context, tripID string, score float64) error {
	if err := c.rdb.HSetNX(ctx, c.key, tripID, score).Err(); err != nil {
		return fmt.Errorf("scoring.RedisCache.PutIfAbsent: %w", err)
	}
	return nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("scoring.RedisCache.Clear: %w", err)
	}
	return nil
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
