package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lugares/internal/domain/entity"
	"lugares/internal/infrastructure/metrics"
)

const (
	snapshotsKey  = "restaurants:snapshots"
	generationKey = "restaurants:generation"
)

// NewRedisClient creates a Redis client and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// RedisSnapshotCache keeps the whole normalized restaurant list under one key.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisSnapshotCache) GetAll(ctx context.Context) ([]entity.RestaurantSnapshot, bool, error) {
	data, err := c.client.Get(ctx, snapshotsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheLookup(false)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get snapshots: %w", err)
	}

	var snapshots []entity.RestaurantSnapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, false, fmt.Errorf("unmarshal snapshots: %w", err)
	}

	metrics.RecordCacheLookup(true)
	return snapshots, true, nil
}

// Generation returns the current invalidation counter, 0 before the first Invalidate.
func (c *RedisSnapshotCache) Generation(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return generation, nil
}

// SetAll writes the list only if the generation still matches. The generation
// key is watched so an Invalidate racing the write aborts it.
func (c *RedisSnapshotCache) SetAll(ctx context.Context, generation int64, snapshots []entity.RestaurantSnapshot) (bool, error) {
	data, err := json.Marshal(snapshots)
	if err != nil {
		return false, fmt.Errorf("marshal snapshots: %w", err)
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != generation {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapshotsKey, data, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, generationKey)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis set snapshots: %w", err)
	}
	return stored, nil
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, snapshotsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate snapshots: %w", err)
	}
	return nil
}

// NoopSnapshotCache always misses. Used when Redis is not configured.
type NoopSnapshotCache struct{}

func (NoopSnapshotCache) GetAll(context.Context) ([]entity.RestaurantSnapshot, bool, error) {
	return nil, false, nil
}

func (NoopSnapshotCache) Generation(context.Context) (int64, error) {
	return 0, nil
}

func (NoopSnapshotCache) SetAll(context.Context, int64, []entity.RestaurantSnapshot) (bool, error) {
	return false, nil
}

func (NoopSnapshotCache) Invalidate(context.Context) error {
	return nil
}
