// Package cache provides the Redis-backed read cache for the game system
// registry and the type availability matrix.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"codex/api/internal/store"
	"github.com/redis/go-redis/v9"
)

// AvailabilityCache caches registry and matrix rows with a short TTL. A miss
// or any Redis error falls through to Postgres; the cache is never the
// source of truth.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection before returning.
func New(redisURL string, ttl time.Duration) (*AvailabilityCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient builds a cache from an existing Redis client.
func NewWithClient(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &AvailabilityCache{client: client, ttl: ttl}
}

func systemKey(id string) string {
	return "availability:system:" + id
}

func typeKey(documentType, gameSystemID string) string {
	return "availability:type:" + gameSystemID + ":" + documentType
}

func (c *AvailabilityCache) GetSystem(ctx context.Context, id string) (store.GameSystem, bool) {
	var system store.GameSystem
	if !c.get(ctx, systemKey(id), &system) {
		return store.GameSystem{}, false
	}
	return system, true
}

func (c *AvailabilityCache) SetSystem(ctx context.Context, system store.GameSystem) {
	c.set(ctx, systemKey(system.ID), system)
}

func (c *AvailabilityCache) InvalidateSystem(ctx context.Context, id string) {
	if err := c.client.Del(ctx, systemKey(id)).Err(); err != nil {
		log.Printf("cache: invalidate %s: %v", systemKey(id), err)
	}
}

func (c *AvailabilityCache) GetType(ctx context.Context, documentType, gameSystemID string) (store.TypeAvailability, bool) {
	var row store.TypeAvailability
	if !c.get(ctx, typeKey(documentType, gameSystemID), &row) {
		return store.TypeAvailability{}, false
	}
	return row, true
}

func (c *AvailabilityCache) SetType(ctx context.Context, row store.TypeAvailability) {
	c.set(ctx, typeKey(row.DocumentType, row.GameSystemID), row)
}

func (c *AvailabilityCache) InvalidateType(ctx context.Context, documentType, gameSystemID string) {
	if err := c.client.Del(ctx, typeKey(documentType, gameSystemID)).Err(); err != nil {
		log.Printf("cache: invalidate %s: %v", typeKey(documentType, gameSystemID), err)
	}
}

func (c *AvailabilityCache) get(ctx context.Context, key string, target any) bool {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		log.Printf("cache: get %s: %v", key, err)
		return false
	}
	if err := json.Unmarshal([]byte(data), target); err != nil {
		log.Printf("cache: decode %s: %v", key, err)
		return false
	}
	return true
}

func (c *AvailabilityCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
}
