package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ndmitriev/shotvalue/internal/pkg/config"
)

// Cache holds raw upstream payloads in Redis with a TTL so re-runs inside
// the TTL skip the network (and the proxy pool) entirely. Cache failures are
// soft: a broken cache degrades to refetching, never to a pipeline error.
// A nil *Cache is a no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(cfg *config.Redis) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

func payloadKey(kind, id string) string {
	return fmt.Sprintf("payload:%s:%s", kind, id)
}

// GetPayload returns a cached payload, or nil on miss or cache trouble.
func (c *Cache) GetPayload(ctx context.Context, kind, id string) json.RawMessage {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, payloadKey(kind, id)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		slog.Warn("Redis get failed", "kind", kind, "id", id, "error", err)
		return nil
	}
	if !json.Valid(data) {
		return nil
	}
	return json.RawMessage(data)
}

// StorePayload caches a payload with the configured TTL.
func (c *Cache) StorePayload(ctx context.Context, kind, id string, payload json.RawMessage) {
	if c == nil || len(payload) == 0 {
		return
	}
	if err := c.client.Set(ctx, payloadKey(kind, id), []byte(payload), c.ttl).Err(); err != nil {
		slog.Warn("Redis set failed", "kind", kind, "id", id, "error", err)
	}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
