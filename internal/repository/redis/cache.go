// Package redis caches computed heatmap snapshots in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/splax/heatlens/internal/domain"
	"github.com/splax/heatlens/internal/repository"
)

const (
	connectTimeout = 2 * time.Second
	opTimeout      = 250 * time.Millisecond
)

// Cache stores snapshots as JSON values with a TTL.
type Cache struct {
	client  goredis.UniversalClient
	timeout time.Duration
}

var _ repository.SnapshotCache = (*Cache)(nil)

// New connects to addr and verifies the connection.
func New(addr, password string, db int) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client goredis.UniversalClient) *Cache {
	return &Cache{client: client, timeout: opTimeout}
}

// GetSnapshot returns the cached snapshot for key; ok is false on a miss.
func (c *Cache) GetSnapshot(ctx context.Context, key string) (domain.HeatmapSnapshot, bool, error) {
	snap, err := c.load(ctx, key)
	if errors.Is(err, repository.ErrCacheMiss) {
		return domain.HeatmapSnapshot{}, false, nil
	}
	if err != nil {
		return domain.HeatmapSnapshot{}, false, err
	}
	return snap, true, nil
}

// SetSnapshot stores snap under key for ttl.
func (c *Cache) SetSnapshot(ctx context.Context, key string, snap domain.HeatmapSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) load(ctx context.Context, key string) (domain.HeatmapSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.HeatmapSnapshot{}, repository.ErrCacheMiss
	}
	if err != nil {
		return domain.HeatmapSnapshot{}, fmt.Errorf("redis get: %w", err)
	}
	var snap domain.HeatmapSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.HeatmapSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
