package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const docKeyPrefix = "panels:comic:doc:"

// Cached keeps the latest snapshot of each comic in Redis in front of another
// Store. Writes go to the backing store first, then to the cache. Redis
// failures are logged and fall back to the backing store.
type Cached struct {
	Store
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(inner Store, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{Store: inner, rdb: rdb, ttl: ttl, logger: logger}
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func docKey(id string) string { return docKeyPrefix + id }

func (c *Cached) Load(ctx context.Context, id string) ([]byte, error) {
	blob, err := c.rdb.Get(ctx, docKey(id)).Bytes()
	if err == nil {
		return blob, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache read failed", "comic", id, "error", err)
	}

	blob, err = c.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, id, blob)
	return blob, nil
}

func (c *Cached) Save(ctx context.Context, id string, blob []byte) error {
	if err := c.Store.Save(ctx, id, blob); err != nil {
		c.evict(ctx, id)
		return err
	}
	c.put(ctx, id, blob)
	return nil
}

func (c *Cached) Create(ctx context.Context, meta Meta, blob []byte) error {
	if err := c.Store.Create(ctx, meta, blob); err != nil {
		return err
	}
	c.put(ctx, meta.ID, blob)
	return nil
}

func (c *Cached) Delete(ctx context.Context, id string) error {
	c.evict(ctx, id)
	return c.Store.Delete(ctx, id)
}

func (c *Cached) Close() error {
	return errors.Join(c.Store.Close(), c.rdb.Close())
}

func (c *Cached) put(ctx context.Context, id string, blob []byte) {
	if err := c.rdb.Set(ctx, docKey(id), blob, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "comic", id, "error", err)
	}
}

func (c *Cached) evict(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, docKey(id)).Err(); err != nil {
		c.logger.Warn("cache evict failed", "comic", id, "error", err)
	}
}
