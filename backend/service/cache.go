package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/redis/go-redis/v9"
)

// BlobCache keeps downloaded source files between fetches.
// Implementations fail open: errors are logged and reported as a miss.
type BlobCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
}

const sourceCachePrefix = "contractvigency:source:"

// SourceCache is a redis backed BlobCache.
type SourceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSourceCache returns nil when no redis address is configured.
func NewSourceCache(cfg config.RedisConfig, ttl time.Duration) *SourceCache {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &SourceCache{rdb: rdb, ttl: ttl}
}

// SourceCacheKey derives the cache key for a source URL.
func SourceCacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return sourceCachePrefix + hex.EncodeToString(sum[:])
}

func (c *SourceCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("source cache read failed, fetching from origin", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (c *SourceCache) Set(ctx context.Context, key string, data []byte) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("source cache write failed", "key", key, "error", err)
	}
}

// Ping checks connectivity; used at startup to warn early.
func (c *SourceCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *SourceCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
