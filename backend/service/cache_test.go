package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/stretchr/testify/assert"
)

func TestNewSourceCacheDisabled(t *testing.T) {
	cache := NewSourceCache(config.RedisConfig{}, time.Hour)
	assert.Nil(t, cache)

	// A nil cache always misses and never panics.
	data, ok := cache.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Nil(t, data)
	cache.Set(context.Background(), "k", []byte("v"))
	assert.NoError(t, cache.Ping(context.Background()))
	assert.NoError(t, cache.Close())
}

func TestSourceCacheKey(t *testing.T) {
	a := SourceCacheKey("https://example.com/a.xlsx")
	b := SourceCacheKey("https://example.com/b.xlsx")

	assert.True(t, strings.HasPrefix(a, sourceCachePrefix))
	assert.Len(t, strings.TrimPrefix(a, sourceCachePrefix), 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, SourceCacheKey("https://example.com/a.xlsx"))
}

func TestSourceCacheFailsOpen(t *testing.T) {
	// Nothing listens on port 1.
	cache := NewSourceCache(config.RedisConfig{Addr: "127.0.0.1:1"}, time.Hour)
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, ok := cache.Get(ctx, SourceCacheKey("x"))
	assert.False(t, ok)
	cache.Set(ctx, SourceCacheKey("x"), []byte("data"))
	assert.Error(t, cache.Ping(ctx))
}
