// Package cachesvc implements core.Cache in memory and on redis.
package cachesvc

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/trezcool/council/core"
)

const (
	memoryCacheSize = 4096
	// memoryCacheTTL bounds every entry, Set may ask for less.
	memoryCacheTTL = time.Hour
)

type memoryEntry struct {
	val       []byte
	expiresAt time.Time // zero: memoryCacheTTL
}

type memoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

var _ core.Cache = (*memoryCache)(nil)

// NewMemoryCache is used when no redis URL is configured.
func NewMemoryCache() core.Cache {
	return newMemoryCache(memoryCacheSize, time.Now)
}

func newMemoryCache(size int, now func() time.Time) *memoryCache {
	return &memoryCache{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, memoryCacheTTL),
		now: now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.val...), true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	e := memoryEntry{val: append([]byte(nil), val...)}
	if ttl > 0 && ttl < memoryCacheTTL {
		e.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.lru.Remove(k)
	}
	return nil
}

func (c *memoryCache) DeletePrefix(_ context.Context, prefix string) error {
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
	return nil
}
