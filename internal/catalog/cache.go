package catalog

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/osse101/CardVault_Go/internal/domain"
)

// CacheSchemaVersion is the current version of the cache schema
// Increment this when the cached data structure changes to auto-invalidate old entries
const CacheSchemaVersion = "1.0"

type cachedCard struct {
	Version string
	Card    *domain.CatalogCard
}

// cardCache is an LRU of catalog rows keyed by every lookup path that found them
type cardCache struct {
	lru *expirable.LRU[string, *cachedCard]
}

func newCardCache(size int, ttl time.Duration) *cardCache {
	return &cardCache{
		lru: expirable.NewLRU[string, *cachedCard](size, nil, ttl),
	}
}

func (c *cardCache) Get(key string) (*domain.CatalogCard, bool) {
	entry, found := c.lru.Get(key)
	if !found {
		return nil, false
	}
	if entry.Version != CacheSchemaVersion {
		c.lru.Remove(key)
		return nil, false
	}
	return entry.Card, true
}

func (c *cardCache) Set(card *domain.CatalogCard, keys ...string) {
	entry := &cachedCard{Version: CacheSchemaVersion, Card: card}
	for _, k := range keys {
		c.lru.Add(k, entry)
	}
}

func (c *cardCache) Len() int {
	return c.lru.Len()
}

func (c *cardCache) Clear() {
	c.lru.Purge()
}
