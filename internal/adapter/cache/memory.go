package cache

import (
	"context"
	"sync"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/logger"
)

type cacheEntry struct {
	rate     *model.AggregatedRate
	storedAt time.Time
}

// MemoryCache memoizes aggregated rates per currency pair, last write wins.
// A zero TTL keeps entries until they are invalidated or cleared.
type MemoryCache struct {
	cacheMap map[model.CurrencyPair]cacheEntry
	mutex    sync.RWMutex
	cacheTTL time.Duration
	now      func() time.Time
	log      *logger.Logger
}

func NewMemoryCache(cacheTTL time.Duration, log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		cacheMap: make(map[model.CurrencyPair]cacheEntry),
		cacheTTL: cacheTTL,
		now:      time.Now,
		log:      log,
	}
}

func (c *MemoryCache) Get(ctx context.Context, pair model.CurrencyPair) (*model.AggregatedRate, bool) {
	c.mutex.RLock()
	entry, found := c.cacheMap[pair]
	c.mutex.RUnlock()

	if !found {
		c.log.Debug("Cache miss", "pair", pair.Key())
		return nil, false
	}

	if c.expired(entry) {
		c.log.Debug("Cache entry expired", "pair", pair.Key())
		return nil, false
	}

	c.log.Debug("Cache hit", "pair", pair.Key())
	return entry.rate, true
}

func (c *MemoryCache) Set(ctx context.Context, rate *model.AggregatedRate) error {
	c.mutex.Lock()
	c.cacheMap[rate.Pair] = cacheEntry{rate: rate, storedAt: c.now()}
	c.mutex.Unlock()

	c.log.Debug("Cache set", "pair", rate.Pair.Key(), "provenance", rate.Provenance)
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, pair model.CurrencyPair) {
	c.mutex.Lock()
	delete(c.cacheMap, pair)
	c.mutex.Unlock()

	c.log.Debug("Cache entry invalidated", "pair", pair.Key())
}

func (c *MemoryCache) Clear(ctx context.Context) {
	c.mutex.Lock()
	count := len(c.cacheMap)
	c.cacheMap = make(map[model.CurrencyPair]cacheEntry)
	c.mutex.Unlock()

	c.log.Info("Cleared rate cache", "count", count)
}

// ClearExpired drops every entry older than the TTL. A no-op without a TTL.
func (c *MemoryCache) ClearExpired(ctx context.Context) int {
	if c.cacheTTL <= 0 {
		return 0
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for pair, entry := range c.cacheMap {
		if c.expired(entry) {
			delete(c.cacheMap, pair)
			removed++
		}
	}

	if removed > 0 {
		c.log.Info("Cleared expired cache entries", "count", removed)
	}
	return removed
}

func (c *MemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cacheMap)
}

func (c *MemoryCache) expired(entry cacheEntry) bool {
	return c.cacheTTL > 0 && c.now().Sub(entry.storedAt) > c.cacheTTL
}
