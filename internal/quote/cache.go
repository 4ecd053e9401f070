package quote

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const defaultCacheTTL = 30 * time.Second

type cacheEntry struct {
	price     decimal.Decimal
	expiresAt time.Time
}

type priceCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newPriceCache(ttl time.Duration) *priceCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &priceCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *priceCache) get(ticker string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[ticker]
	if !ok || time.Now().After(entry.expiresAt) {
		return decimal.Zero, false
	}
	return entry.price, true
}

func (c *priceCache) set(ticker string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[ticker] = cacheEntry{
		price:     price,
		expiresAt: time.Now().Add(c.ttl),
	}
}
