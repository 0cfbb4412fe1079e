package kaspa

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kaspa402/utxocore/internal/logger"
)

// Cache is a TTL-scoped mapping from (address, network) to the
// enriched UTXO list last fetched for it. It never fails; a miss or an
// expired entry simply returns false. Mutated by Set/Invalidate/Clear/
// Cleanup, and — via expiry — by Get/Has, so every operation takes the
// same mutex; the cache is not on the request hot path once entries
// are warm, so a single exclusive lock is sufficient.
type Cache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
	ttlMS   int64
}

// NewCache creates a cache with the given entry TTL in milliseconds.
func NewCache(ttlMS int64) *Cache {
	return &Cache{
		entries: make(map[string]CacheEntry),
		ttlMS:   ttlMS,
	}
}

// key builds the cache key "{net}:{addr}".
func key(addr string, net Network) string {
	return fmt.Sprintf("%s:%s", net, addr)
}

// Get returns the cached UTXO list for (addr, net), or false if there
// is no entry or the entry has expired. An expired entry is removed as
// a side effect of the read.
func (c *Cache) Get(addr string, net Network) ([]EnrichedUTXO, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(addr, net)
	entry, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if nowMS() > entry.ExpiresAtMS {
		delete(c.entries, k)
		return nil, false
	}
	return entry.UTXOs, true
}

// Has reports whether a live (non-expired) entry exists for (addr,
// net). It triggers the same expiry side-effect as Get.
func (c *Cache) Has(addr string, net Network) bool {
	_, ok := c.Get(addr, net)
	return ok
}

// Set stores utxos for (addr, net), stamping its expiry ttlMS
// milliseconds from now.
func (c *Cache) Set(addr string, net Network, utxos []EnrichedUTXO) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key(addr, net)] = CacheEntry{
		UTXOs:       utxos,
		ExpiresAtMS: nowMS() + c.ttlMS,
	}
}

// Invalidate removes the entry for (addr, net), if any.
func (c *Cache) Invalidate(addr string, net Network) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key(addr, net))
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
}

// Cleanup scans all entries, deletes the expired ones, and returns how
// many were removed.
func (c *Cache) Cleanup() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := nowMS()
	var removed uint32
	for k, entry := range c.entries {
		if now > entry.ExpiresAtMS {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		logger.Debug("cache cleanup removed expired entries", zap.Int("removed", int(removed)))
	}
	return removed
}

// Size returns the number of entries currently stored, expired or not.
func (c *Cache) Size() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint32(len(c.entries))
}

// CacheStats is the result of Stats: the total entry count and how
// many of those are already past expiry.
type CacheStats struct {
	Size    uint32
	Expired uint32
}

// Stats reports the cache's current size and expired-entry count
// without mutating anything.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := nowMS()
	stats := CacheStats{Size: uint32(len(c.entries))}
	for _, entry := range c.entries {
		if now > entry.ExpiresAtMS {
			stats.Expired++
		}
	}
	return stats
}
