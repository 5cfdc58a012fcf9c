// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package guild

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MaxCacheTTL caps how stale a cached guild document may get.
const MaxCacheTTL = time.Hour

type cacheEntry struct {
	data    *Data
	expires time.Time
}

// CachedStore decorates a Store with a per-guild TTL cache. Entries are
// keyed by guild id and the projected field list, so partial fetches never
// serve a differently-shaped document. Updates invalidate the guild's
// entries before writing through.
type CachedStore struct {
	inner Store
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry

	now func() time.Time
}

// NewCachedStore wraps the store with a cache. TTLs above MaxCacheTTL are
// clamped; zero or negative TTLs use the maximum.
func NewCachedStore(inner Store, ttl time.Duration) *CachedStore {
	if ttl <= 0 || ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}
	return &CachedStore{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(guildID string, fields []string) string {
	sorted := slices.Clone(fields)
	slices.Sort(sorted)
	return guildID + "\x00" + strings.Join(sorted, ",")
}

// Fetch serves from the cache within the TTL, falling through to the inner
// store on miss. Every call returns its own deep copy: callers hydrate and
// memoize into the bind records, and the cached document must never see
// one caller's state.
func (c *CachedStore) Fetch(ctx context.Context, guildID string, fields ...string) (*Data, error) {
	key := cacheKey(guildID, fields)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.data.Clone(), nil
	}

	data, err := c.inner.Fetch(ctx, guildID, fields...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{data: data, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return data.Clone(), nil
}

// Update invalidates every cached projection of the guild, then writes
// through.
func (c *CachedStore) Update(ctx context.Context, guildID string, set map[string]any, unset []string) error {
	c.mu.Lock()
	prefix := guildID + "\x00"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	return c.inner.Update(ctx, guildID, set, unset)
}
