package itemcache

import (
	"context"
	"fmt"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/metrics"
	"github.com/rackworks/bomctl/pkg/plm"
)

// Refresh pulls the full workspace item list, rebuilds the cache and
// persists it.
func (c *Cache) Refresh(ctx context.Context) (map[string]Entry, error) {
	if c.client == nil {
		return nil, fmt.Errorf("no client configured for cache refresh")
	}

	items, err := c.client.GetAllItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh item cache: %w", err)
	}

	entries := make(map[string]Entry, len(items))
	for _, item := range items {
		if item.Number == "" {
			continue
		}
		entries[item.Number] = Trim(item)
	}

	if err := c.Save(entries); err != nil {
		return nil, err
	}
	metrics.IncCacheRefresh()
	logger.Info("item cache refreshed", logger.KeyCacheSize, len(entries))
	return entries, nil
}

// Prewarm returns the cached entries, refreshing once when the cache is
// missing or stale.
func (c *Cache) Prewarm(ctx context.Context) (map[string]Entry, error) {
	if entries, ok := c.Load(); ok {
		metrics.IncCacheHit()
		return entries, nil
	}
	metrics.IncCacheMiss()
	return c.Refresh(ctx)
}

// LookupNumber resolves an item number. A miss on a fresh cache triggers
// exactly one refresh before giving up with ErrNotFound, so an item
// created moments ago in the PLM still resolves.
func (c *Cache) LookupNumber(ctx context.Context, number string) (Entry, error) {
	entries, ok := c.Load()
	if ok {
		if entry, found := entries[number]; found {
			metrics.IncCacheHit()
			return entry, nil
		}
	}
	metrics.IncCacheMiss()

	entries, err := c.Refresh(ctx)
	if err != nil {
		return Entry{}, err
	}
	if entry, found := entries[number]; found {
		return entry, nil
	}
	return Entry{}, fmt.Errorf("item %s: %w", number, ErrNotFound)
}

// Add inserts or replaces a single entry in the persisted cache. A missing
// or stale cache is left alone; the next Prewarm rebuilds it anyway.
func (c *Cache) Add(item plm.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, ok := c.Load()
	if !ok {
		return nil
	}
	entries[item.Number] = Trim(item)
	return c.saveLocked(entries)
}

// Evict removes one number from the persisted cache.
func (c *Cache) Evict(number string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, ok := c.Load()
	if !ok {
		return nil
	}
	if _, found := entries[number]; !found {
		return nil
	}
	delete(entries, number)
	return c.saveLocked(entries)
}
