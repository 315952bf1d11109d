// Package itemcache maintains the process-shared item-number → trimmed-item
// mapping, persisted in the property store as numbered shards under a
// manifest. Readers tolerate stale data; writers follow the
// save-manifest-last protocol so a crashed save never leaves a manifest
// pointing at missing shards.
package itemcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/propstore"
)

// DefaultTTL is how long a saved cache stays fresh.
const DefaultTTL = 6 * time.Hour

// shardBudget keeps each shard safely under the store's 100 KB ceiling.
const shardBudget = 90 * 1024

// maxShards bounds the total cache footprint. Refreshes that would exceed
// it are trimmed to the entries that fit, with a warning.
const maxShards = 20

// ErrNotFound is returned when an item number resolves neither from the
// cache nor from a refresh.
var ErrNotFound = errors.New("item not found")

// Entry is the trimmed item record kept per number. URLs and secondary
// identifiers are dropped to fit the shard budget.
type Entry struct {
	GUID         string `json:"guid"`
	Number       string `json:"number"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Revision     string `json:"revision,omitempty"`
	Assembly     bool   `json:"assembly,omitempty"`
	AssemblyType string `json:"assemblyType,omitempty"`
	Category     string `json:"category,omitempty"`
	Lifecycle    string `json:"lifecycle,omitempty"`
}

// Trim projects a full item onto the cached schema.
func Trim(item plm.Item) Entry {
	return Entry{
		GUID:         item.GUID,
		Number:       item.Number,
		Name:         item.Name,
		Description:  item.Description,
		Revision:     item.Revision,
		Assembly:     item.Assembly,
		AssemblyType: item.AssemblyType,
		Category:     item.Category.Name,
		Lifecycle:    item.Lifecycle.Name,
	}
}

// manifest is the cache header. Count always equals the sum of entry
// counts across the shards it names.
type manifest struct {
	Shards  int   `json:"shards"`
	Count   int   `json:"count"`
	SavedAt int64 `json:"savedAt"`
}

// Cache is the sharded item cache.
type Cache struct {
	store  propstore.Store
	client *plm.Client
	ttl    time.Duration

	mu sync.Mutex
}

// New creates a cache over the property store. client may be nil for
// offline use (Load/Save/Invalidate only).
func New(store propstore.Store, client *plm.Client) *Cache {
	return &Cache{store: store, client: client, ttl: DefaultTTL}
}

// WithTTL overrides the freshness window.
func (c *Cache) WithTTL(ttl time.Duration) *Cache {
	c.ttl = ttl
	return c
}

// Load reads the manifest and merges all shards. Any parse error, a
// missing shard, or a stale manifest reads as a miss.
func (c *Cache) Load() (map[string]Entry, bool) {
	raw, err := c.store.Get(propstore.KeyCacheManifest)
	if err != nil {
		return nil, false
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil || m.Shards <= 0 {
		return nil, false
	}
	if c.ttl > 0 && time.Since(time.Unix(m.SavedAt, 0)) >= c.ttl {
		logger.Debug("item cache stale", logger.KeyShardCount, m.Shards)
		return nil, false
	}

	entries := make(map[string]Entry, m.Count)
	for i := 0; i < m.Shards; i++ {
		data, err := c.store.Get(propstore.ShardKey(propstore.KeyCacheShard, i))
		if err != nil {
			return nil, false
		}
		var shard map[string]Entry
		if err := json.Unmarshal(data, &shard); err != nil {
			return nil, false
		}
		for number, entry := range shard {
			entries[number] = entry
		}
	}
	return entries, true
}

// Save splits entries into shards by estimated serialized size, writes
// every shard, deletes leftover shards from a previous larger save, and
// overwrites the manifest last.
func (c *Cache) Save(entries map[string]Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(entries)
}

func (c *Cache) saveLocked(entries map[string]Entry) error {
	numbers := make([]string, 0, len(entries))
	for number := range entries {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)

	var shards []map[string]Entry
	current := make(map[string]Entry)
	currentSize := 2 // braces

	trimmed := false
	count := 0
	for _, number := range numbers {
		entry := entries[number]
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		entrySize := len(data) + len(number) + 4 // quotes, colon, comma

		if currentSize+entrySize > shardBudget {
			shards = append(shards, current)
			if len(shards) >= maxShards {
				trimmed = true
				break
			}
			current = make(map[string]Entry)
			currentSize = 2
		}
		current[number] = entry
		currentSize += entrySize
		count++
	}
	if !trimmed && len(current) > 0 || len(shards) == 0 {
		shards = append(shards, current)
	}
	if trimmed {
		logger.Warn("item cache exceeds envelope, trimming",
			logger.KeyCacheSize, len(entries), "kept", count)
	}

	for i, shard := range shards {
		data, err := json.Marshal(shard)
		if err != nil {
			return err
		}
		if err := c.store.Set(propstore.ShardKey(propstore.KeyCacheShard, i), data); err != nil {
			return fmt.Errorf("failed to write cache shard %d: %w", i, err)
		}
	}

	// Remove shards beyond the new count before the manifest shrinks.
	stale, _ := c.store.Keys(propstore.KeyCacheShard + "_")
	for _, key := range stale {
		if i, ok := shardIndex(key); ok && i >= len(shards) {
			_ = c.store.Delete(key)
		}
	}

	m := manifest{Shards: len(shards), Count: count, SavedAt: time.Now().Unix()}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := c.store.Set(propstore.KeyCacheManifest, data); err != nil {
		return fmt.Errorf("failed to write cache manifest: %w", err)
	}

	logger.Debug("item cache saved",
		logger.KeyShardCount, m.Shards, logger.KeyCacheSize, m.Count)
	return nil
}

// shardIndex parses the numeric suffix of a shard key. The manifest key
// shares the family prefix and must never be treated as a shard.
func shardIndex(key string) (int, bool) {
	rest := strings.TrimPrefix(key, propstore.KeyCacheShard+"_")
	if rest == key {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Invalidate deletes the manifest and all shards.
func (c *Cache) Invalidate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(propstore.KeyCacheManifest); err != nil {
		return err
	}
	keys, err := c.store.Keys(propstore.KeyCacheShard + "_")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Manifest returns the stored header for inspection, or false.
func (c *Cache) Manifest() (shards, count int, savedAt time.Time, ok bool) {
	raw, err := c.store.Get(propstore.KeyCacheManifest)
	if err != nil {
		return 0, 0, time.Time{}, false
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return 0, 0, time.Time{}, false
	}
	return m.Shards, m.Count, time.Unix(m.SavedAt, 0), true
}
