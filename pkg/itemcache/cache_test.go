package itemcache

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/propstore"
)

func TestTrim(t *testing.T) {
	entry := Trim(plm.Item{
		GUID:         "g-1",
		Number:       "SRV-1",
		Name:         "Server",
		Revision:     "A",
		Assembly:     true,
		AssemblyType: "topLevel",
		Category:     plm.Category{GUID: "cat-1", Name: "Server"},
		Lifecycle:    plm.LifecyclePhase{Name: "Production"},
	})
	assert.Equal(t, "g-1", entry.GUID)
	assert.Equal(t, "Server", entry.Category)
	assert.Equal(t, "Production", entry.Lifecycle)
	assert.True(t, entry.Assembly)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := propstore.NewMemory()
	c := New(store, nil)

	entries := map[string]Entry{
		"SRV-1": {GUID: "g-1", Number: "SRV-1", Name: "Server"},
		"PDU-1": {GUID: "g-2", Number: "PDU-1", Name: "PDU"},
	}
	require.NoError(t, c.Save(entries))

	loaded, ok := c.Load()
	require.True(t, ok)
	assert.Equal(t, entries, loaded)

	shards, count, _, ok := c.Manifest()
	require.True(t, ok)
	assert.Equal(t, 1, shards)
	assert.Equal(t, 2, count)
}

func TestSaveSplitsLargeSets(t *testing.T) {
	store := propstore.NewMemory()
	c := New(store, nil)

	// ~2 KB per entry forces several shards under the 90 KB budget
	filler := strings.Repeat("x", 2048)
	entries := make(map[string]Entry, 200)
	for i := 0; i < 200; i++ {
		number := fmt.Sprintf("ITEM-%03d", i)
		entries[number] = Entry{GUID: fmt.Sprintf("g-%d", i), Number: number, Description: filler}
	}
	require.NoError(t, c.Save(entries))

	shards, count, _, ok := c.Manifest()
	require.True(t, ok)
	assert.Greater(t, shards, 1)
	assert.Equal(t, 200, count)

	// every shard must fit the store's value ceiling
	for i := 0; i < shards; i++ {
		data, err := store.Get(propstore.ShardKey(propstore.KeyCacheShard, i))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(data), propstore.MaxValueSize)
	}

	loaded, ok := c.Load()
	require.True(t, ok)
	assert.Len(t, loaded, 200)
}

func TestSaveShrinksShardSet(t *testing.T) {
	store := propstore.NewMemory()
	c := New(store, nil)

	filler := strings.Repeat("x", 2048)
	big := make(map[string]Entry, 200)
	for i := 0; i < 200; i++ {
		number := fmt.Sprintf("ITEM-%03d", i)
		big[number] = Entry{Number: number, Description: filler}
	}
	require.NoError(t, c.Save(big))

	require.NoError(t, c.Save(map[string]Entry{"SRV-1": {Number: "SRV-1"}}))

	// the manifest shares the key prefix; the sweep must remove every
	// stale shard and nothing else
	keys, err := store.Keys(propstore.KeyCacheShard + "_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		propstore.ShardKey(propstore.KeyCacheShard, 0),
		propstore.KeyCacheManifest,
	}, keys)

	loaded, ok := c.Load()
	require.True(t, ok)
	assert.Len(t, loaded, 1)
}

func TestSaveSurvivesForeignPrefixKeys(t *testing.T) {
	store := propstore.NewMemory()
	c := New(store, nil)
	require.NoError(t, store.Set(propstore.KeyCacheShard+"_note", []byte("keep")))

	require.NoError(t, c.Save(map[string]Entry{"SRV-1": {Number: "SRV-1"}}))

	val, err := store.Get(propstore.KeyCacheShard + "_note")
	require.NoError(t, err)
	assert.Equal(t, "keep", string(val))

	_, ok := c.Load()
	assert.True(t, ok)
}

func TestLoadStaleManifestIsMiss(t *testing.T) {
	store := propstore.NewMemory()
	c := New(store, nil)
	require.NoError(t, c.Save(map[string]Entry{"SRV-1": {Number: "SRV-1"}}))

	// rewrite the manifest with an old timestamp
	old, err := json.Marshal(manifest{Shards: 1, Count: 1, SavedAt: time.Now().Add(-7 * time.Hour).Unix()})
	require.NoError(t, err)
	require.NoError(t, store.Set(propstore.KeyCacheManifest, old))

	_, ok := c.Load()
	assert.False(t, ok)
}

func TestLoadMissingShardIsMiss(t *testing.T) {
	store := propstore.NewMemory()
	c := New(store, nil)
	require.NoError(t, c.Save(map[string]Entry{"SRV-1": {Number: "SRV-1"}}))
	require.NoError(t, store.Delete(propstore.ShardKey(propstore.KeyCacheShard, 0)))

	_, ok := c.Load()
	assert.False(t, ok)
}

func TestLoadCorruptManifestIsMiss(t *testing.T) {
	store := propstore.NewMemory()
	require.NoError(t, store.Set(propstore.KeyCacheManifest, []byte("{torn")))

	_, ok := New(store, nil).Load()
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	store := propstore.NewMemory()
	c := New(store, nil)
	require.NoError(t, c.Save(map[string]Entry{"SRV-1": {Number: "SRV-1"}}))
	require.NoError(t, c.Invalidate())

	_, ok := c.Load()
	assert.False(t, ok)
	keys, err := store.Keys(propstore.KeyCacheShard + "_")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestAddAndEvict(t *testing.T) {
	store := propstore.NewMemory()
	c := New(store, nil)
	require.NoError(t, c.Save(map[string]Entry{"SRV-1": {Number: "SRV-1"}}))

	require.NoError(t, c.Add(plm.Item{GUID: "g-2", Number: "PDU-1", Name: "PDU"}))
	loaded, ok := c.Load()
	require.True(t, ok)
	assert.Len(t, loaded, 2)
	assert.Equal(t, "g-2", loaded["PDU-1"].GUID)

	require.NoError(t, c.Evict("PDU-1"))
	loaded, ok = c.Load()
	require.True(t, ok)
	assert.Len(t, loaded, 1)
}

func TestAddWithoutCacheIsNoOp(t *testing.T) {
	store := propstore.NewMemory()
	c := New(store, nil)
	require.NoError(t, c.Add(plm.Item{Number: "SRV-1"}))

	_, ok := c.Load()
	assert.False(t, ok, "Add must not materialize a cache")
}
