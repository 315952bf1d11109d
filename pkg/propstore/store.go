// Package propstore provides the host property/secret store used for
// persistent client-side state: credentials, session tokens, the sharded
// item cache and user configuration.
//
// The store is a flat string-keyed byte store with a hard per-value size
// ceiling. The ceiling models the host platform's per-property limit, so
// every backend enforces it, including the in-memory one used in tests.
package propstore

import (
	"errors"
	"fmt"
)

// MaxValueSize is the per-value ceiling imposed by the host property store.
const MaxValueSize = 100 * 1024

// Well-known keys. Key families (item_cache_N) are derived from these bases.
const (
	KeyEmail       = "arena_email"
	KeyPassword    = "arena_password"
	KeyWorkspaceID = "arena_workspace_id"
	KeyAPIBase     = "arena_api_base"

	KeySessionToken    = "arena_session_token"
	KeySessionAcquired = "arena_session_acquired"

	KeyCacheManifest = "item_cache_manifest"
	KeyCacheShard    = "item_cache" // shard keys are item_cache_0 ... item_cache_N-1

	KeyExportDefinitionID = "bom_export_definition_id"
)

var (
	// ErrNotFound is returned when a key is not present in the store.
	ErrNotFound = errors.New("property not found")

	// ErrValueTooLarge is returned when a value exceeds MaxValueSize.
	ErrValueTooLarge = errors.New("property value exceeds size ceiling")
)

// Store is the host property store. Implementations must be safe for
// concurrent use by a single process.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores value under key. Returns ErrValueTooLarge when the value
	// exceeds MaxValueSize.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys returns all keys with the given prefix, in unspecified order.
	Keys(prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// ShardKey returns the store key for shard i of a key family.
func ShardKey(base string, i int) string {
	return fmt.Sprintf("%s_%d", base, i)
}

// checkSize validates a value against the store ceiling.
func checkSize(key string, value []byte) error {
	if len(value) > MaxValueSize {
		return fmt.Errorf("%w: key %q carries %d bytes (limit %d)", ErrValueTooLarge, key, len(value), MaxValueSize)
	}
	return nil
}
