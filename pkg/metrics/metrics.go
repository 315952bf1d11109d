// Package metrics provides opt-in Prometheus instrumentation. When Enable
// has not been called every recording function is a no-op, so library code
// can instrument unconditionally with zero overhead in plain CLI runs.
package metrics

import (
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu      sync.Mutex
	enabled bool

	registry *prometheus.Registry

	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheRefreshes  prometheus.Counter
	authRetries     prometheus.Counter
	rateLimitWaits  prometheus.Counter
	itemsCreated    prometheus.Counter
	linesWritten    prometheus.Counter
	rollbackDeletes prometheus.Counter
)

// Enable initializes the registry and counters. Safe to call once.
func Enable() {
	mu.Lock()
	defer mu.Unlock()
	if enabled {
		return
	}

	registry = prometheus.NewRegistry()

	cacheHits = newCounter("bomctl_item_cache_hits_total", "Item cache lookups served from a shard.")
	cacheMisses = newCounter("bomctl_item_cache_misses_total", "Item cache lookups that fell through to the PLM.")
	cacheRefreshes = newCounter("bomctl_item_cache_refreshes_total", "Full item cache refreshes.")
	authRetries = newCounter("bomctl_plm_auth_retries_total", "Transparent re-authentications after a 401.")
	rateLimitWaits = newCounter("bomctl_plm_rate_limit_waits_total", "Waits honoring a 429 Retry-After.")
	itemsCreated = newCounter("bomctl_push_items_created_total", "Items created by push pipelines.")
	linesWritten = newCounter("bomctl_push_bom_lines_written_total", "BOM lines created or updated by smart sync.")
	rollbackDeletes = newCounter("bomctl_push_rollback_deletes_total", "Items deleted during rollback.")

	registry.MustRegister(cacheHits, cacheMisses, cacheRefreshes,
		authRetries, rateLimitWaits, itemsCreated, linesWritten, rollbackDeletes)
	enabled = true
}

// IsEnabled reports whether metrics collection is active.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Registry returns the registry for gathering, or nil when disabled.
func Registry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

// Serve exposes /metrics on addr in the background. It returns after the
// listener is bound so bind errors surface to the caller.
func Serve(addr string) error {
	reg := Registry()
	if reg == nil {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		_ = http.Serve(ln, mux)
	}()
	return nil
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
}

func inc(c prometheus.Counter) {
	mu.Lock()
	on := enabled
	mu.Unlock()
	if on && c != nil {
		c.Inc()
	}
}

// IncCacheHit records an item cache hit.
func IncCacheHit() { inc(cacheHits) }

// IncCacheMiss records an item cache miss.
func IncCacheMiss() { inc(cacheMisses) }

// IncCacheRefresh records a full cache refresh.
func IncCacheRefresh() { inc(cacheRefreshes) }

// IncAuthRetry records a transparent re-authentication.
func IncAuthRetry() { inc(authRetries) }

// IncRateLimitRetry records a 429 wait-and-retry.
func IncRateLimitRetry() { inc(rateLimitWaits) }

// IncItemCreated records a push-created item.
func IncItemCreated() { inc(itemsCreated) }

// IncLineWritten records a BOM line create or update.
func IncLineWritten() { inc(linesWritten) }

// IncRollbackDelete records an item deleted during rollback.
func IncRollbackDelete() { inc(rollbackDeletes) }
