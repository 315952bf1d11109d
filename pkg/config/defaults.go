package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default values applied by ApplyDefaults.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultPageSize   = 400
	DefaultSessionTTL = 6 * time.Hour
	DefaultCacheTTL   = 6 * time.Hour
	DefaultListen     = "localhost:9464"
)

// ApplyDefaults sets default values for unspecified fields. Zero values
// are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyAPIDefaults(&cfg.API)
	applyLoggingDefaults(&cfg.Logging)
	applyCacheDefaults(&cfg.Cache)
	applyDataDefaults(&cfg.Data)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyAPIDefaults(cfg *APIConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultCacheTTL
	}
}

func applyDataDefaults(cfg *DataConfig) {
	if cfg.Dir == "" {
		cfg.Dir = getDataDir()
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
}

// GetDefaultConfig returns a fully defaulted configuration.
func GetDefaultConfig() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// getDataDir returns the local state directory. Uses XDG_DATA_HOME if set,
// otherwise ~/.local/share.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "bomctl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "bomctl")
}
