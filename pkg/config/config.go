// Package config loads and validates bomctl configuration from file,
// environment and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config captures the static configuration of bomctl.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (BOMCTL_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Secrets (the PLM password) are never read from the config file; see
// ResolveCredentials.
type Config struct {
	// API configures the PLM REST endpoint.
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Auth identifies the PLM account. The password is resolved
	// separately from environment or the property store.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Cache controls the item cache freshness window.
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Data locates local state (property store, workbook file).
	Data DataConfig `mapstructure:"data" yaml:"data"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// APIConfig configures the PLM REST endpoint.
type APIConfig struct {
	// BaseURL is the API root, e.g. https://api.arenasolutions.com/v1
	// Validated for shape here; presence is checked where a client is
	// actually built, so offline commands work unconfigured.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url" yaml:"base_url"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `mapstructure:"timeout" validate:"required,gt=0" yaml:"timeout"`

	// PageSize is the page size for item listing.
	PageSize int `mapstructure:"page_size" validate:"omitempty,min=1,max=400" yaml:"page_size"`

	// SessionTTL is how long a cached session token is trusted.
	SessionTTL time.Duration `mapstructure:"session_ttl" validate:"omitempty,gt=0" yaml:"session_ttl"`
}

// AuthConfig identifies the PLM account.
type AuthConfig struct {
	// Email is the login identity.
	Email string `mapstructure:"email" validate:"omitempty,email" yaml:"email"`

	// WorkspaceID pins the session to one workspace. Logins landing in a
	// different workspace are rejected.
	WorkspaceID string `mapstructure:"workspace_id" yaml:"workspace_id"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is the log destination: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// CacheConfig controls the item cache.
type CacheConfig struct {
	// TTL is the freshness window of the persisted item cache.
	TTL time.Duration `mapstructure:"ttl" validate:"omitempty,gt=0" yaml:"ttl"`
}

// DataConfig locates local state.
type DataConfig struct {
	// Dir holds the property store. Created on first use.
	Dir string `mapstructure:"dir" validate:"required" yaml:"dir"`

	// Workbook is the default workbook file commands operate on when
	// no --workbook flag is given.
	Workbook string `mapstructure:"workbook" yaml:"workbook"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled turns on the in-process metrics registry.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Listen is the address the metrics endpoint binds when enabled.
	Listen string `mapstructure:"listen" validate:"omitempty,hostname_port" yaml:"listen"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if configFileFound {
		if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg, v)

	// overrides carry the raw file/env spelling
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides covers nested keys viper's AutomaticEnv misses when no
// config file binds them.
func applyEnvOverrides(cfg *Config, v *viper.Viper) {
	set := func(target *string, key string) {
		if val := v.GetString(key); val != "" {
			*target = val
		}
	}
	set(&cfg.API.BaseURL, "api.base_url")
	set(&cfg.Auth.Email, "auth.email")
	set(&cfg.Auth.WorkspaceID, "auth.workspace_id")
	set(&cfg.Logging.Level, "logging.level")
	set(&cfg.Logging.Format, "logging.format")
	set(&cfg.Data.Dir, "data.dir")
	set(&cfg.Data.Workbook, "data.workbook")
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file names the account and workspace.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures environment variables and config file search.
// Environment variables use the BOMCTL_ prefix with underscores, e.g.
// BOMCTL_LOGGING_LEVEL=DEBUG, BOMCTL_API_BASE_URL=...
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("BOMCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is not an error; defaults apply.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the decode hook chain for custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings like "30s" or "6h" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch value := data.(type) {
		case string:
			return time.ParseDuration(value)
		case int:
			return time.Duration(value), nil
		case int64:
			return time.Duration(value), nil
		case float64:
			return time.Duration(value), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path. Uses
// XDG_CONFIG_HOME if set, otherwise ~/.config, or the current directory if
// home cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "bomctl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "bomctl")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks for a config file at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
