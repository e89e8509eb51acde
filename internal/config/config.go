package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/leonardcser/cachier/internal/store"
)

// Config represents the runtime configuration shared by both binaries.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
	Web     WebConfig     `mapstructure:"web"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StoreConfig selects the underlying string store.
type StoreConfig struct {
	Driver   string        `mapstructure:"driver" validate:"oneof=memory bolt sqlite postgres mysql nats socket"`
	Path     string        `mapstructure:"path"`
	DSN      string        `mapstructure:"dsn" validate:"required_if=Driver postgres,required_if=Driver mysql"`
	Bucket   string        `mapstructure:"bucket"`
	Socket   string        `mapstructure:"socket" validate:"required_if=Driver socket"`
	NATSURL  string        `mapstructure:"nats_url"`
	MaxBytes int64         `mapstructure:"max_bytes" validate:"gte=0"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// CacheConfig configures the facade.
type CacheConfig struct {
	Prefix     string        `mapstructure:"prefix" validate:"required"`
	DefaultTTL time.Duration `mapstructure:"default_ttl" validate:"gt=0"`
}

// LogConfig controls the file logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file"`
}

// WebConfig sets lifetimes of cached web results.
type WebConfig struct {
	FetchTTL  time.Duration `mapstructure:"fetch_ttl" validate:"gt=0"`
	SearchTTL time.Duration `mapstructure:"search_ttl" validate:"gt=0"`

	// UserAgent pins the User-Agent header; empty rotates a built-in list.
	UserAgent string `mapstructure:"user_agent"`
}

// MetricsConfig toggles the prometheus endpoints. Address belongs to the
// store daemon, ServerAddress to the MCP server.
type MetricsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Address       string `mapstructure:"address" validate:"required_if=Enabled true"`
	ServerAddress string `mapstructure:"server_address" validate:"required_if=Enabled true"`
}

var validate = validator.New()

// Load reads config.yaml from ./config and the given paths, applies defaults
// and CACHIER_* environment overrides, then validates the result.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CACHIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	dir := cacheDir()

	// The daemon owns the bbolt file, so several MCP servers can share it.
	v.SetDefault("store.driver", "socket")
	v.SetDefault("store.path", filepath.Join(dir, "cachier.bbolt"))
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.bucket", "cachier")
	v.SetDefault("store.socket", filepath.Join(dir, "cachier.sock"))
	v.SetDefault("store.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("store.max_bytes", 5*1024*1024) // a browser-sized origin quota
	v.SetDefault("store.timeout", "1s")

	v.SetDefault("cache.prefix", "cachier")
	v.SetDefault("cache.default_ttl", "1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("web.fetch_ttl", "15m")
	v.SetDefault("web.search_ttl", "5m")
	v.SetDefault("web.user_agent", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9464")
	v.SetDefault("metrics.server_address", "127.0.0.1:9465")
}

func cacheDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "cachier")
}

// StoreOptions converts the store section into store.Options.
func (c StoreConfig) StoreOptions() store.Options {
	return store.Options{
		Driver:   strings.TrimSpace(c.Driver),
		Path:     c.Path,
		DSN:      c.DSN,
		Bucket:   c.Bucket,
		Socket:   c.Socket,
		NATSURL:  c.NATSURL,
		MaxBytes: c.MaxBytes,
		Timeout:  c.Timeout,
	}
}
