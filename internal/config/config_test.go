package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := Load("testdata")
	require.NoError(t, err)

	require.Equal(t, "sqlite", cfg.Store.Driver)
	require.Equal(t, "/var/lib/cachier/items.sqlite", cfg.Store.Path)
	require.Equal(t, int64(1048576), cfg.Store.MaxBytes)
	require.Equal(t, 3*time.Second, cfg.Store.Timeout)
	require.Equal(t, "cachier", cfg.Store.Bucket)

	require.Equal(t, "app", cfg.Cache.Prefix)
	require.Equal(t, 30*time.Minute, cfg.Cache.DefaultTTL)

	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "/var/log/cachier.log", cfg.Log.File)

	require.Equal(t, 20*time.Minute, cfg.Web.FetchTTL)
	require.Equal(t, 5*time.Minute, cfg.Web.SearchTTL)

	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, "0.0.0.0:9100", cfg.Metrics.Address)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "socket", cfg.Store.Driver)
	require.Equal(t, "cachier.sock", filepath.Base(cfg.Store.Socket))
	require.Equal(t, "cachier.bbolt", filepath.Base(cfg.Store.Path))
	require.Equal(t, int64(5*1024*1024), cfg.Store.MaxBytes)
	require.Equal(t, time.Second, cfg.Store.Timeout)
	require.Equal(t, "cachier", cfg.Cache.Prefix)
	require.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
	require.Equal(t, "info", cfg.Log.Level)
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, "127.0.0.1:9465", cfg.Metrics.ServerAddress)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CACHIER_STORE_DRIVER", "memory")
	t.Setenv("CACHIER_CACHE_DEFAULT_TTL", "2m")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, 2*time.Minute, cfg.Cache.DefaultTTL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("CACHIER_STORE_DRIVER", "redis")
	_, err := Load(t.TempDir())
	require.Error(t, err)

	cfg := validConfig()
	cfg.Cache.DefaultTTL = 0
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Driver = "postgres"
	require.Error(t, cfg.Validate())
	cfg.Store.DSN = "postgres://localhost/cachier"
	require.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Metrics = MetricsConfig{Enabled: true, Address: "127.0.0.1:9464"}
	require.Error(t, cfg.Validate())
	cfg.Metrics.ServerAddress = "127.0.0.1:9465"
	require.NoError(t, cfg.Validate())
}

func TestMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o600))
	_, err := Load(dir)
	require.Error(t, err)
}

func TestStoreOptions(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Driver = " bolt "
	opts := cfg.Store.StoreOptions()
	require.Equal(t, "bolt", opts.Driver)
	require.Equal(t, cfg.Store.Path, opts.Path)
	require.Equal(t, cfg.Store.MaxBytes, opts.MaxBytes)
}

func validConfig() *Config {
	return &Config{
		Store:   StoreConfig{Driver: "bolt", Path: "/tmp/c.bbolt", MaxBytes: 10},
		Cache:   CacheConfig{Prefix: "cachier", DefaultTTL: time.Hour},
		Log:     LogConfig{Level: "info"},
		Web:     WebConfig{FetchTTL: time.Minute, SearchTTL: time.Minute},
		Metrics: MetricsConfig{},
	}
}
