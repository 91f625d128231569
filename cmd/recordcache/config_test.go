/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-recordcache/config"
	"github.com/acronis/go-recordcache/internal/ratelimit"
	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/recordstore"
)

func TestLoadAppConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadAppConfig("")
		require.NoError(t, err)
		require.Equal(t, NewDefaultAppConfig(), cfg)
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":8080"
log:
  level: debug
  format: text
cache:
  ttl: 30s
  maxSize: 10
rateLimit:
  alg: leaky_bucket
  excludedKeys: ["127.0.0.1"]
dispatcher:
  concurrency: 2
store:
  driver: sqlite
`), 0o600))

		cfg, err := loadAppConfig(path)
		require.NoError(t, err)
		require.Equal(t, ":8080", cfg.Server.Address)
		require.Equal(t, log.LevelDebug, cfg.Log.Level)
		require.Equal(t, log.FormatText, cfg.Log.Format)
		require.Equal(t, config.TimeDuration(30*time.Second), cfg.Cache.TTL)
		require.Equal(t, 10, cfg.Cache.MaxSize)
		require.Equal(t, ratelimit.AlgLeakyBucket, cfg.RateLimit.Alg)
		require.Equal(t, []string{"127.0.0.1"}, cfg.RateLimit.ExcludedKeys)
		require.Equal(t, 2, cfg.Dispatcher.Concurrency)
		require.Equal(t, recordstore.DriverSQLite, cfg.Store.Driver)
	})

	t.Run("json file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"rateLimit": {"shortWindow": "3/s"}}`), 0o600))

		cfg, err := loadAppConfig(path)
		require.NoError(t, err)
		require.Equal(t, config.Rate{Count: 3, Duration: time.Second}, cfg.RateLimit.ShortWindow)
	})

	t.Run("env vars", func(t *testing.T) {
		t.Setenv("RECORDCACHE_DISPATCHER_CONCURRENCY", "8")
		t.Setenv("RECORDCACHE_RATELIMIT_TRUSTFORWARDEDFOR", "true")

		cfg, err := loadAppConfig("")
		require.NoError(t, err)
		require.Equal(t, 8, cfg.Dispatcher.Concurrency)
		require.True(t, cfg.RateLimit.TrustForwardedFor)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("RECORDCACHE_CACHE_MAXSIZE", "-1")

		_, err := loadAppConfig("")
		require.ErrorContains(t, err, "cache.maxSize: must be positive")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadAppConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}
