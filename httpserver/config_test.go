/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-recordcache/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgDataType config.DataType
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "defaults",
			cfgDataType: config.DataTypeYAML,
			cfgData:     ``,
			expectedCfg: NewDefaultConfig,
		},
		{
			name:        "yaml config",
			cfgDataType: config.DataTypeYAML,
			cfgData: `
server:
  address: "127.0.0.1:8080"
  timeouts:
    write: 1h
    read: 7m
    readHeader: 1m
    idle: 20m
    shutdown: 30s
  limits:
    maxBodySize: 2M
  log:
    requestStart: true
    addRequestInfo: true
    excludedEndpoints: ["/healthz", "/metrics"]
    slowRequestThreshold: 2s
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Address = "127.0.0.1:8080"
				cfg.Timeouts.Write = config.TimeDuration(time.Hour)
				cfg.Timeouts.Read = config.TimeDuration(time.Minute * 7)
				cfg.Timeouts.ReadHeader = config.TimeDuration(time.Minute)
				cfg.Timeouts.Idle = config.TimeDuration(time.Minute * 20)
				cfg.Timeouts.Shutdown = config.TimeDuration(time.Second * 30)
				cfg.Limits.MaxBodySizeBytes = 2 * 1024 * 1024
				cfg.Log.RequestStart = true
				cfg.Log.AddRequestInfoToLogger = true
				cfg.Log.ExcludedEndpoints = []string{"/healthz", "/metrics"}
				cfg.Log.SlowRequestThreshold = config.TimeDuration(2 * time.Second)
				return cfg
			},
		},
		{
			name:        "json config",
			cfgDataType: config.DataTypeJSON,
			cfgData: `{
  "server": {
    "address": ":9090",
    "timeouts": {"shutdown": "10s"},
    "limits": {"maxBodySize": "512K"}
  }
}`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Address = ":9090"
				cfg.Timeouts.Shutdown = config.TimeDuration(10 * time.Second)
				cfg.Limits.MaxBodySizeBytes = 512 * 1024
				return cfg
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), tt.cfgDataType, cfg)
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg(), cfg)
		})
	}
}

func TestConfigWithErrors(t *testing.T) {
	tests := []struct {
		name      string
		cfgData   string
		errSubstr string
	}{
		{
			name:      "negative timeout",
			cfgData:   "server:\n  timeouts:\n    read: -1s\n",
			errSubstr: "server.timeouts.read: negative value is not allowed",
		},
		{
			name:      "zero body size",
			cfgData:   "server:\n  limits:\n    maxBodySize: 0\n",
			errSubstr: "server.limits.maxBodySize: must be positive",
		},
		{
			name:      "bad duration",
			cfgData:   "server:\n  log:\n    slowRequestThreshold: soon\n",
			errSubstr: "server.log.slowRequestThreshold",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, NewConfig())
			require.ErrorContains(t, err, tt.errSubstr)
		})
	}
}
