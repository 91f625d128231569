/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-recordcache/config"
)

func TestConfig(t *testing.T) {
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, NewDefaultConfig(), cfg)

	cfgData := `{"cache": {"ttl": "2m", "maxSize": 50, "sweepInterval": "0s"}}`
	cfg = NewConfig()
	err = config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeJSON, cfg)
	require.NoError(t, err)
	require.Equal(t, &Config{TTL: config.TimeDuration(2 * time.Minute), MaxSize: 50}, cfg)
}

func TestConfigWithErrors(t *testing.T) {
	tests := []struct {
		name      string
		cfgData   string
		errSubstr string
	}{
		{name: "zero max size", cfgData: "cache:\n  maxSize: 0\n", errSubstr: "cache.maxSize: must be positive"},
		{name: "negative ttl", cfgData: "cache:\n  ttl: -5s\n", errSubstr: "cache.ttl: negative value is not allowed"},
		{name: "bad sweep interval", cfgData: "cache:\n  sweepInterval: often\n", errSubstr: "cache.sweepInterval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, NewConfig())
			require.ErrorContains(t, err, tt.errSubstr)
		})
	}
}
