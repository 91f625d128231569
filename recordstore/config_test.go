/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package recordstore

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
		cfgData     string
		expectedCfg *Config
	}{
		{
			name:        "defaults",
			expectedCfg: NewDefaultConfig(),
		},
		{
			name:    "sqlite",
			cfgData: "store:\n  driver: SQLite\n  dsn: file:test.db\n  latency: 10ms\n",
			expectedCfg: &Config{
				Driver:  DriverSQLite,
				DSN:     "file:test.db",
				Latency: config.TimeDuration(10 * time.Millisecond),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg, cfg)
		})
	}
}

func TestConfigWithErrors(t *testing.T) {
	err := config.NewDefaultLoader("").LoadFromReader(
		bytes.NewBufferString("store:\n  driver: postgres\n"), config.DataTypeYAML, NewConfig())
	require.ErrorContains(t, err, `store.driver: unknown value "postgres"`)
}
