/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestByteSize_UnmarshalText(t *testing.T) {
	tests := []struct {
		text    string
		want    ByteSize
		wantErr bool
	}{
		{text: "1024", want: 1024},
		{text: "1K", want: 1024},
		{text: `"2M"`, want: 2 * 1024 * 1024},
		{text: " 1G ", want: 1024 * 1024 * 1024},
		{text: "-1", wantErr: true},
		{text: "lots", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var b ByteSize
			err := b.UnmarshalText([]byte(tt.text))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, b)
		})
	}
}

func TestTimeDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		text    string
		want    TimeDuration
		wantErr bool
	}{
		{text: "1000", want: TimeDuration(1000)},
		{text: "1m30s", want: TimeDuration(90 * time.Second)},
		{text: `"200ms"`, want: TimeDuration(200 * time.Millisecond)},
		{text: "-1s", wantErr: true},
		{text: "-5", wantErr: true},
		{text: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var d TimeDuration
			err := d.UnmarshalText([]byte(tt.text))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, d)
		})
	}
}

func TestRate_UnmarshalText(t *testing.T) {
	tests := []struct {
		text       string
		want       Rate
		wantString string
		wantErr    bool
	}{
		{text: "10/s", want: Rate{10, time.Second}, wantString: "10/s"},
		{text: "10/M", want: Rate{10, time.Minute}, wantString: "10/m"},
		{text: "100/h", want: Rate{100, time.Hour}, wantString: "100/h"},
		{text: "5/10s", want: Rate{5, 10 * time.Second}, wantString: "5/10s"},
		{text: " 3 / 1m30s ", want: Rate{3, 90 * time.Second}, wantString: "3/1m30s"},
		{text: "", want: Rate{}, wantString: ""},
		{text: "10", wantErr: true},
		{text: "0/s", wantErr: true},
		{text: "-1/s", wantErr: true},
		{text: "1/-10s", wantErr: true},
		{text: "1/day", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var r Rate
			err := r.UnmarshalText([]byte(tt.text))
			if tt.wantErr {
				require.ErrorContains(t, err, "incorrect format for rate")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, r)
			require.Equal(t, tt.wantString, r.String())
		})
	}
}

type customTypesConfig struct {
	Size    ByteSize     `json:"size" yaml:"size" mapstructure:"size"`
	Timeout TimeDuration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	Rate    Rate         `json:"rate" yaml:"rate" mapstructure:"rate"`
}

func TestCustomTypes_Decoding(t *testing.T) {
	want := customTypesConfig{
		Size:    ByteSize(512 * 1024),
		Timeout: TimeDuration(3 * time.Second),
		Rate:    Rate{Count: 20, Duration: time.Minute},
	}

	var fromJSON customTypesConfig
	require.NoError(t, json.Unmarshal([]byte(`{"size": "512K", "timeout": "3s", "rate": "20/m"}`), &fromJSON))
	require.Equal(t, want, fromJSON)

	var fromYAML customTypesConfig
	require.NoError(t, yaml.Unmarshal([]byte("size: 512K\ntimeout: 3s\nrate: 20/m\n"), &fromYAML))
	require.Equal(t, want, fromYAML)

	encoded, err := json.Marshal(want)
	require.NoError(t, err)
	require.JSONEq(t, `{"size": "512K", "timeout": "3s", "rate": "20/m"}`, string(encoded))
}
