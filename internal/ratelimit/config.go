/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"
	"time"

	"github.com/acronis/go-recordcache/config"
)

const cfgDefaultKeyPrefix = "rateLimit"

const (
	cfgKeyAlg               = "alg"
	cfgKeyShortWindow       = "shortWindow"
	cfgKeyLongWindow        = "longWindow"
	cfgKeyMaxKeys           = "maxKeys"
	cfgKeyIdleTTL           = "idleTTL"
	cfgKeyExcludedKeys      = "excludedKeys"
	cfgKeyTrustForwardedFor = "trustForwardedFor"
)

// Default values.
const (
	DefaultIdleTTL = 10 * time.Minute
)

var (
	// DefaultShortWindow allows bursts of 5 requests and refills 5 tokens per 10 seconds.
	DefaultShortWindow = Rate{Count: 5, Duration: 10 * time.Second}

	// DefaultLongWindow allows 10 requests per minute.
	DefaultLongWindow = Rate{Count: 10, Duration: time.Minute}
)

var availableAlgs = []string{string(AlgTokenBucket), string(AlgLeakyBucket), string(AlgSlidingWindow)}

// Config represents a set of configuration parameters for rate limiting of callers.
type Config struct {
	Alg         Alg         `mapstructure:"alg" yaml:"alg" json:"alg"`
	ShortWindow config.Rate `mapstructure:"shortWindow" yaml:"shortWindow" json:"shortWindow"`
	LongWindow  config.Rate `mapstructure:"longWindow" yaml:"longWindow" json:"longWindow"`
	MaxKeys     int         `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`

	// IdleTTL is the period of inactivity after which the caller state is dropped. Zero keeps it forever.
	IdleTTL config.TimeDuration `mapstructure:"idleTTL" yaml:"idleTTL" json:"idleTTL"`

	ExcludedKeys []string `mapstructure:"excludedKeys" yaml:"excludedKeys" json:"excludedKeys"`

	// TrustForwardedFor makes the first X-Forwarded-For hop the caller key.
	TrustForwardedFor bool `mapstructure:"trustForwardedFor" yaml:"trustForwardedFor" json:"trustForwardedFor"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Alg:         AlgTokenBucket,
		ShortWindow: config.Rate(DefaultShortWindow),
		LongWindow:  config.Rate(DefaultLongWindow),
		MaxKeys:     DefaultMaxKeys,
		IdleTTL:     config.TimeDuration(DefaultIdleTTL),
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return cfgDefaultKeyPrefix
}

// SetProviderDefaults sets default configuration values for rate limiting in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAlg, string(AlgTokenBucket))
	dp.SetDefault(cfgKeyShortWindow, config.Rate(DefaultShortWindow).String())
	dp.SetDefault(cfgKeyLongWindow, config.Rate(DefaultLongWindow).String())
	dp.SetDefault(cfgKeyMaxKeys, DefaultMaxKeys)
	dp.SetDefault(cfgKeyIdleTTL, DefaultIdleTTL)
	dp.SetDefault(cfgKeyTrustForwardedFor, false)
}

// Set sets rate limiting configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	alg, err := dp.GetStringFromSet(cfgKeyAlg, availableAlgs, true)
	if err != nil {
		return err
	}
	c.Alg = Alg(alg)

	for _, item := range []struct {
		key string
		dst *config.Rate
	}{
		{cfgKeyShortWindow, &c.ShortWindow},
		{cfgKeyLongWindow, &c.LongWindow},
	} {
		var r config.Rate
		if r, err = dp.GetRate(item.key); err != nil {
			return err
		}
		if r.Count == 0 {
			return dp.WrapKeyErr(item.key, fmt.Errorf("cannot be empty"))
		}
		*item.dst = r
	}

	if c.MaxKeys, err = dp.GetInt(cfgKeyMaxKeys); err != nil {
		return err
	}
	if c.MaxKeys < 0 {
		return dp.WrapKeyErr(cfgKeyMaxKeys, fmt.Errorf("cannot be negative"))
	}

	var idleTTL time.Duration
	if idleTTL, err = dp.GetDuration(cfgKeyIdleTTL); err != nil {
		return err
	}
	c.IdleTTL = config.TimeDuration(idleTTL)

	if c.ExcludedKeys, err = dp.GetStringSlice(cfgKeyExcludedKeys); err != nil {
		return err
	}
	if c.TrustForwardedFor, err = dp.GetBool(cfgKeyTrustForwardedFor); err != nil {
		return err
	}
	return nil
}

// Params converts the configuration into parameters for New.
func (c *Config) Params() Params {
	return Params{
		Alg:          c.Alg,
		ShortWindow:  Rate(c.ShortWindow),
		LongWindow:   Rate(c.LongWindow),
		MaxKeys:      c.MaxKeys,
		ExcludedKeys: c.ExcludedKeys,
	}
}
