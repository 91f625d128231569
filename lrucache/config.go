/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"fmt"
	"time"

	"github.com/acronis/go-recordcache/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyTTL           = "ttl"
	cfgKeyMaxSize       = "maxSize"
	cfgKeySweepInterval = "sweepInterval"
)

// Default values.
const (
	DefaultTTL           = time.Minute
	DefaultMaxSize       = 1000
	DefaultSweepInterval = 5 * time.Second
)

// Config represents a set of configuration parameters for the records cache.
type Config struct {
	// TTL is the lifetime of an entry. Zero means entries never expire.
	TTL config.TimeDuration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`

	MaxSize int `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`

	// SweepInterval is the period of removing expired entries. Zero disables the periodic sweep.
	SweepInterval config.TimeDuration `mapstructure:"sweepInterval" yaml:"sweepInterval" json:"sweepInterval"`
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
		TTL:           config.TimeDuration(DefaultTTL),
		MaxSize:       DefaultMaxSize,
		SweepInterval: config.TimeDuration(DefaultSweepInterval),
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return cfgDefaultKeyPrefix
}

// SetProviderDefaults sets default configuration values for the cache in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTTL, DefaultTTL)
	dp.SetDefault(cfgKeyMaxSize, DefaultMaxSize)
	dp.SetDefault(cfgKeySweepInterval, DefaultSweepInterval)
}

// Set sets cache configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	ttl, err := dp.GetDuration(cfgKeyTTL)
	if err != nil {
		return err
	}
	c.TTL = config.TimeDuration(ttl)

	if c.MaxSize, err = dp.GetInt(cfgKeyMaxSize); err != nil {
		return err
	}
	if c.MaxSize <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxSize, fmt.Errorf("must be positive"))
	}

	var sweepInterval time.Duration
	if sweepInterval, err = dp.GetDuration(cfgKeySweepInterval); err != nil {
		return err
	}
	c.SweepInterval = config.TimeDuration(sweepInterval)
	return nil
}
