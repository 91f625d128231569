/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"fmt"

	"github.com/acronis/go-recordcache/config"
)

const cfgDefaultKeyPrefix = "dispatcher"

const cfgKeyConcurrency = "concurrency"

// Config represents a set of configuration parameters for Dispatcher.
type Config struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{Concurrency: DefaultConcurrency}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return cfgDefaultKeyPrefix
}

// SetProviderDefaults sets default configuration values for Dispatcher in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyConcurrency, DefaultConcurrency)
}

// Set sets Dispatcher configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Concurrency, err = dp.GetInt(cfgKeyConcurrency); err != nil {
		return err
	}
	if c.Concurrency <= 0 {
		return dp.WrapKeyErr(cfgKeyConcurrency, fmt.Errorf("must be positive"))
	}
	return nil
}
