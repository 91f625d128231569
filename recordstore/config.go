/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package recordstore

import (
	"time"

	"github.com/acronis/go-recordcache/config"
)

const cfgDefaultKeyPrefix = "store"

const (
	cfgKeyDriver  = "driver"
	cfgKeyDSN     = "dsn"
	cfgKeyLatency = "latency"
)

// Driver defines possible values for store drivers.
type Driver string

// Store drivers.
const (
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
)

var availableDrivers = []string{string(DriverMemory), string(DriverSQLite)}

// Config represents a set of configuration parameters for the backing store.
type Config struct {
	Driver Driver `mapstructure:"driver" yaml:"driver" json:"driver"`

	// DSN is used by the sqlite driver. DefaultSQLiteDSN is used if empty.
	DSN string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`

	Latency config.TimeDuration `mapstructure:"latency" yaml:"latency" json:"latency"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{Driver: DriverMemory, Latency: config.TimeDuration(DefaultLatency)}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return cfgDefaultKeyPrefix
}

// SetProviderDefaults sets default configuration values for the store in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDriver, string(DriverMemory))
	dp.SetDefault(cfgKeyLatency, DefaultLatency)
}

// Set sets store configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	driver, err := dp.GetStringFromSet(cfgKeyDriver, availableDrivers, true)
	if err != nil {
		return err
	}
	c.Driver = Driver(driver)

	if c.DSN, err = dp.GetString(cfgKeyDSN); err != nil {
		return err
	}

	var latency time.Duration
	if latency, err = dp.GetDuration(cfgKeyLatency); err != nil {
		return err
	}
	c.Latency = config.TimeDuration(latency)
	return nil
}
