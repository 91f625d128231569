/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"path/filepath"
	"strings"

	"github.com/acronis/go-recordcache/config"
	"github.com/acronis/go-recordcache/httpserver"
	"github.com/acronis/go-recordcache/internal/dispatch"
	"github.com/acronis/go-recordcache/internal/ratelimit"
	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/lrucache"
	"github.com/acronis/go-recordcache/profserver"
	"github.com/acronis/go-recordcache/recordstore"
)

const envVarsPrefix = "RECORDCACHE"

// AppConfig combines configuration sections of the service.
type AppConfig struct {
	Server     *httpserver.Config
	Log        *log.Config
	Cache      *lrucache.Config
	RateLimit  *ratelimit.Config
	Dispatcher *dispatch.Config
	Store      *recordstore.Config
	ProfServer *profserver.Config
}

// NewAppConfig creates a new instance of the AppConfig.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Server:     httpserver.NewConfig(),
		Log:        log.NewConfig(),
		Cache:      lrucache.NewConfig(),
		RateLimit:  ratelimit.NewConfig(),
		Dispatcher: dispatch.NewConfig(),
		Store:      recordstore.NewConfig(),
		ProfServer: profserver.NewConfig(),
	}
}

// NewDefaultAppConfig creates a new instance of the AppConfig with default values.
func NewDefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server:     httpserver.NewDefaultConfig(),
		Log:        log.NewDefaultConfig(),
		Cache:      lrucache.NewDefaultConfig(),
		RateLimit:  ratelimit.NewDefaultConfig(),
		Dispatcher: dispatch.NewDefaultConfig(),
		Store:      recordstore.NewDefaultConfig(),
		ProfServer: profserver.NewDefaultConfig(),
	}
}

func (c *AppConfig) sections() (config.Config, []config.Config) {
	return c.Server, []config.Config{c.Log, c.Cache, c.RateLimit, c.Dispatcher, c.Store, c.ProfServer}
}

// loadAppConfig reads the configuration file (if path is not empty) and environment variables prefixed with RECORDCACHE_.
func loadAppConfig(path string) (*AppConfig, error) {
	cfg := NewAppConfig()
	loader := config.NewDefaultLoader(envVarsPrefix)
	first, rest := cfg.sections()
	if path == "" {
		return cfg, loader.LoadFromEnv(first, rest...)
	}
	dataType := config.DataTypeYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dataType = config.DataTypeJSON
	}
	return cfg, loader.LoadFromFile(path, dataType, first, rest...)
}
