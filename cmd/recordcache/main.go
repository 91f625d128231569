/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command recordcache runs the record lookup service.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/service"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "path to the YAML or JSON configuration file")
	flag.Parse()

	cfg, err := loadAppConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLogger := log.NewLogger(cfg.Log)
	defer closeLogger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(cfg, logger, reg)
	if err != nil {
		logger.Error("failed to build application", log.Error(err))
		return err
	}

	svc := service.NewWithOpts(logger, a.unit, service.Opts{AfterStop: a.close})
	if err = svc.Start(); err != nil {
		logger.Error("service finished with error", log.Error(err))
		return err
	}
	return nil
}
