// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetops/motherbase/internal/config"
	"github.com/fleetops/motherbase/internal/logging"
	"github.com/fleetops/motherbase/internal/stationd"
)

func main() {
	configPath := flag.String("config", "/etc/motherbase/station.yaml", "path to station config file")
	flag.Parse()

	cfg, err := config.LoadStationConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger("station", cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := stationd.Run(ctx, cfg, logger); err != nil {
		logger.Error("station error", "error", err)
		os.Exit(1)
	}
}
