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
	"github.com/fleetops/motherbase/internal/rover"
)

func main() {
	configPath := flag.String("config", "/etc/motherbase/rover.yaml", "path to rover config file")
	flag.Parse()

	cfg, err := config.LoadRoverConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The rover_id positional argument, when given, overrides rover.id from
	// the config file — the protocol's CLI contract (§6).
	if flag.NArg() > 0 {
		cfg.Rover.ID = flag.Arg(0)
	}
	if cfg.Rover.ID == "" {
		fmt.Fprintln(os.Stderr, "Error: rover_id is required, either as the first argument or rover.id in config")
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger("rover:"+cfg.Rover.ID, cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
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

	client := rover.NewClient(cfg, logger)
	if err := client.Run(ctx); err != nil {
		logger.Error("rover error", "error", err)
		os.Exit(1)
	}
}
