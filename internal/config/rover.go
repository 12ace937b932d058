// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RoverConfig represents the full configuration of the rover binary.
type RoverConfig struct {
	Rover   RoverInfo   `yaml:"rover"`
	Station StationAddr `yaml:"station"`
	Retry   RoverRetry  `yaml:"retry"`
	Logging LoggingInfo `yaml:"logging"`
}

// RoverInfo identifies this rover and where it keeps its persisted state.
type RoverInfo struct {
	ID        string `yaml:"id"`         // e.g. "ROVER-01", must fit the 32-byte rover_id field
	StateDir  string `yaml:"state_dir"`  // default "rovers"
	BatteryPct int   `yaml:"battery_pct"` // starting battery level, default 100
}

// StationAddr contains the two station endpoints this rover dials.
type StationAddr struct {
	CommandAddr   string `yaml:"command_addr"`   // UDP host:port, e.g. "station:5005"
	TelemetryAddr string `yaml:"telemetry_addr"` // TCP host:port, e.g. "station:5006"
}

// RoverRetry controls the rover's handshake and ack timing. Defaults match
// the protocol's fixed constants; operators can tighten or loosen them for
// lossy test networks.
type RoverRetry struct {
	HandshakeRetries int           `yaml:"handshake_retries"` // default 5
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"` // default 2s
	AckRetries       int           `yaml:"ack_retries"`       // default 5
	AckTimeout       time.Duration `yaml:"ack_timeout"`       // default 1s
}

// LoadRoverConfig reads and validates the rover's YAML config file.
func LoadRoverConfig(path string) (*RoverConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rover config: %w", err)
	}

	var cfg RoverConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing rover config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating rover config: %w", err)
	}

	return &cfg, nil
}

func (c *RoverConfig) validate() error {
	if c.Rover.ID == "" {
		return fmt.Errorf("rover.id is required")
	}
	if len(c.Rover.ID) > 32 {
		return fmt.Errorf("rover.id must be at most 32 bytes, got %d", len(c.Rover.ID))
	}
	if c.Station.CommandAddr == "" {
		return fmt.Errorf("station.command_addr is required")
	}
	if c.Station.TelemetryAddr == "" {
		return fmt.Errorf("station.telemetry_addr is required")
	}

	if c.Rover.StateDir == "" {
		c.Rover.StateDir = "rovers"
	}
	if c.Rover.BatteryPct <= 0 {
		c.Rover.BatteryPct = 100
	}
	if c.Rover.BatteryPct > 100 {
		return fmt.Errorf("rover.battery_pct must be at most 100, got %d", c.Rover.BatteryPct)
	}

	if c.Retry.HandshakeRetries <= 0 {
		c.Retry.HandshakeRetries = 5
	}
	if c.Retry.HandshakeTimeout <= 0 {
		c.Retry.HandshakeTimeout = 2 * time.Second
	}
	if c.Retry.AckRetries <= 0 {
		c.Retry.AckRetries = 5
	}
	if c.Retry.AckTimeout <= 0 {
		c.Retry.AckTimeout = 1 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	return nil
}
