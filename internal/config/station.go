// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StationConfig represents the full configuration of the station binary.
type StationConfig struct {
	Station      StationListen      `yaml:"station"`
	Logging      LoggingInfo        `yaml:"logging"`
	EventLog     EventLogConfig     `yaml:"event_log"`
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`
	Archive      ArchiveConfig      `yaml:"archive"`
}

// StationListen holds the three listener addresses and the fleet-wide
// tunables named in the protocol's constant table.
type StationListen struct {
	CommandAddr       string `yaml:"command_addr"`              // UDP, default ":5005"
	TelemetryAddr     string `yaml:"telemetry_addr"`             // TCP, default ":5006"
	APIAddr           string `yaml:"api_addr"`                   // HTTP, default ":8080"
	MaxRovers         int    `yaml:"max_rovers"`                 // default 5
	MaxMissions       int    `yaml:"max_missions"`                // default 100
	MaxTelemetryConns int    `yaml:"max_telemetry_connections"`  // default 10

	HandshakeRetries    int           `yaml:"handshake_retries"`    // default 5
	HandshakeTimeout    time.Duration `yaml:"handshake_timeout"`    // default 2s
	AckRetries          int           `yaml:"ack_retries"`          // default 5
	AckTimeout          time.Duration `yaml:"ack_timeout"`          // default 1s
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`   // default 30s
	HeartbeatTimeout    time.Duration `yaml:"heartbeat_timeout"`    // default 5s
	HeartbeatMaxRetries int           `yaml:"heartbeat_max_retries"` // default 2

	PingRatePerSecond float64 `yaml:"ping_rate_per_second"` // rate.Limiter cap, default 50
	PingBurst         int     `yaml:"ping_burst"`           // default 10

	// SessionLogDir, when non-empty, gets a dedicated debug-level log file
	// per mission at {dir}/missions/{mission_id}.log in addition to the
	// main station log. Removed automatically once the mission completes
	// cleanly; left behind for missions that never reach COMPLETE, as a
	// debugging trail. Empty disables per-mission logging entirely.
	SessionLogDir string `yaml:"session_log_dir"`

	StatsInterval time.Duration `yaml:"stats_interval"` // host-stats sampling cadence, default 15s
}

// EventLogConfig configures the rotated, compressed operational event log.
type EventLogConfig struct {
	Dir        string `yaml:"dir"`         // default "events"
	MaxSizeMB  int    `yaml:"max_size_mb"` // rotate once the active file exceeds this, default 10
	MaxBackups int    `yaml:"max_backups"` // retained .jsonl.gz rotations, default 5
}

// HousekeepingConfig drives the cron-scheduled registry snapshot and
// capacity-warning loop.
type HousekeepingConfig struct {
	Schedule    string `yaml:"schedule"`     // cron expression, default "@every 1m"
	SnapshotDir string `yaml:"snapshot_dir"` // default "snapshots"
}

// ArchiveConfig configures the optional S3 mission archiver. Disabled
// (no uploads attempted) when Bucket is empty.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`

	// AccessKeyID/SecretAccessKey are optional static credentials for
	// S3-compatible endpoints that don't have an ambient IAM role to
	// resolve credentials from. Left empty, the archiver falls back to
	// the AWS SDK's default credential chain.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Enabled reports whether the archiver should run.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// LoadStationConfig reads and validates the station's YAML config file.
func LoadStationConfig(path string) (*StationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading station config: %w", err)
	}

	var cfg StationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing station config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating station config: %w", err)
	}

	return &cfg, nil
}

func (c *StationConfig) validate() error {
	if c.Station.CommandAddr == "" {
		c.Station.CommandAddr = ":5005"
	}
	if c.Station.TelemetryAddr == "" {
		c.Station.TelemetryAddr = ":5006"
	}
	if c.Station.APIAddr == "" {
		c.Station.APIAddr = ":8080"
	}
	if c.Station.MaxRovers <= 0 {
		c.Station.MaxRovers = 5
	}
	if c.Station.MaxMissions <= 0 {
		c.Station.MaxMissions = 100
	}
	if c.Station.MaxTelemetryConns <= 0 {
		c.Station.MaxTelemetryConns = 10
	}
	if c.Station.HandshakeRetries <= 0 {
		c.Station.HandshakeRetries = 5
	}
	if c.Station.HandshakeTimeout <= 0 {
		c.Station.HandshakeTimeout = 2 * time.Second
	}
	if c.Station.AckRetries <= 0 {
		c.Station.AckRetries = 5
	}
	if c.Station.AckTimeout <= 0 {
		c.Station.AckTimeout = 1 * time.Second
	}
	if c.Station.HeartbeatInterval <= 0 {
		c.Station.HeartbeatInterval = 30 * time.Second
	}
	if c.Station.HeartbeatTimeout <= 0 {
		c.Station.HeartbeatTimeout = 5 * time.Second
	}
	if c.Station.HeartbeatMaxRetries <= 0 {
		c.Station.HeartbeatMaxRetries = 2
	}
	if c.Station.PingRatePerSecond <= 0 {
		c.Station.PingRatePerSecond = 50
	}
	if c.Station.PingBurst <= 0 {
		c.Station.PingBurst = 10
	}
	if c.Station.StatsInterval <= 0 {
		c.Station.StatsInterval = 15 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.EventLog.Dir == "" {
		c.EventLog.Dir = "events"
	}
	if c.EventLog.MaxSizeMB <= 0 {
		c.EventLog.MaxSizeMB = 10
	}
	if c.EventLog.MaxBackups <= 0 {
		c.EventLog.MaxBackups = 5
	}

	if c.Housekeeping.Schedule == "" {
		c.Housekeeping.Schedule = "@every 1m"
	}
	if c.Housekeeping.SnapshotDir == "" {
		c.Housekeeping.SnapshotDir = "snapshots"
	}

	c.Archive.Prefix = strings.TrimPrefix(c.Archive.Prefix, "/")

	return nil
}
