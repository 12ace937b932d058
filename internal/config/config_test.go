// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

const minimalStationYAML = `
station:
  command_addr: ":5005"
`

func TestLoadStationConfig_Defaults(t *testing.T) {
	cfgPath := writeTempConfig(t, minimalStationYAML)
	cfg, err := LoadStationConfig(cfgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Station.TelemetryAddr != ":5006" {
		t.Errorf("expected default telemetry_addr :5006, got %q", cfg.Station.TelemetryAddr)
	}
	if cfg.Station.APIAddr != ":8080" {
		t.Errorf("expected default api_addr :8080, got %q", cfg.Station.APIAddr)
	}
	if cfg.Station.MaxRovers != 5 {
		t.Errorf("expected default max_rovers 5, got %d", cfg.Station.MaxRovers)
	}
	if cfg.Station.MaxMissions != 100 {
		t.Errorf("expected default max_missions 100, got %d", cfg.Station.MaxMissions)
	}
	if cfg.Station.MaxTelemetryConns != 10 {
		t.Errorf("expected default max_telemetry_connections 10, got %d", cfg.Station.MaxTelemetryConns)
	}
	if cfg.Station.AckRetries != 5 || cfg.Station.AckTimeout != time.Second {
		t.Errorf("expected default ack_retries 5 / ack_timeout 1s, got %d / %s", cfg.Station.AckRetries, cfg.Station.AckTimeout)
	}
	if cfg.Station.HandshakeRetries != 5 || cfg.Station.HandshakeTimeout != 2*time.Second {
		t.Errorf("expected default handshake_retries 5 / handshake_timeout 2s, got %d / %s", cfg.Station.HandshakeRetries, cfg.Station.HandshakeTimeout)
	}
	if cfg.Station.HeartbeatInterval != 30*time.Second {
		t.Errorf("expected default heartbeat_interval 30s, got %s", cfg.Station.HeartbeatInterval)
	}
	if cfg.Station.HeartbeatTimeout != 5*time.Second {
		t.Errorf("expected default heartbeat_timeout 5s, got %s", cfg.Station.HeartbeatTimeout)
	}
	if cfg.Station.HeartbeatMaxRetries != 2 {
		t.Errorf("expected default heartbeat_max_retries 2, got %d", cfg.Station.HeartbeatMaxRetries)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("expected default logging info/json, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.EventLog.Dir != "events" || cfg.EventLog.MaxSizeMB != 10 || cfg.EventLog.MaxBackups != 5 {
		t.Errorf("unexpected event_log defaults: %+v", cfg.EventLog)
	}
	if cfg.Housekeeping.Schedule != "@every 1m" || cfg.Housekeeping.SnapshotDir != "snapshots" {
		t.Errorf("unexpected housekeeping defaults: %+v", cfg.Housekeeping)
	}
	if cfg.Archive.Enabled() {
		t.Error("expected archive disabled when bucket unset")
	}
}

func TestLoadStationConfig_CustomValues(t *testing.T) {
	content := `
station:
  command_addr: "0.0.0.0:5005"
  telemetry_addr: "0.0.0.0:5006"
  api_addr: "0.0.0.0:8080"
  max_rovers: 8
  max_missions: 200
  max_telemetry_connections: 20
  heartbeat_interval: 15s
  heartbeat_timeout: 3s
  heartbeat_max_retries: 4
logging:
  level: debug
  format: text
archive:
  bucket: "fleet-missions"
  region: "us-east-1"
  prefix: "/missions/"
`
	cfgPath := writeTempConfig(t, content)
	cfg, err := LoadStationConfig(cfgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Station.MaxRovers != 8 {
		t.Errorf("expected max_rovers 8, got %d", cfg.Station.MaxRovers)
	}
	if cfg.Station.HeartbeatInterval != 15*time.Second {
		t.Errorf("expected heartbeat_interval 15s, got %s", cfg.Station.HeartbeatInterval)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("expected logging debug/text, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if !cfg.Archive.Enabled() {
		t.Error("expected archive enabled when bucket set")
	}
	if cfg.Archive.Prefix != "missions/" {
		t.Errorf("expected leading slash trimmed from prefix, got %q", cfg.Archive.Prefix)
	}
}

func TestLoadStationConfig_FileNotFound(t *testing.T) {
	_, err := LoadStationConfig("/nonexistent/path/station.yaml")
	if err == nil {
		t.Fatal("expected error for non-existent file")
	}
}

func TestLoadStationConfig_InvalidYAML(t *testing.T) {
	cfgPath := writeTempConfig(t, "{{invalid yaml}}")
	_, err := LoadStationConfig(cfgPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

const minimalRoverYAML = `
rover:
  id: "ROVER-01"
station:
  command_addr: "station:5005"
  telemetry_addr: "station:5006"
`

func TestLoadRoverConfig_Defaults(t *testing.T) {
	cfgPath := writeTempConfig(t, minimalRoverYAML)
	cfg, err := LoadRoverConfig(cfgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Rover.StateDir != "rovers" {
		t.Errorf("expected default state_dir 'rovers', got %q", cfg.Rover.StateDir)
	}
	if cfg.Rover.BatteryPct != 100 {
		t.Errorf("expected default battery_pct 100, got %d", cfg.Rover.BatteryPct)
	}
	if cfg.Retry.HandshakeRetries != 5 || cfg.Retry.HandshakeTimeout != 2*time.Second {
		t.Errorf("unexpected handshake retry defaults: %+v", cfg.Retry)
	}
	if cfg.Retry.AckRetries != 5 || cfg.Retry.AckTimeout != time.Second {
		t.Errorf("unexpected ack retry defaults: %+v", cfg.Retry)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("expected default logging info/json, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadRoverConfig_MissingID(t *testing.T) {
	content := `
station:
  command_addr: "station:5005"
  telemetry_addr: "station:5006"
`
	cfgPath := writeTempConfig(t, content)
	_, err := LoadRoverConfig(cfgPath)
	if err == nil {
		t.Fatal("expected error for missing rover.id")
	}
}

func TestLoadRoverConfig_IDTooLong(t *testing.T) {
	content := `
rover:
  id: "ROVER-WITH-A-NAME-LONGER-THAN-THIRTY-TWO-BYTES"
station:
  command_addr: "station:5005"
  telemetry_addr: "station:5006"
`
	cfgPath := writeTempConfig(t, content)
	_, err := LoadRoverConfig(cfgPath)
	if err == nil {
		t.Fatal("expected error for rover.id over 32 bytes")
	}
}

func TestLoadRoverConfig_MissingStationAddrs(t *testing.T) {
	content := `
rover:
  id: "ROVER-01"
`
	cfgPath := writeTempConfig(t, content)
	_, err := LoadRoverConfig(cfgPath)
	if err == nil {
		t.Fatal("expected error for missing station addresses")
	}
}

func TestLoadRoverConfig_BatteryPctOutOfRange(t *testing.T) {
	content := `
rover:
  id: "ROVER-01"
  battery_pct: 150
station:
  command_addr: "station:5005"
  telemetry_addr: "station:5006"
`
	cfgPath := writeTempConfig(t, content)
	_, err := LoadRoverConfig(cfgPath)
	if err == nil {
		t.Fatal("expected error for battery_pct > 100")
	}
}

func TestLoadRoverConfig_FileNotFound(t *testing.T) {
	_, err := LoadRoverConfig("/nonexistent/path/rover.yaml")
	if err == nil {
		t.Fatal("expected error for non-existent file")
	}
}

func TestLoadRoverConfig_InvalidYAML(t *testing.T) {
	cfgPath := writeTempConfig(t, "{{invalid yaml}}")
	_, err := LoadRoverConfig(cfgPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10mb", 10 * 1024 * 1024, false},
		{"1gb", 1024 * 1024 * 1024, false},
		{"512kb", 512 * 1024, false},
		{"128b", 128, false},
		{"1024", 1024, false},
		{"", 0, true},
		{"not-a-size", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseByteSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseByteSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseByteSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
