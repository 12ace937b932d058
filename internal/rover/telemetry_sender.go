// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package rover

import (
	"context"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"github.com/fleetops/motherbase/internal/wire"
)

// telemetryInterval is how often the rover streams a TelemetryRecord.
// Independent of the mission's update_interval, which only governs
// PROGRESS reports on the command channel.
const telemetryInterval = time.Second

const (
	telemetryReconnectDelay    = time.Second
	telemetryMaxReconnectDelay = 10 * time.Second
)

// telemetrySender maintains a long-lived TCP connection to the station's
// telemetry port and streams one fixed-size TelemetryRecord per tick. A
// dropped connection is reconnected with exponential backoff.
type telemetrySender struct {
	addr   string
	status *status
	logger *slog.Logger
	rng    *rand.Rand
}

func newTelemetrySender(addr string, st *status, logger *slog.Logger) *telemetrySender {
	return &telemetrySender{
		addr:   addr,
		status: st,
		logger: logger.With("component", "telemetry_sender"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// run blocks until ctx is canceled, reconnecting as needed.
func (t *telemetrySender) run(ctx context.Context) {
	delay := telemetryReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := net.DialTimeout("tcp", t.addr, 5*time.Second)
		if err != nil {
			t.logger.Warn("telemetry connect failed, retrying", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > telemetryMaxReconnectDelay {
				delay = telemetryMaxReconnectDelay
			}
			continue
		}

		delay = telemetryReconnectDelay
		t.logger.Info("telemetry stream connected", "addr", t.addr)
		t.streamUntilError(ctx, conn)
		conn.Close()
	}
}

func (t *telemetrySender) streamUntilError(ctx context.Context, conn net.Conn) {
	ticker := time.NewTicker(telemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec := t.status.snapshotTelemetry(t.simulatedTemperature(), t.simulatedSignal(), t.rng.Uint32())
			rec.Timestamp = uint32(time.Now().Unix())

			data, err := wire.EncodeTelemetry(rec)
			if err != nil {
				t.logger.Error("encoding telemetry record", "error", err)
				continue
			}
			if _, err := conn.Write(data); err != nil {
				t.logger.Warn("telemetry write failed, reconnecting", "error", err)
				return
			}
		}
	}
}

// simulatedTemperature and simulatedSignal stand in for sensor reads the
// spec explicitly leaves external to the wire contract.
func (t *telemetrySender) simulatedTemperature() float32 {
	return 18 + t.rng.Float32()*12
}

func (t *telemetrySender) simulatedSignal() uint8 {
	return uint8(60 + t.rng.Intn(41))
}
