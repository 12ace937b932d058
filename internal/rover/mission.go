// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package rover

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/fleetops/motherbase/internal/datagram"
	"github.com/fleetops/motherbase/internal/wire"
)

// batteryDrainPerTick is how many percentage points of battery the
// simulated rover consumes per report tick (each PROGRESS and the final
// COMPLETE). The spec leaves the
// battery/position simulation entirely to the rover client.
const batteryDrainPerTick = 2

// executeMission drives one assigned mission to completion: it ticks at
// the station-assigned update_interval, advances simulated position and
// battery, reports PROGRESS, and finally reports COMPLETE. It returns once
// the mission finishes or ctx is canceled.
func executeMission(ctx context.Context, conn *datagram.Conn, stationAddr *net.UDPAddr, st *status, assign *wire.Packet, stateDir string, logger *slog.Logger) {
	logger = logger.With("mission_id", assign.MissionID, "task_type", assign.TaskType)

	interval := time.Duration(assign.UpdateInterval) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	duration := time.Duration(assign.Duration) * time.Second
	if duration <= 0 {
		duration = interval
	}

	st.setAssigned(assign.Seq, assign.MissionID, assign.TaskType, assign.X1, assign.Y1)
	persistStatus(stateDir, st, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	battery := st.snapshotState().Battery

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		elapsed := time.Since(start)
		pct := 100 * elapsed.Seconds() / duration.Seconds()
		if pct > 100 {
			pct = 100
		}
		progress := uint8(pct)

		if battery > batteryDrainPerTick {
			battery -= batteryDrainPerTick
		} else {
			battery = 0
		}

		x := assign.X1 + (assign.X2-assign.X1)*float32(pct)/100
		y := assign.Y1 + (assign.Y2-assign.Y1)*float32(pct)/100

		seq := st.currentSeq() + 1
		if progress >= 100 {
			sendComplete(conn, stationAddr, st, seq, battery, logger)
			persistStatus(stateDir, st, logger)
			return
		}

		st.setProgress(seq, progress, battery, x, y)
		sendProgress(conn, stationAddr, st, seq, progress, battery, logger)
		persistStatus(stateDir, st, logger)
	}
}

func sendProgress(conn *datagram.Conn, stationAddr *net.UDPAddr, st *status, seq uint32, progress, battery uint8, logger *slog.Logger) {
	pkt := &wire.Packet{
		Type:     wire.TypeProgress,
		Seq:      seq,
		RoverID:  st.roverID,
		Battery:  battery,
		Progress: progress,
	}
	if err := conn.SendWithAck(stationAddr, pkt); err != nil {
		logger.Warn("progress report not acked", "error", err, "seq", seq, "progress", progress)
	}
}

func sendComplete(conn *datagram.Conn, stationAddr *net.UDPAddr, st *status, seq uint32, battery uint8, logger *slog.Logger) {
	pkt := &wire.Packet{
		Type:    wire.TypeComplete,
		Seq:     seq,
		RoverID: st.roverID,
		Battery: battery,
	}
	if err := conn.SendWithAck(stationAddr, pkt); err != nil {
		logger.Warn("complete report not acked", "error", err, "seq", seq)
	}
	st.setComplete(seq, battery)
	logger.Info("mission completed", "battery", battery)
}

func persistStatus(stateDir string, st *status, logger *slog.Logger) {
	if err := saveState(stateDir, st.snapshotState()); err != nil {
		logger.Warn("persisting rover state failed", "error", err)
	}
}
