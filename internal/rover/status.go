// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package rover

import (
	"sync"

	"github.com/fleetops/motherbase/internal/wire"
)

// status is the rover's current simulated snapshot, mutated by the mission
// executor and read by the telemetry sender and the state-file writer.
// Reads and writes are serialized by mu so the two goroutines never race.
type status struct {
	mu sync.Mutex

	roverID   string
	missionID string
	taskType  string

	seq      uint32
	battery  uint8
	progress uint8
	posX     float32
	posY     float32
	state    uint8
}

func newStatus(roverID string, battery uint8) *status {
	return &status{roverID: roverID, battery: battery, state: wire.StateIdle}
}

func (s *status) snapshotTelemetry(temperature float32, signalStrength uint8, nonce uint32) *wire.TelemetryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &wire.TelemetryRecord{
		RoverID:        s.roverID,
		PositionX:      s.posX,
		PositionY:      s.posY,
		Battery:        s.battery,
		State:          s.state,
		Temperature:    temperature,
		SignalStrength: signalStrength,
		Nonce:          nonce,
	}
}

func (s *status) snapshotState() *wire.RoverState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &wire.RoverState{
		RoverID:   s.roverID,
		MissionID: s.missionID,
		TaskType:  s.taskType,
		Seq:       s.seq,
		Battery:   s.battery,
		Progress:  s.progress,
		PositionX: s.posX,
		PositionY: s.posY,
	}
}

func (s *status) setIdle(seq uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = seq
	s.missionID = ""
	s.taskType = ""
	s.progress = 0
	s.state = wire.StateIdle
}

func (s *status) setAssigned(seq uint32, missionID, taskType string, x1, y1 float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = seq
	s.missionID = missionID
	s.taskType = taskType
	s.posX, s.posY = x1, y1
	s.progress = 0
	s.state = wire.StateInMission
}

func (s *status) setProgress(seq uint32, progress, battery uint8, x, y float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = seq
	s.progress = progress
	s.battery = battery
	s.posX, s.posY = x, y
}

func (s *status) setComplete(seq uint32, battery uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = seq
	s.progress = 100
	s.battery = battery
	s.state = wire.StateIdle
}

func (s *status) currentSeq() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
