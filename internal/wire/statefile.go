// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// RoverStateSize is the exact on-wire size of a persisted rover state
// record, written to rovers/rover_<rover_id>_state.bin.
const RoverStateSize = roverIDFieldLen + missionIDFieldLen + taskTypeFieldLen + 4 + 1 + 1 + 4 + 4 + 4

// RoverState is the rover client's on-disk checkpoint, reloaded on restart
// to resume seq numbering, battery and position; the rover restarts idle
// and requests a new mission rather than resuming the recorded one.
type RoverState struct {
	RoverID   string
	MissionID string
	TaskType  string
	Seq       uint32
	Battery   uint8
	Progress  uint8
	PositionX float32
	PositionY float32
	Timestamp uint32
}

// EncodeRoverState serializes s into its fixed wire layout.
func EncodeRoverState(s *RoverState) ([]byte, error) {
	roverID, err := packField(s.RoverID, roverIDFieldLen)
	if err != nil {
		return nil, fmt.Errorf("encoding rover_id: %w", err)
	}
	missionID, err := packField(s.MissionID, missionIDFieldLen)
	if err != nil {
		return nil, fmt.Errorf("encoding mission_id: %w", err)
	}
	taskType, err := packField(s.TaskType, taskTypeFieldLen)
	if err != nil {
		return nil, fmt.Errorf("encoding task_type: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, RoverStateSize))
	buf.Write(roverID)
	buf.Write(missionID)
	buf.Write(taskType)

	tail := []any{s.Seq, s.Battery, s.Progress, s.PositionX, s.PositionY, s.Timestamp}
	for _, f := range tail {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("encoding rover state tail: %w", err)
		}
	}

	if buf.Len() != RoverStateSize {
		return nil, fmt.Errorf("wire: internal encode produced %d bytes, want %d", buf.Len(), RoverStateSize)
	}
	return buf.Bytes(), nil
}

// DecodeRoverState parses a RoverStateSize-byte buffer.
func DecodeRoverState(data []byte) (*RoverState, error) {
	if len(data) < RoverStateSize {
		return nil, ErrTruncated
	}

	r := bytes.NewReader(data[:RoverStateSize])
	var s RoverState

	roverID := make([]byte, roverIDFieldLen)
	if _, err := io.ReadFull(r, roverID); err != nil {
		return nil, fmt.Errorf("decoding rover_id: %w", err)
	}
	s.RoverID = unpackField(roverID)

	missionID := make([]byte, missionIDFieldLen)
	if _, err := io.ReadFull(r, missionID); err != nil {
		return nil, fmt.Errorf("decoding mission_id: %w", err)
	}
	s.MissionID = unpackField(missionID)

	taskType := make([]byte, taskTypeFieldLen)
	if _, err := io.ReadFull(r, taskType); err != nil {
		return nil, fmt.Errorf("decoding task_type: %w", err)
	}
	s.TaskType = unpackField(taskType)

	if err := binary.Read(r, binary.LittleEndian, &s.Seq); err != nil {
		return nil, fmt.Errorf("decoding seq: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &s.Battery); err != nil {
		return nil, fmt.Errorf("decoding battery: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &s.Progress); err != nil {
		return nil, fmt.Errorf("decoding progress: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &s.PositionX); err != nil {
		return nil, fmt.Errorf("decoding position_x: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &s.PositionY); err != nil {
		return nil, fmt.Errorf("decoding position_y: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &s.Timestamp); err != nil {
		return nil, fmt.Errorf("decoding timestamp: %w", err)
	}

	return &s, nil
}
