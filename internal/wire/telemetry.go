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

// Rover states carried in TelemetryRecord.State.
const (
	StateIdle      uint8 = 0
	StateInMission uint8 = 1
	StateReturning uint8 = 2
	StateError     uint8 = 3
	StateCharging  uint8 = 4
)

// TelemetryRecordSize is the exact on-wire size of a TelemetryRecord.
const TelemetryRecordSize = 4 + roverIDFieldLen + 4 + 4 + 1 + 1 + 4 + 1 + 4

// TelemetryRecord is one frame on the TCP telemetry stream. Frames are
// written back-to-back with no delimiter; the reader always consumes
// exactly TelemetryRecordSize bytes.
type TelemetryRecord struct {
	Timestamp      uint32
	RoverID        string
	PositionX      float32
	PositionY      float32
	Battery        uint8
	State          uint8
	Temperature    float32
	SignalStrength uint8
	Nonce          uint32
}

// EncodeTelemetry serializes t into its fixed wire layout.
func EncodeTelemetry(t *TelemetryRecord) ([]byte, error) {
	roverID, err := packField(t.RoverID, roverIDFieldLen)
	if err != nil {
		return nil, fmt.Errorf("encoding rover_id: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, TelemetryRecordSize))
	if err := binary.Write(buf, binary.LittleEndian, t.Timestamp); err != nil {
		return nil, fmt.Errorf("encoding timestamp: %w", err)
	}
	buf.Write(roverID)

	tail := []any{t.PositionX, t.PositionY, t.Battery, t.State, t.Temperature, t.SignalStrength, t.Nonce}
	for _, f := range tail {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("encoding telemetry tail: %w", err)
		}
	}

	if buf.Len() != TelemetryRecordSize {
		return nil, fmt.Errorf("wire: internal encode produced %d bytes, want %d", buf.Len(), TelemetryRecordSize)
	}
	return buf.Bytes(), nil
}

// DecodeTelemetry parses a TelemetryRecordSize-byte buffer.
func DecodeTelemetry(data []byte) (*TelemetryRecord, error) {
	if len(data) < TelemetryRecordSize {
		return nil, ErrTruncated
	}

	r := bytes.NewReader(data[:TelemetryRecordSize])
	var t TelemetryRecord

	if err := binary.Read(r, binary.LittleEndian, &t.Timestamp); err != nil {
		return nil, fmt.Errorf("decoding timestamp: %w", err)
	}

	roverID := make([]byte, roverIDFieldLen)
	if _, err := io.ReadFull(r, roverID); err != nil {
		return nil, fmt.Errorf("decoding rover_id: %w", err)
	}
	t.RoverID = unpackField(roverID)

	if err := binary.Read(r, binary.LittleEndian, &t.PositionX); err != nil {
		return nil, fmt.Errorf("decoding position_x: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &t.PositionY); err != nil {
		return nil, fmt.Errorf("decoding position_y: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &t.Battery); err != nil {
		return nil, fmt.Errorf("decoding battery: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &t.State); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &t.Temperature); err != nil {
		return nil, fmt.Errorf("decoding temperature: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &t.SignalStrength); err != nil {
		return nil, fmt.Errorf("decoding signal_strength: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &t.Nonce); err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}

	return &t, nil
}
