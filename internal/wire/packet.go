// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package wire implements the binary codec for the command-channel Packet
// and the telemetry-channel TelemetryRecord. Both are fixed-size,
// little-endian, NUL-padded frames with no host-dependent alignment.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Packet types.
const (
	TypeHandshake byte = 0xFF
	TypeRequest   byte = 0x01
	TypeAssign    byte = 0x02
	TypeProgress  byte = 0x03
	TypeComplete  byte = 0x04
	TypeAck       byte = 0x05
	TypePing      byte = 0x0A
	TypePong      byte = 0x0B
)

// PacketSize is the exact on-wire size of a Packet, in bytes.
const PacketSize = 228

const (
	roverIDFieldLen   = 32
	missionIDFieldLen = 32
	taskTypeFieldLen  = 64
	packetReservedLen = 65 // trailing zero padding bringing the frame to PacketSize
)

var (
	// ErrTruncated is returned when a buffer is shorter than PacketSize.
	ErrTruncated = errors.New("wire: truncated packet")
	// ErrUnknownType is returned when a packet's type byte is not one of
	// the enumerated set.
	ErrUnknownType = errors.New("wire: unknown packet type")
	// ErrFieldTooLong is returned when a string field does not fit in its
	// fixed-size wire slot.
	ErrFieldTooLong = errors.New("wire: field exceeds fixed width")
)

// Packet is the single command-channel frame exchanged over UDP between
// rover and station. All unused fields in non-ASSIGN frames are zero.
type Packet struct {
	Type      byte
	Seq       uint32
	Battery   uint8
	Progress  uint8
	Nonce     uint32
	RoverID   string
	MissionID string
	TaskType  string

	// Area rectangle and timing, populated on ASSIGN only.
	X1, Y1, X2, Y2 float32
	Duration       uint32
	UpdateInterval uint32
}

func isKnownType(t byte) bool {
	switch t {
	case TypeHandshake, TypeRequest, TypeAssign, TypeProgress, TypeComplete, TypeAck, TypePing, TypePong:
		return true
	default:
		return false
	}
}

// Encode serializes p into the fixed 228-byte wire layout.
func Encode(p *Packet) ([]byte, error) {
	roverID, err := packField(p.RoverID, roverIDFieldLen)
	if err != nil {
		return nil, fmt.Errorf("encoding rover_id: %w", err)
	}
	missionID, err := packField(p.MissionID, missionIDFieldLen)
	if err != nil {
		return nil, fmt.Errorf("encoding mission_id: %w", err)
	}
	taskType, err := packField(p.TaskType, taskTypeFieldLen)
	if err != nil {
		return nil, fmt.Errorf("encoding task_type: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, PacketSize))

	fields := []any{
		p.Type,
		p.Seq,
		p.Battery,
		p.Progress,
		p.Nonce,
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("encoding packet header: %w", err)
		}
	}
	buf.Write(roverID)
	buf.Write(missionID)
	buf.Write(taskType)

	tail := []any{p.X1, p.Y1, p.X2, p.Y2, p.Duration, p.UpdateInterval}
	for _, f := range tail {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("encoding packet tail: %w", err)
		}
	}

	buf.Write(make([]byte, packetReservedLen))

	if buf.Len() != PacketSize {
		return nil, fmt.Errorf("wire: internal encode produced %d bytes, want %d", buf.Len(), PacketSize)
	}
	return buf.Bytes(), nil
}

// Decode parses a 228-byte buffer into a Packet. Returns ErrTruncated for a
// short buffer and ErrUnknownType for an unrecognized type byte; otherwise
// decoding cannot fail.
func Decode(data []byte) (*Packet, error) {
	if len(data) < PacketSize {
		return nil, ErrTruncated
	}

	r := bytes.NewReader(data[:PacketSize])
	var p Packet

	if err := binary.Read(r, binary.LittleEndian, &p.Type); err != nil {
		return nil, fmt.Errorf("decoding type: %w", err)
	}
	if !isKnownType(p.Type) {
		return nil, ErrUnknownType
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Seq); err != nil {
		return nil, fmt.Errorf("decoding seq: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Battery); err != nil {
		return nil, fmt.Errorf("decoding battery: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Progress); err != nil {
		return nil, fmt.Errorf("decoding progress: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Nonce); err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}

	roverID := make([]byte, roverIDFieldLen)
	if _, err := io.ReadFull(r, roverID); err != nil {
		return nil, fmt.Errorf("decoding rover_id: %w", err)
	}
	p.RoverID = unpackField(roverID)

	missionID := make([]byte, missionIDFieldLen)
	if _, err := io.ReadFull(r, missionID); err != nil {
		return nil, fmt.Errorf("decoding mission_id: %w", err)
	}
	p.MissionID = unpackField(missionID)

	taskType := make([]byte, taskTypeFieldLen)
	if _, err := io.ReadFull(r, taskType); err != nil {
		return nil, fmt.Errorf("decoding task_type: %w", err)
	}
	p.TaskType = unpackField(taskType)

	for _, dst := range []*float32{&p.X1, &p.Y1, &p.X2, &p.Y2} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("decoding area rectangle: %w", err)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Duration); err != nil {
		return nil, fmt.Errorf("decoding duration: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &p.UpdateInterval); err != nil {
		return nil, fmt.Errorf("decoding update_interval: %w", err)
	}

	return &p, nil
}

// packField renders s as a fixed-width, NUL-padded byte slice.
func packField(s string, width int) ([]byte, error) {
	if len(s) > width {
		return nil, fmt.Errorf("%w: %q is %d bytes, field width is %d", ErrFieldTooLong, s, len(s), width)
	}
	out := make([]byte, width)
	copy(out, s)
	return out, nil
}

// unpackField trims trailing NUL bytes from a fixed-width field.
func unpackField(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return string(b)
	}
	return string(b[:i])
}
