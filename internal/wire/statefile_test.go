// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package wire

import (
	"errors"
	"testing"
)

func TestRoverState_RoundTrip(t *testing.T) {
	s := RoverState{
		RoverID:   "ROVER-01",
		MissionID: "M-007",
		TaskType:  "deploy_sensor",
		Seq:       42,
		Battery:   63,
		Progress:  55,
		PositionX: 22.5,
		PositionY: 18.0,
		Timestamp: 1700001234,
	}

	data, err := EncodeRoverState(&s)
	if err != nil {
		t.Fatalf("EncodeRoverState: %v", err)
	}
	if len(data) != RoverStateSize {
		t.Fatalf("expected %d bytes, got %d", RoverStateSize, len(data))
	}

	got, err := DecodeRoverState(data)
	if err != nil {
		t.Fatalf("DecodeRoverState: %v", err)
	}
	if *got != s {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", *got, s)
	}
}

func TestDecodeRoverState_Truncated(t *testing.T) {
	_, err := DecodeRoverState(make([]byte, RoverStateSize-1))
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}
