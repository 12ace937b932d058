// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package rover

import (
	"testing"

	"github.com/fleetops/motherbase/internal/wire"
)

func TestLoadState_MissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	s, err := loadState(dir, "ROVER-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Fatal("expected nil state for missing file")
	}
}

func TestSaveAndLoadState_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := &wire.RoverState{
		RoverID:   "ROVER-01",
		MissionID: "M-001",
		TaskType:  "scan_area",
		Seq:       4,
		Battery:   70,
		Progress:  100,
		PositionX: 12.5,
		PositionY: 30,
	}

	if err := saveState(dir, want); err != nil {
		t.Fatalf("saveState: %v", err)
	}

	got, err := loadState(dir, "ROVER-01")
	if err != nil {
		t.Fatalf("loadState: %v", err)
	}
	if got.Seq != want.Seq || got.MissionID != want.MissionID || got.Battery != want.Battery {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}
