// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package station

import (
	"testing"
	"time"
)

func TestSessionOrCreate_CapacityEnforced(t *testing.T) {
	reg := NewRegistry(1, 10, 1)
	now := time.Now()

	reg.Lock()
	_, err := reg.SessionOrCreate("ROVER-01", nil, now)
	reg.Unlock()
	if err != nil {
		t.Fatalf("first session should succeed: %v", err)
	}

	reg.Lock()
	_, err = reg.SessionOrCreate("ROVER-02", nil, now)
	reg.Unlock()
	if err != ErrSessionTableFull {
		t.Fatalf("expected ErrSessionTableFull, got %v", err)
	}
}

func TestSessionOrCreate_ExistingIsReturned(t *testing.T) {
	reg := NewRegistry(5, 10, 1)
	now := time.Now()

	reg.Lock()
	s1, _ := reg.SessionOrCreate("ROVER-01", nil, now)
	s1.Battery = 42
	s2, _ := reg.SessionOrCreate("ROVER-01", nil, now)
	reg.Unlock()

	if s1 != s2 {
		t.Fatal("expected same session pointer for repeated rover id")
	}
	if s2.Battery != 42 {
		t.Errorf("expected mutation to persist, got battery=%d", s2.Battery)
	}
}

func TestCreateMission_CapacityEnforced(t *testing.T) {
	reg := NewRegistry(5, 1, 1)
	now := time.Now()

	reg.Lock()
	_, ok := reg.CreateMission("ROVER-01", now)
	reg.Unlock()
	if !ok {
		t.Fatal("first mission should succeed")
	}

	reg.Lock()
	_, ok = reg.CreateMission("ROVER-02", now)
	reg.Unlock()
	if ok {
		t.Fatal("expected mission creation to fail at capacity")
	}
}

func TestCreateMission_IDsAreSequential(t *testing.T) {
	reg := NewRegistry(5, 10, 1)
	now := time.Now()

	reg.Lock()
	m1, _ := reg.CreateMission("ROVER-01", now)
	m2, _ := reg.CreateMission("ROVER-01", now)
	reg.Unlock()

	if m1.ID != "M-001" || m2.ID != "M-002" {
		t.Errorf("expected sequential ids M-001/M-002, got %s/%s", m1.ID, m2.ID)
	}
}

func TestUpdateMission_BumpsCounters(t *testing.T) {
	reg := NewRegistry(5, 10, 1)
	now := time.Now()

	reg.Lock()
	m, _ := reg.CreateMission("ROVER-01", now)
	reg.UpdateMission(m.ID, 50, 80, now.Add(time.Second))
	reg.UpdateMission(m.ID, 75, 60, now.Add(2*time.Second))
	updated, _ := reg.Mission(m.ID)
	reg.Unlock()

	if updated.Progress != 75 || updated.Battery != 60 {
		t.Errorf("expected progress=75 battery=60, got progress=%d battery=%d", updated.Progress, updated.Battery)
	}
	if updated.UpdatesCount != 2 {
		t.Errorf("expected updates_count=2, got %d", updated.UpdatesCount)
	}
}

func TestMarkComplete_Idempotent(t *testing.T) {
	reg := NewRegistry(5, 10, 1)
	now := time.Now()

	reg.Lock()
	m, _ := reg.CreateMission("ROVER-01", now)
	reg.MarkComplete(m.ID)
	reg.MarkComplete(m.ID)
	reg.Unlock()

	if !m.Completed {
		t.Fatal("expected mission to be marked completed")
	}
}

func TestTelemetryOrCreate_ReturnsSameView(t *testing.T) {
	reg := NewRegistry(5, 10, 1)

	reg.Lock()
	v1 := reg.TelemetryOrCreate("ROVER-01")
	v1.Battery = 55
	v2 := reg.TelemetryOrCreate("ROVER-01")
	reg.Unlock()

	if v1 != v2 || v2.Battery != 55 {
		t.Error("expected TelemetryOrCreate to return the same view on repeated calls")
	}
}
