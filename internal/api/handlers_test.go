// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetops/motherbase/internal/station"
)

func seedRegistry() *station.Registry {
	reg := station.NewRegistry(5, 100, 1)
	reg.Lock()
	s, _ := reg.SessionOrCreate("ROVER-01", nil, time.Now())
	s.Battery = 70
	s.Progress = 40
	m, _ := reg.CreateMission("ROVER-01", time.Now())
	s.MissionID = m.ID
	reg.UpdateMission(m.ID, 40, 70, time.Now())
	view := reg.TelemetryOrCreate("ROVER-01")
	view.Battery = 70
	view.Active = true
	reg.Unlock()
	return reg
}

func TestSystemStatus(t *testing.T) {
	reg := seedRegistry()
	router := NewRouter(reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("unexpected content type: %q", ct)
	}
	if cors := rec.Header().Get("Access-Control-Allow-Origin"); cors != "*" {
		t.Errorf("unexpected CORS header: %q", cors)
	}

	var body systemStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.System.Rovers.Total != 1 {
		t.Errorf("expected 1 rover, got %d", body.System.Rovers.Total)
	}
	if body.System.Missions.Total != 1 {
		t.Errorf("expected 1 mission, got %d", body.System.Missions.Total)
	}
}

func TestRoversList(t *testing.T) {
	reg := seedRegistry()
	router := NewRouter(reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rovers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body roversResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Rovers) != 1 || body.Rovers[0].ID != "ROVER-01" {
		t.Errorf("unexpected rovers list: %+v", body.Rovers)
	}
}

func TestRoverDetail_NotFound(t *testing.T) {
	reg := seedRegistry()
	router := NewRouter(reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rovers/UNKNOWN", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshaling response body: %v", err)
	}
	if body["error"] != "Rover not found" {
		t.Errorf(`expected body {"error":"Rover not found"}, got %v`, body)
	}
}

func TestMissionDetail_Found(t *testing.T) {
	reg := seedRegistry()
	router := NewRouter(reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/missions/M-001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTelemetryDetail_Found(t *testing.T) {
	reg := seedRegistry()
	router := NewRouter(reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/telemetry/ROVER-01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUnknownEndpoint_Returns404WithEnumeration(t *testing.T) {
	reg := seedRegistry()
	router := NewRouter(reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/nonsense", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, ok := body["endpoints"]; !ok {
		t.Error("expected endpoints enumeration in 404 body")
	}
}
