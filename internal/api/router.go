// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package api implements the observation API (C8): a small read-only
// HTTP/1.1 surface over the station's session, mission, and telemetry
// tables. Every endpoint answers with one consistent snapshot of the
// tables, taken under the registry's lock.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/fleetops/motherbase/internal/station"
	"github.com/fleetops/motherbase/internal/stationstats"
)

var knownEndpoints = []string{
	"/api/system/status",
	"/api/rovers",
	"/api/rovers/{id}",
	"/api/missions",
	"/api/missions/{id}",
	"/api/telemetry/latest",
	"/api/telemetry/{rover_id}",
}

// NewRouter builds the observation API's http.Handler. monitor may be nil
// when host-stats sampling is disabled; system/status then omits "host".
func NewRouter(reg *station.Registry, monitor *stationstats.Monitor) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/system/status", handleSystemStatus(reg, monitor))
	mux.HandleFunc("GET /api/rovers", handleRovers(reg))
	mux.HandleFunc("GET /api/rovers/{id}", handleRoverDetail(reg))
	mux.HandleFunc("GET /api/missions", handleMissions(reg))
	mux.HandleFunc("GET /api/missions/{id}", handleMissionDetail(reg))
	mux.HandleFunc("GET /api/telemetry/latest", handleTelemetryLatest(reg))
	mux.HandleFunc("GET /api/telemetry/{rover_id}", handleTelemetryDetail(reg))
	mux.HandleFunc("/", handleNotFound)

	return withCommonHeaders(mux)
}

func withCommonHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Connection", "close")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":     "unknown endpoint",
		"endpoints": knownEndpoints,
	})
}
