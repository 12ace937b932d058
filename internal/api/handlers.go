// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package api

import (
	"net/http"
	"time"

	"github.com/fleetops/motherbase/internal/station"
	"github.com/fleetops/motherbase/internal/stationstats"
)

// roverActiveWindow is how recently the rover's session must have seen
// command-channel activity (LastActivity) for its surfaced status to read
// "active", per spec §4.8.
const roverActiveWindow = 35 * time.Second

// hostStatsMaxAge bounds how old a host-stats sample can be and still be
// served; well past the default 15s sampling cadence but short enough to
// catch a dead sampling goroutine rather than serve a stale reading forever.
const hostStatsMaxAge = time.Minute

type systemStatusResponse struct {
	System systemStatus `json:"system"`
}

type systemStatus struct {
	Timestamp string              `json:"timestamp"`
	Rovers    countPair           `json:"rovers"`
	Missions  missionCounts       `json:"missions"`
	Telemetry telemetryCounts     `json:"telemetry"`
	Host      *stationstats.HostStats `json:"host,omitempty"`
}

type countPair struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

type missionCounts struct {
	Total      int `json:"total"`
	Capacity   int `json:"capacity"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

type telemetryCounts struct {
	Sessions int `json:"sessions"`
	Active   int `json:"active"`
}

func handleSystemStatus(reg *station.Registry, monitor *stationstats.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		reg.Lock()
		sessions := reg.Sessions()
		missions := reg.Missions()
		views := reg.TelemetryViews()

		resp := systemStatusResponse{System: systemStatus{
			Timestamp: now.UTC().Format("2006-01-02T15:04:05Z"),
		}}
		resp.System.Rovers.Total = len(sessions)
		for _, s := range sessions {
			if roverStatus(s, now) == "active" {
				resp.System.Rovers.Active++
			}
		}
		resp.System.Missions.Total = len(missions)
		resp.System.Missions.Capacity = reg.MaxMissions()
		for _, m := range missions {
			if m.Completed {
				resp.System.Missions.Completed++
			} else {
				resp.System.Missions.InProgress++
			}
		}
		resp.System.Telemetry.Sessions = len(views)
		for _, v := range views {
			if v.Active {
				resp.System.Telemetry.Active++
			}
		}
		reg.Unlock()
		if monitor != nil && !monitor.Stale(hostStatsMaxAge) {
			stats := monitor.Stats()
			resp.System.Host = &stats
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func roverStatus(s *station.RoverSession, now time.Time) string {
	if s.Active && now.Sub(s.LastActivity) < roverActiveWindow {
		return "active"
	}
	return "inactive"
}

type roverSummary struct {
	ID                   string `json:"id"`
	Status               string `json:"status"`
	Battery              uint8  `json:"battery"`
	Progress             uint8  `json:"progress"`
	MissionID            string `json:"mission_id"`
	LastUpdateSecondsAgo float64 `json:"last_update_seconds_ago"`
}

type roversResponse struct {
	Rovers []roverSummary `json:"rovers"`
}

func handleRovers(reg *station.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		reg.Lock()
		sessions := reg.Sessions()
		out := make([]roverSummary, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, summarizeRover(s, now))
		}
		reg.Unlock()
		writeJSON(w, http.StatusOK, roversResponse{Rovers: out})
	}
}

func summarizeRover(s *station.RoverSession, now time.Time) roverSummary {
	return roverSummary{
		ID:                   s.RoverID,
		Status:               roverStatus(s, now),
		Battery:              s.Battery,
		Progress:             s.Progress,
		MissionID:            s.MissionID,
		LastUpdateSecondsAgo: now.Sub(s.LastActivity).Seconds(),
	}
}

type roverDetailResponse struct {
	Rover roverDetail `json:"rover"`
}

type roverDetail struct {
	RoverID                string  `json:"rover_id"`
	Status                 string  `json:"status"`
	LastSeq                uint32  `json:"last_seq"`
	MissionID              string  `json:"mission_id"`
	TaskType               string  `json:"task_type"`
	Battery                uint8   `json:"battery"`
	Progress               uint8   `json:"progress"`
	LastActivity           string  `json:"last_activity"`
	Active                 bool    `json:"active"`
	AwaitingPong           bool    `json:"awaiting_pong"`
	ConsecutiveMissedPongs int     `json:"consecutive_missed_pongs"`
}

func handleRoverDetail(reg *station.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		now := time.Now()

		reg.Lock()
		s, ok := reg.Session(id)
		var detail roverDetail
		if ok {
			detail = roverDetail{
				RoverID:                s.RoverID,
				Status:                 roverStatus(s, now),
				LastSeq:                s.LastSeq,
				MissionID:              s.MissionID,
				TaskType:               s.TaskType,
				Battery:                s.Battery,
				Progress:               s.Progress,
				LastActivity:           s.LastActivity.UTC().Format("2006-01-02T15:04:05Z"),
				Active:                 s.Active,
				AwaitingPong:           s.AwaitingPong,
				ConsecutiveMissedPongs: s.ConsecutiveMissedPongs,
			}
		}
		reg.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Rover not found"})
			return
		}
		writeJSON(w, http.StatusOK, roverDetailResponse{Rover: detail})
	}
}

type areaRect struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

type missionSummary struct {
	ID              string   `json:"id"`
	RoverID         string   `json:"rover_id"`
	TaskType        string   `json:"task_type"`
	Progress        uint8    `json:"progress"`
	Battery         uint8    `json:"battery"`
	Status          string   `json:"status"`
	Area            areaRect `json:"area"`
	DurationMax     uint32   `json:"duration_max"`
	StartTime       string   `json:"start_time"`
	UpdatesReceived int      `json:"updates_received"`
}

type missionsResponse struct {
	Missions []missionSummary `json:"missions"`
}

func summarizeMission(m *station.MissionRecord) missionSummary {
	status := "in_progress"
	if m.Completed {
		status = "completed"
	}
	return missionSummary{
		ID:              m.ID,
		RoverID:         m.RoverID,
		TaskType:        m.TaskType,
		Progress:        m.Progress,
		Battery:         m.Battery,
		Status:          status,
		Area:            areaRect{X1: m.X1, Y1: m.Y1, X2: m.X2, Y2: m.Y2},
		DurationMax:     m.Duration,
		StartTime:       m.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatesReceived: m.UpdatesCount,
	}
}

func handleMissions(reg *station.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg.Lock()
		missions := reg.Missions()
		out := make([]missionSummary, 0, len(missions))
		for _, m := range missions {
			out = append(out, summarizeMission(m))
		}
		reg.Unlock()
		writeJSON(w, http.StatusOK, missionsResponse{Missions: out})
	}
}

type missionDetailResponse struct {
	Mission missionSummary `json:"mission"`
}

func handleMissionDetail(reg *station.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		reg.Lock()
		m, ok := reg.Mission(id)
		var summary missionSummary
		if ok {
			summary = summarizeMission(m)
		}
		reg.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "mission not found"})
			return
		}
		writeJSON(w, http.StatusOK, missionDetailResponse{Mission: summary})
	}
}

type position struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type telemetrySummary struct {
	RoverID        string   `json:"rover_id"`
	Position       position `json:"position"`
	Battery        uint8    `json:"battery"`
	Temperature    float32  `json:"temperature"`
	SignalStrength uint8    `json:"signal_strength"`
	State          uint8    `json:"state"`
	LastUpdateAgo  float64  `json:"last_update_ago"`
}

type telemetryLatestResponse struct {
	Telemetry []telemetrySummary `json:"telemetry"`
}

func summarizeTelemetry(v *station.TelemetryView, now time.Time) telemetrySummary {
	return telemetrySummary{
		RoverID:        v.RoverID,
		Position:       position{X: v.PositionX, Y: v.PositionY},
		Battery:        v.Battery,
		Temperature:    v.Temperature,
		SignalStrength: v.SignalStrength,
		State:          v.State,
		LastUpdateAgo:  now.Sub(v.LastUpdate).Seconds(),
	}
}

func handleTelemetryLatest(reg *station.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		reg.Lock()
		views := reg.TelemetryViews()
		out := make([]telemetrySummary, 0, len(views))
		for _, v := range views {
			out = append(out, summarizeTelemetry(v, now))
		}
		reg.Unlock()
		writeJSON(w, http.StatusOK, telemetryLatestResponse{Telemetry: out})
	}
}

type telemetryDetailResponse struct {
	Telemetry telemetrySummary `json:"telemetry"`
}

func handleTelemetryDetail(reg *station.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roverID := r.PathValue("rover_id")
		now := time.Now()

		reg.Lock()
		v, ok := reg.Telemetry(roverID)
		var summary telemetrySummary
		if ok {
			summary = summarizeTelemetry(v, now)
		}
		reg.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "telemetry not found"})
			return
		}
		writeJSON(w, http.StatusOK, telemetryDetailResponse{Telemetry: summary})
	}
}
