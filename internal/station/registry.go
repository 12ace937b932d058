// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package station implements the mothership side of the fleet protocol:
// the session, mission, and telemetry tables, the heartbeat scheduler, and
// the mission protocol engine that drives them from incoming packets.
package station

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"
)

// TaskSpec is one entry of the fixed task parameter table missions are
// drawn from at assignment time.
type TaskSpec struct {
	TaskType string
	X1, Y1   float32
	X2, Y2   float32
	Duration uint32
}

// taskTable is the fixed set of task types and their area/duration
// parameters. Order only matters for deterministic test fixtures.
var taskTable = []TaskSpec{
	{TaskType: "capture_images", X1: 10, Y1: 10, X2: 30, Y2: 30, Duration: 300},
	{TaskType: "analyze_soil", X1: 20, Y1: 20, X2: 25, Y2: 25, Duration: 600},
	{TaskType: "collect_samples", X1: 5, Y1: 5, X2: 45, Y2: 45, Duration: 900},
	{TaskType: "scan_area", X1: 0, Y1: 0, X2: 50, Y2: 50, Duration: 400},
	{TaskType: "deploy_sensor", X1: 15, Y1: 15, X2: 35, Y2: 35, Duration: 500},
}

const updateIntervalSeconds = 10

// RoverSession tracks everything the station knows about one rover,
// keyed by rover id. All mutation goes through Registry's lock.
type RoverSession struct {
	RoverID                string
	Addr                   *net.UDPAddr
	LastSeq                uint32
	MissionID              string
	TaskType               string
	Battery                uint8
	Progress               uint8
	LastActivity           time.Time
	LastPingSent           time.Time
	Active                 bool
	AwaitingPong           bool
	ConsecutiveMissedPongs int
}

// MissionRecord tracks one assigned mission, keyed by its generated id.
// Never deleted once created.
type MissionRecord struct {
	ID            string
	RoverID       string
	TaskType      string
	X1, Y1        float32
	X2, Y2        float32
	Duration      uint32
	UpdateInterval uint32
	Progress      uint8
	Battery       uint8
	StartTime     time.Time
	LastUpdate    time.Time
	UpdatesCount  int
	Completed     bool
}

// TelemetryView holds the latest telemetry snapshot for one rover.
type TelemetryView struct {
	RoverID        string
	PositionX      float32
	PositionY      float32
	Battery        uint8
	State          uint8
	Temperature    float32
	SignalStrength uint8
	LastUpdate     time.Time
	Active         bool
}

// ErrSessionTableFull is returned when MAX_ROVERS is reached and a packet
// arrives from an unknown rover id.
var ErrSessionTableFull = fmt.Errorf("station: session table full")

// Registry is the single-writer-discipline home of the three in-memory
// tables the spec requires: sessions, missions, and telemetry. All
// mutation and all API reads go through its lock, so an HTTP handler can
// take a consistent snapshot across tables for one request.
type Registry struct {
	mu sync.Mutex

	maxRovers   int
	maxMissions int

	sessions  map[string]*RoverSession
	missions  map[string]*MissionRecord
	telemetry map[string]*TelemetryView

	missionSeq int
	rng        *rand.Rand
}

// NewRegistry builds an empty registry capped at maxRovers sessions and
// maxMissions missions.
func NewRegistry(maxRovers, maxMissions int, seed int64) *Registry {
	return &Registry{
		maxRovers:   maxRovers,
		maxMissions: maxMissions,
		sessions:    make(map[string]*RoverSession),
		missions:    make(map[string]*MissionRecord),
		telemetry:   make(map[string]*TelemetryView),
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// MaxMissions reports the configured mission table capacity.
func (r *Registry) MaxMissions() int { return r.maxMissions }

// Lock/Unlock expose the registry's single lock so callers (the protocol
// engine, heartbeat scheduler, and API handlers) can batch several table
// operations into one consistent critical section.
func (r *Registry) Lock()   { r.mu.Lock() }
func (r *Registry) Unlock() { r.mu.Unlock() }

// SessionOrCreate returns the session for roverID, creating one if this
// is the first packet ever seen from it. Returns ErrSessionTableFull if
// the table is at capacity and roverID is new. Caller must hold the lock.
func (r *Registry) SessionOrCreate(roverID string, addr *net.UDPAddr, now time.Time) (*RoverSession, error) {
	if s, ok := r.sessions[roverID]; ok {
		s.Addr = addr
		return s, nil
	}
	if len(r.sessions) >= r.maxRovers {
		return nil, ErrSessionTableFull
	}
	s := &RoverSession{
		RoverID:      roverID,
		Addr:         addr,
		LastActivity: now,
		Active:       true,
	}
	r.sessions[roverID] = s
	return s, nil
}

// Session looks up an existing session without creating one. Caller must
// hold the lock.
func (r *Registry) Session(roverID string) (*RoverSession, bool) {
	s, ok := r.sessions[roverID]
	return s, ok
}

// Sessions returns all sessions. Caller must hold the lock for the
// duration of any use of the returned slice's pointees.
func (r *Registry) Sessions() []*RoverSession {
	out := make([]*RoverSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// CreateMission allocates a new mission id, draws a random task spec from
// the fixed table, and fills a MissionRecord for roverID. Returns false if
// the mission table is at capacity. Caller must hold the lock.
func (r *Registry) CreateMission(roverID string, now time.Time) (*MissionRecord, bool) {
	if len(r.missions) >= r.maxMissions {
		return nil, false
	}
	r.missionSeq++
	id := fmt.Sprintf("M-%03d", r.missionSeq)
	spec := taskTable[r.rng.Intn(len(taskTable))]

	m := &MissionRecord{
		ID:             id,
		RoverID:        roverID,
		TaskType:       spec.TaskType,
		X1:             spec.X1,
		Y1:             spec.Y1,
		X2:             spec.X2,
		Y2:             spec.Y2,
		Duration:       spec.Duration,
		UpdateInterval: updateIntervalSeconds,
		Progress:       0,
		Battery:        100,
		StartTime:      now,
		LastUpdate:     now,
	}
	r.missions[id] = m
	return m, true
}

// Mission looks up a mission by id. Caller must hold the lock.
func (r *Registry) Mission(id string) (*MissionRecord, bool) {
	m, ok := r.missions[id]
	return m, ok
}

// Missions returns all missions. Caller must hold the lock.
func (r *Registry) Missions() []*MissionRecord {
	out := make([]*MissionRecord, 0, len(r.missions))
	for _, m := range r.missions {
		out = append(out, m)
	}
	return out
}

// UpdateMission bumps updates_count, refreshes last_update, and overwrites
// progress/battery. Caller must hold the lock.
func (r *Registry) UpdateMission(id string, progress, battery uint8, now time.Time) {
	m, ok := r.missions[id]
	if !ok {
		return
	}
	m.Progress = progress
	m.Battery = battery
	m.LastUpdate = now
	m.UpdatesCount++
}

// MarkComplete sets completed=true. Idempotent. Caller must hold the lock.
func (r *Registry) MarkComplete(id string) {
	if m, ok := r.missions[id]; ok {
		m.Completed = true
	}
}

// TelemetryOrCreate returns the telemetry view for roverID, creating one
// on first contact. Caller must hold the lock.
func (r *Registry) TelemetryOrCreate(roverID string) *TelemetryView {
	v, ok := r.telemetry[roverID]
	if ok {
		return v
	}
	v = &TelemetryView{RoverID: roverID}
	r.telemetry[roverID] = v
	return v
}

// Telemetry looks up a telemetry view by rover id. Caller must hold the
// lock.
func (r *Registry) Telemetry(roverID string) (*TelemetryView, bool) {
	v, ok := r.telemetry[roverID]
	return v, ok
}

// TelemetryViews returns all telemetry views. Caller must hold the lock.
func (r *Registry) TelemetryViews() []*TelemetryView {
	out := make([]*TelemetryView, 0, len(r.telemetry))
	for _, v := range r.telemetry {
		out = append(out, v)
	}
	return out
}
