// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package station

import (
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/fleetops/motherbase/internal/datagram"
	"github.com/fleetops/motherbase/internal/logging"
	"github.com/fleetops/motherbase/internal/wire"
)

const sessionLogCategory = "missions"

// Engine is the mission protocol engine (C6): it consumes decoded packets
// from the datagram layer, mutates the registry under its lock, and emits
// ACKs and ASSIGN packets. It never blocks on send_with_ack while holding
// the registry lock.
type Engine struct {
	reg    *Registry
	conn   *datagram.Conn
	logger *slog.Logger

	sessionLogDir string
	sessionFiles  map[string]*sessionLog
	sessionMu     sync.Mutex

	onEvent func(kind, roverID, missionID, detail string)
}

// NewEngine builds a protocol engine over reg and conn. When sessionLogDir
// is non-empty, every assigned mission gets its own debug-level log file
// under sessionLogDir, removed once the mission completes cleanly.
func NewEngine(reg *Registry, conn *datagram.Conn, logger *slog.Logger, sessionLogDir string) *Engine {
	return &Engine{
		reg:           reg,
		conn:          conn,
		logger:        logger.With("component", "engine"),
		sessionLogDir: sessionLogDir,
		sessionFiles:  make(map[string]*sessionLog),
	}
}

// sessionLog pairs an open per-mission logger with the file handle backing
// it, so handleProgress/handleComplete can reuse the same open file
// instead of reopening it on every line.
type sessionLog struct {
	logger *slog.Logger
	closer io.Closer
}

// OnEvent registers a callback invoked after each admissible state
// transition, for event-log/archival consumers. kind is one of
// "mission_assigned", "mission_progress", "mission_completed". fn runs
// with the registry lock held, so it must not call Registry.Lock itself.
func (e *Engine) OnEvent(fn func(kind, roverID, missionID, detail string)) {
	e.onEvent = fn
}

func (e *Engine) emit(kind, roverID, missionID, detail string) {
	if e.onEvent != nil {
		e.onEvent(kind, roverID, missionID, detail)
	}
}

// Handle processes one decoded application packet. It always ACKs, except
// PONG (which carries no ack expectation of its own) and a REQUEST from a
// new rover that is dropped because the session table is full, and only
// advances state when the packet is sequence-admissible.
func (e *Engine) Handle(recv datagram.Received) {
	pkt := recv.Packet
	now := time.Now()

	switch pkt.Type {
	case wire.TypeRequest:
		e.handleRequest(pkt, recv.Addr, now)
	case wire.TypeProgress:
		e.handleProgress(pkt, recv.Addr, now)
	case wire.TypeComplete:
		e.handleComplete(pkt, recv.Addr, now)
	case wire.TypePong:
		e.handlePong(pkt, recv.Addr, now)
	default:
		e.logger.Debug("unhandled packet type reached engine", "type", pkt.Type)
	}
}

func (e *Engine) handleRequest(pkt *wire.Packet, addr *net.UDPAddr, now time.Time) {
	e.reg.Lock()
	session, err := e.reg.SessionOrCreate(pkt.RoverID, addr, now)
	if err != nil {
		e.reg.Unlock()
		e.logger.Warn("session table full, dropping REQUEST", "rover_id", pkt.RoverID)
		return
	}

	admissible := datagram.AcceptSequence(session.LastSeq, pkt.Seq)
	var assign *wire.Packet
	if admissible {
		mission, ok := e.reg.CreateMission(pkt.RoverID, now)
		if ok {
			assignSeq := pkt.Seq + 1
			assign = &wire.Packet{
				Type:           wire.TypeAssign,
				Seq:            assignSeq,
				RoverID:        pkt.RoverID,
				MissionID:      mission.ID,
				TaskType:       mission.TaskType,
				X1:             mission.X1,
				Y1:             mission.Y1,
				X2:             mission.X2,
				Y2:             mission.Y2,
				Duration:       mission.Duration,
				UpdateInterval: mission.UpdateInterval,
			}
			session.LastSeq = assignSeq
			session.MissionID = mission.ID
			session.TaskType = mission.TaskType
			session.LastActivity = now
			e.emit("mission_assigned", pkt.RoverID, mission.ID, mission.TaskType)
			e.openSessionLog(mission.ID, pkt.RoverID, mission.TaskType)
		} else {
			e.logger.Warn("mission table full, no ASSIGN emitted", "rover_id", pkt.RoverID)
		}
	}
	e.reg.Unlock()

	// ACK first (cheap, fire-and-forget), then the ASSIGN datagram
	// (also unreliable per spec: the rover drives its own retries).
	if err := e.conn.EmitAck(addr, pkt.Seq, pkt.Nonce); err != nil {
		e.logger.Warn("emitting ack failed", "error", err, "rover_id", pkt.RoverID)
	}
	if assign != nil {
		data, err := wire.Encode(assign)
		if err != nil {
			e.logger.Error("encoding ASSIGN failed", "error", err, "rover_id", pkt.RoverID)
			return
		}
		if err := e.sendRaw(addr, data); err != nil {
			e.logger.Warn("sending ASSIGN failed", "error", err, "rover_id", pkt.RoverID)
		}
	}
}

func (e *Engine) handleProgress(pkt *wire.Packet, addr *net.UDPAddr, now time.Time) {
	e.reg.Lock()
	session, ok := e.reg.Session(pkt.RoverID)
	if ok && datagram.AcceptSequence(session.LastSeq, pkt.Seq) {
		session.LastSeq = pkt.Seq
		session.Battery = pkt.Battery
		session.Progress = pkt.Progress
		session.LastActivity = now
		e.reg.UpdateMission(session.MissionID, pkt.Progress, pkt.Battery, now)
		e.emit("mission_progress", pkt.RoverID, session.MissionID, "")
		e.logSessionEvent(session.MissionID, "progress", "progress", pkt.Progress, "battery", pkt.Battery)
	}
	e.reg.Unlock()

	if err := e.conn.EmitAck(addr, pkt.Seq, pkt.Nonce); err != nil {
		e.logger.Warn("emitting ack failed", "error", err, "rover_id", pkt.RoverID)
	}
}

func (e *Engine) handleComplete(pkt *wire.Packet, addr *net.UDPAddr, now time.Time) {
	e.reg.Lock()
	session, ok := e.reg.Session(pkt.RoverID)
	if ok && datagram.AcceptSequence(session.LastSeq, pkt.Seq) {
		session.LastSeq = pkt.Seq
		session.Battery = pkt.Battery
		session.Progress = 100
		session.LastActivity = now
		e.reg.UpdateMission(session.MissionID, 100, pkt.Battery, now)
		e.reg.MarkComplete(session.MissionID)
		e.emit("mission_completed", pkt.RoverID, session.MissionID, "")
		e.closeSessionLog(session.MissionID, pkt.RoverID)
	}
	e.reg.Unlock()

	if err := e.conn.EmitAck(addr, pkt.Seq, pkt.Nonce); err != nil {
		e.logger.Warn("emitting ack failed", "error", err, "rover_id", pkt.RoverID)
	}
}

func (e *Engine) handlePong(pkt *wire.Packet, addr *net.UDPAddr, now time.Time) {
	e.reg.Lock()
	session, ok := e.reg.Session(pkt.RoverID)
	if ok {
		session.Active = true
		session.AwaitingPong = false
		session.ConsecutiveMissedPongs = 0
		session.LastActivity = now
	}
	e.reg.Unlock()
	// PONG carries no ack expectation; nothing further to send.
	_ = addr
}

func (e *Engine) sendRaw(addr *net.UDPAddr, data []byte) error {
	return e.conn.WriteUnreliable(addr, data)
}

// openSessionLog starts a per-mission debug log file, a no-op if
// sessionLogDir is disabled. The resulting logger is cached in
// sessionFiles so later events for the same mission reuse the same open
// file instead of reopening it.
func (e *Engine) openSessionLog(missionID, roverID, taskType string) {
	if e.sessionLogDir == "" {
		return
	}
	sessionLogger, closer, _, err := logging.NewSessionLogger(e.logger, e.sessionLogDir, sessionLogCategory, missionID)
	if err != nil {
		e.logger.Warn("opening mission session log failed", "error", err, "mission_id", missionID)
		return
	}
	sessionLogger.Debug("mission assigned", "rover_id", roverID, "task_type", taskType)

	e.sessionMu.Lock()
	e.sessionFiles[missionID] = &sessionLog{logger: sessionLogger, closer: closer}
	e.sessionMu.Unlock()
}

// logSessionEvent appends a debug line to a mission's session log, if one
// is open.
func (e *Engine) logSessionEvent(missionID, msg string, args ...any) {
	e.sessionMu.Lock()
	sl, ok := e.sessionFiles[missionID]
	e.sessionMu.Unlock()
	if !ok {
		return
	}
	sl.logger.Debug(msg, args...)
}

// closeSessionLog closes and removes a completed mission's session log
// file, since the mission finished cleanly.
func (e *Engine) closeSessionLog(missionID, roverID string) {
	e.sessionMu.Lock()
	sl, ok := e.sessionFiles[missionID]
	delete(e.sessionFiles, missionID)
	e.sessionMu.Unlock()
	if !ok {
		return
	}
	sl.logger.Debug("mission completed", "rover_id", roverID)
	if err := sl.closer.Close(); err != nil {
		e.logger.Warn("closing mission session log failed", "error", err, "mission_id", missionID)
	}
	logging.RemoveSessionLog(e.sessionLogDir, sessionLogCategory, missionID)
}
