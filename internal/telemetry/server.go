// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package telemetry implements the one-way TCP telemetry channel (C7):
// each accepted connection streams fixed-size TelemetryRecord frames,
// authoritative in strict receive order, with no acknowledgment.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/fleetops/motherbase/internal/station"
	"github.com/fleetops/motherbase/internal/wire"
)

// archiver is the subset of *archive.MissionArchiver the telemetry server
// needs, kept as an interface so this package doesn't import internal/archive
// just to accept a possibly-nil pointer.
type archiver interface {
	UploadRoverState(ctx context.Context, roverID string, data []byte) error
}

// Server accepts telemetry connections up to a configured concurrency
// cap, rejecting the rest immediately.
type Server struct {
	ln       net.Listener
	reg      *station.Registry
	logger   *slog.Logger
	maxConns int32
	active   int32
	archiver archiver
}

// NewServer wraps ln (already listening) as the telemetry accept loop. A
// nil archiver is fine; state-archival on disconnect is skipped.
func NewServer(ln net.Listener, reg *station.Registry, logger *slog.Logger, maxConns int, arc archiver) *Server {
	return &Server{
		ln:       ln,
		reg:      reg,
		logger:   logger.With("component", "telemetry"),
		maxConns: int32(maxConns),
		archiver: arc,
	}
}

// Run accepts connections until ln is closed (by the caller, typically on
// context cancellation).
func (s *Server) Run() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting telemetry connection: %w", err)
		}

		if atomic.LoadInt32(&s.active) >= s.maxConns {
			s.logger.Warn("telemetry connection limit reached, rejecting", "remote", conn.RemoteAddr())
			conn.Close()
			continue
		}

		atomic.AddInt32(&s.active, 1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer atomic.AddInt32(&s.active, -1)
	defer conn.Close()

	logger := s.logger.With("remote", conn.RemoteAddr().String())
	buf := make([]byte, wire.TelemetryRecordSize)
	var roverID string

	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				logger.Debug("telemetry stream read error", "error", err)
			}
			break
		}

		rec, err := wire.DecodeTelemetry(buf)
		if err != nil {
			logger.Debug("dropping malformed telemetry record", "error", err)
			continue
		}
		roverID = rec.RoverID

		s.reg.Lock()
		view := s.reg.TelemetryOrCreate(rec.RoverID)
		view.PositionX = rec.PositionX
		view.PositionY = rec.PositionY
		view.Battery = rec.Battery
		view.State = rec.State
		view.Temperature = rec.Temperature
		view.SignalStrength = rec.SignalStrength
		view.LastUpdate = time.Now()
		view.Active = true
		s.reg.Unlock()
	}

	if roverID != "" {
		s.reg.Lock()
		view, ok := s.reg.Telemetry(roverID)
		if ok {
			view.Active = false
		}
		session, hasSession := s.reg.Session(roverID)
		s.reg.Unlock()

		if ok && s.archiver != nil {
			s.archiveState(roverID, view, session, hasSession)
		}
	}
}

// archiveState snapshots the rover's last-known state as a wire.RoverState
// and uploads it, so a rover that drops off the telemetry channel still has
// a durable last-seen record past the in-memory registry's lifetime.
func (s *Server) archiveState(roverID string, view *station.TelemetryView, session *station.RoverSession, hasSession bool) {
	state := &wire.RoverState{
		RoverID:   roverID,
		Battery:   view.Battery,
		PositionX: view.PositionX,
		PositionY: view.PositionY,
		Timestamp: uint32(view.LastUpdate.Unix()),
	}
	if hasSession {
		state.MissionID = session.MissionID
		state.TaskType = session.TaskType
		state.Seq = session.LastSeq
		state.Progress = session.Progress
	}

	data, err := wire.EncodeRoverState(state)
	if err != nil {
		s.logger.Warn("encoding rover state for archive failed", "error", err, "rover_id", roverID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.archiver.UploadRoverState(ctx, roverID, data); err != nil {
		s.logger.Warn("archiving rover state on disconnect failed", "error", err, "rover_id", roverID)
	}
}
