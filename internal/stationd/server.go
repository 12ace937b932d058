// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package stationd wires the station components (registry, protocol
// engine, heartbeat scheduler, housekeeping, telemetry server, and
// observation API) into one running process. It is the only package
// allowed to import both internal/station and its consumers
// (internal/api, internal/telemetry), since those two import
// internal/station themselves.
package stationd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fleetops/motherbase/internal/api"
	"github.com/fleetops/motherbase/internal/archive"
	"github.com/fleetops/motherbase/internal/config"
	"github.com/fleetops/motherbase/internal/datagram"
	"github.com/fleetops/motherbase/internal/eventlog"
	"github.com/fleetops/motherbase/internal/station"
	"github.com/fleetops/motherbase/internal/stationstats"
	"github.com/fleetops/motherbase/internal/telemetry"
)

// Run starts the station: the UDP command channel, the TCP telemetry
// server, the observation HTTP API, the heartbeat scheduler, and the
// housekeeping cron job. It blocks until ctx is canceled, then drains all
// listeners before returning.
func Run(ctx context.Context, cfg *config.StationConfig, logger *slog.Logger) error {
	reg := station.NewRegistry(cfg.Station.MaxRovers, cfg.Station.MaxMissions, time.Now().UnixNano())

	commandAddr, err := net.ResolveUDPAddr("udp", cfg.Station.CommandAddr)
	if err != nil {
		return fmt.Errorf("resolving command address: %w", err)
	}
	pc, err := net.ListenUDP("udp", commandAddr)
	if err != nil {
		return fmt.Errorf("listening on command channel %s: %w", cfg.Station.CommandAddr, err)
	}

	conn := datagram.NewConn(pc, logger, cfg.Station.AckTimeout, cfg.Station.AckRetries)
	conn.Start()
	defer conn.Stop()

	evLog, err := eventlog.Open(cfg.EventLog.Dir, cfg.EventLog.MaxSizeMB, cfg.EventLog.MaxBackups)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer evLog.Close()

	var archiver *archive.MissionArchiver
	if cfg.Archive.Enabled() {
		archiver, err = archive.New(ctx, cfg.Archive.Bucket, cfg.Archive.Region, cfg.Archive.Prefix,
			cfg.Archive.AccessKeyID, cfg.Archive.SecretAccessKey, logger)
		if err != nil {
			logger.Error("mission archiver disabled, failed to initialize", "error", err)
			archiver = nil
		}
	}

	engine := station.NewEngine(reg, conn, logger, cfg.Station.SessionLogDir)
	engine.OnEvent(func(kind, roverID, missionID, detail string) {
		level := "info"
		evLog.Push(eventlog.Entry{Level: level, Kind: kind, RoverID: roverID, MissionID: missionID, Detail: detail})

		// The engine calls this with the registry lock already held, so the
		// mission is read directly and copied before the upload goroutine
		// starts.
		if kind == "mission_completed" && archiver != nil {
			if m, ok := reg.Mission(missionID); ok {
				snapshot := *m
				go archiveMission(ctx, archiver, &snapshot, logger)
			}
		}
	})

	monitor := stationstats.NewMonitor(logger, cfg.Station.StatsInterval)
	monitor.Start()
	defer monitor.Stop()

	heartbeat := station.NewHeartbeatScheduler(reg, conn, logger,
		cfg.Station.HeartbeatInterval, cfg.Station.HeartbeatTimeout, cfg.Station.HeartbeatMaxRetries,
		cfg.Station.PingRatePerSecond, cfg.Station.PingBurst)
	stopHeartbeat := make(chan struct{})
	go heartbeat.Run(stopHeartbeat)
	defer close(stopHeartbeat)

	housekeeping, err := station.NewHousekeeping(reg, logger, cfg.Housekeeping.Schedule, cfg.Housekeeping.SnapshotDir)
	if err != nil {
		return fmt.Errorf("starting housekeeping: %w", err)
	}
	housekeeping.Start()
	defer housekeeping.Stop()

	telemetryLn, err := net.Listen("tcp", cfg.Station.TelemetryAddr)
	if err != nil {
		return fmt.Errorf("listening on telemetry channel %s: %w", cfg.Station.TelemetryAddr, err)
	}
	defer telemetryLn.Close()
	// Passed as a bare interface value only when enabled: a typed-nil
	// *archive.MissionArchiver boxed into telemetry's archiver interface
	// would compare non-nil even though calls on it are no-ops, so the
	// explicit nil here keeps Server's own nil check meaningful.
	var telemetryArchiver interface {
		UploadRoverState(ctx context.Context, roverID string, data []byte) error
	}
	if archiver != nil {
		telemetryArchiver = archiver
	}
	telemetrySrv := telemetry.NewServer(telemetryLn, reg, logger, cfg.Station.MaxTelemetryConns, telemetryArchiver)
	go func() {
		if err := telemetrySrv.Run(); err != nil {
			logger.Error("telemetry server stopped", "error", err)
		}
	}()

	router := api.NewRouter(reg, monitor)
	httpSrv := &http.Server{
		Addr:              cfg.Station.APIAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("observation API listening", "address", cfg.Station.APIAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("observation API server error", "error", err)
		}
	}()

	logger.Info("station listening",
		"command_addr", cfg.Station.CommandAddr,
		"telemetry_addr", cfg.Station.TelemetryAddr,
		"api_addr", cfg.Station.APIAddr,
	)

	go dispatchLoop(ctx, conn, engine)

	<-ctx.Done()
	logger.Info("shutting down station")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("observation API shutdown error", "error", err)
	}

	logger.Info("station shutdown complete")
	return nil
}

// dispatchLoop drains the datagram layer's Incoming channel and hands
// each packet to the protocol engine, until ctx is canceled or the
// channel closes.
func dispatchLoop(ctx context.Context, conn *datagram.Conn, engine *station.Engine) {
	for {
		select {
		case <-ctx.Done():
			return
		case recv, ok := <-conn.Incoming():
			if !ok {
				return
			}
			engine.Handle(recv)
		}
	}
}

func archiveMission(ctx context.Context, archiver *archive.MissionArchiver, m *station.MissionRecord, logger *slog.Logger) {
	snap := archive.MissionSnapshot{
		ID:           m.ID,
		RoverID:      m.RoverID,
		TaskType:     m.TaskType,
		Progress:     m.Progress,
		Battery:      m.Battery,
		StartTime:    m.StartTime,
		CompletedAt:  m.LastUpdate,
		UpdatesCount: m.UpdatesCount,
	}
	if err := archiver.UploadMission(ctx, snap); err != nil {
		logger.Warn("mission archive upload failed", "error", err, "mission_id", m.ID)
	}
}
