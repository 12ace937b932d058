// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package station

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// missionCapacityWarnThreshold is the fraction of MAX_MISSIONS at which
// the housekeeping job starts logging a capacity warning. The mission
// table is never pruned, so this is the operator's only advance signal.
const missionCapacityWarnThreshold = 0.9

// registrySnapshot is the JSONL record written by the housekeeping job,
// one line per run.
type registrySnapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	Rovers          int       `json:"rovers"`
	Missions        int       `json:"missions"`
	MissionCapacity int       `json:"mission_capacity"`
	TelemetryViews  int       `json:"telemetry_views"`
}

// Housekeeping runs the registry's periodic maintenance job (capacity
// warnings, snapshot persistence) on a cron schedule instead of a bare
// ticker.
type Housekeeping struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewHousekeeping registers a single cron job that snapshots reg's table
// sizes to snapshotDir/registry-snapshot.jsonl and warns once the mission
// table crosses missionCapacityWarnThreshold of its cap.
func NewHousekeeping(reg *Registry, logger *slog.Logger, schedule, snapshotDir string) (*Housekeeping, error) {
	logger = logger.With("component", "housekeeping")
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	snapshotPath := filepath.Join(snapshotDir, "registry-snapshot.jsonl")

	if _, err := c.AddFunc(schedule, func() {
		runSnapshot(reg, logger, snapshotPath)
	}); err != nil {
		return nil, fmt.Errorf("registering housekeeping job: %w", err)
	}

	return &Housekeeping{cron: c, logger: logger}, nil
}

// Start begins the cron scheduler.
func (h *Housekeeping) Start() {
	h.logger.Info("housekeeping started")
	h.cron.Start()
}

// Stop waits for any in-flight run to finish.
func (h *Housekeeping) Stop() {
	ctx := h.cron.Stop()
	<-ctx.Done()
	h.logger.Info("housekeeping stopped")
}

func runSnapshot(reg *Registry, logger *slog.Logger, snapshotPath string) {
	reg.Lock()
	snap := registrySnapshot{
		Timestamp:       time.Now(),
		Rovers:          len(reg.sessions),
		Missions:        len(reg.missions),
		MissionCapacity: reg.maxMissions,
		TelemetryViews:  len(reg.telemetry),
	}
	reg.Unlock()

	if snap.MissionCapacity > 0 {
		fill := float64(snap.Missions) / float64(snap.MissionCapacity)
		if fill >= missionCapacityWarnThreshold {
			logger.Warn("mission table approaching capacity",
				"missions", snap.Missions, "capacity", snap.MissionCapacity)
		}
	}

	f, err := os.OpenFile(snapshotPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Error("opening snapshot file", "error", err, "path", snapshotPath)
		return
	}
	defer f.Close()

	line, err := json.Marshal(snap)
	if err != nil {
		logger.Error("marshaling snapshot", "error", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		logger.Error("writing snapshot", "error", err, "path", snapshotPath)
	}
}
