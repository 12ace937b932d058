// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package stationstats samples host CPU/memory/disk/load metrics for the
// observation API's /api/system/status "host" field, independent of the
// per-rover battery/progress fields the protocol tracks.
package stationstats

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultInterval is used when a Monitor is built with a zero interval.
const DefaultInterval = 15 * time.Second

// HostStats holds one sample of host runtime metrics.
type HostStats struct {
	CPUPercent       float64   `json:"cpu_percent"`
	MemoryPercent    float64   `json:"memory_percent"`
	DiskUsagePercent float64   `json:"disk_usage_percent"`
	LoadAverage      float64   `json:"load_average"`
	SampledAt        time.Time `json:"sampled_at"`
}

// Monitor collects HostStats on a periodic tick. Unlike a fixed cadence,
// the sampling interval is a station-level tunable (station.stats_interval
// in config) — a station serving frequent API polls may want a tighter
// cadence than an idle one.
type Monitor struct {
	logger   *slog.Logger
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	stats    HostStats
	mu       sync.RWMutex
}

// NewMonitor builds a Monitor sampling at interval (DefaultInterval if
// interval <= 0). Call Start to begin sampling.
func NewMonitor(logger *slog.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		logger:   logger.With("component", "stationstats"),
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the periodic sampling goroutine.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop halts sampling and waits for the goroutine to exit.
func (m *Monitor) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// Stats returns the most recently collected sample. SampledAt is the zero
// time until the first tick completes — callers polling immediately after
// Start should treat a zero SampledAt as "no sample yet", not "host idle".
func (m *Monitor) Stats() HostStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Stale reports whether the most recent sample is older than maxAge, or
// whether no sample has been collected yet. Callers can use this to
// suppress a misleadingly confident reading rather than serve a sample a
// dead sampling goroutine left behind.
func (m *Monitor) Stale(maxAge time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stats.SampledAt.IsZero() {
		return true
	}
	return time.Since(m.stats.SampledAt) > maxAge
}

func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collect()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *Monitor) collect() {
	stats := HostStats{SampledAt: time.Now()}

	if percentage, err := cpu.Percent(0, false); err == nil && len(percentage) > 0 {
		stats.CPUPercent = percentage[0]
	} else {
		m.logger.Debug("failed to collect cpu stats", "error", err)
	}

	if v, err := mem.VirtualMemory(); err == nil {
		stats.MemoryPercent = v.UsedPercent
	} else {
		m.logger.Debug("failed to collect memory stats", "error", err)
	}

	if d, err := disk.Usage("/"); err == nil {
		stats.DiskUsagePercent = d.UsedPercent
	} else {
		m.logger.Debug("failed to collect disk stats", "error", err)
	}

	if l, err := load.Avg(); err == nil {
		stats.LoadAverage = l.Load1
	} else {
		m.logger.Debug("failed to collect load stats", "error", err)
	}

	m.mu.Lock()
	m.stats = stats
	m.mu.Unlock()
}
