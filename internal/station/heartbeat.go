// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package station

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/fleetops/motherbase/internal/datagram"
	"github.com/fleetops/motherbase/internal/wire"
)

// HeartbeatScheduler advances the per-session liveness state machine on a
// wall-clock tick of at most one second: HEALTHY sends a PING when the
// session has been idle past Interval; WAITING_PONG gives up and counts a
// miss past Timeout; a session exceeding MaxRetries misses goes inactive.
type HeartbeatScheduler struct {
	reg    *Registry
	conn   *datagram.Conn
	logger *slog.Logger

	Interval   time.Duration
	Timeout    time.Duration
	MaxRetries int

	limiter *rate.Limiter
}

// NewHeartbeatScheduler builds a scheduler over reg and conn using the
// given tuning constants (HEARTBEAT_INTERVAL, HEARTBEAT_TIMEOUT,
// HEARTBEAT_MAX_RETRIES). pingsPerSecond/burst cap the aggregate PING
// dispatch rate across the whole rover population, so a pathological
// MAX_ROVERS configuration can't burst the UDP socket.
func NewHeartbeatScheduler(reg *Registry, conn *datagram.Conn, logger *slog.Logger, interval, timeout time.Duration, maxRetries int, pingsPerSecond float64, burst int) *HeartbeatScheduler {
	return &HeartbeatScheduler{
		reg:        reg,
		conn:       conn,
		logger:     logger.With("component", "heartbeat"),
		Interval:   interval,
		Timeout:    timeout,
		MaxRetries: maxRetries,
		limiter:    rate.NewLimiter(rate.Limit(pingsPerSecond), burst),
	}
}

// Tick evaluates every active session once. Pings are sent outside the
// registry lock since UDP writes may briefly block.
func (h *HeartbeatScheduler) Tick(now time.Time) {
	h.reg.Lock()
	sessions := h.reg.Sessions()
	var toPing []*RoverSession
	for _, s := range sessions {
		if !s.Active {
			continue
		}
		switch {
		case s.AwaitingPong:
			if now.Sub(s.LastPingSent) > h.Timeout {
				s.AwaitingPong = false
				s.ConsecutiveMissedPongs++
				if s.ConsecutiveMissedPongs > h.MaxRetries {
					s.Active = false
					h.logger.Info("rover marked inactive after missed pongs", "rover_id", s.RoverID, "missed", s.ConsecutiveMissedPongs)
				}
			}
		default:
			if now.Sub(s.LastActivity) >= h.Interval {
				s.AwaitingPong = true
				s.LastPingSent = now
				toPing = append(toPing, s)
			}
		}
	}
	h.reg.Unlock()

	for _, s := range toPing {
		h.sendPing(s)
	}
}

func (h *HeartbeatScheduler) sendPing(s *RoverSession) {
	if err := h.limiter.Wait(context.Background()); err != nil {
		h.logger.Warn("ping rate limiter wait failed", "error", err, "rover_id", s.RoverID)
		return
	}
	pkt := &wire.Packet{Type: wire.TypePing, Seq: s.LastSeq + 1, RoverID: s.RoverID}
	data, err := wire.Encode(pkt)
	if err != nil {
		h.logger.Error("encoding PING failed", "error", err, "rover_id", s.RoverID)
		return
	}
	if err := h.conn.WriteUnreliable(s.Addr, data); err != nil {
		h.logger.Warn("sending PING failed", "error", err, "rover_id", s.RoverID)
	}
}

// Run blocks, ticking at most once per second until stopCh is closed.
func (h *HeartbeatScheduler) Run(stopCh <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			h.Tick(now)
		case <-stopCh:
			return
		}
	}
}
