// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package rover implements the rover client: the command-channel request/
// assign/progress/complete cycle, the PING/PONG heartbeat responder, the
// telemetry stream sender, and the on-disk state-file checkpoint.
package rover

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/fleetops/motherbase/internal/config"
	"github.com/fleetops/motherbase/internal/datagram"
	"github.com/fleetops/motherbase/internal/wire"
)

// assignWaitTimeout bounds how long the rover waits for an ASSIGN after a
// REQUEST is acked. The station sends ASSIGN unreliably (§4.6); if it is
// lost this timeout is what makes the rover re-REQUEST, per the protocol's
// documented "rover drives retries via its own request timeout" contract.
const assignWaitTimeout = 5 * time.Second

// Client is one rover's runtime: a command-channel session with the
// station plus a telemetry stream, running until ctx is canceled.
type Client struct {
	cfg    *config.RoverConfig
	logger *slog.Logger

	conn        *datagram.Conn
	stationAddr *net.UDPAddr
	status      *status
	assignCh    chan *wire.Packet
}

// NewClient builds a rover client from its config. Call Run to start it.
func NewClient(cfg *config.RoverConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:      cfg,
		logger:   logger.With("rover_id", cfg.Rover.ID),
		status:   newStatus(cfg.Rover.ID, uint8(cfg.Rover.BatteryPct)),
		assignCh: make(chan *wire.Packet, 1),
	}
}

// Run performs the handshake, then loops: REQUEST a mission, execute it to
// completion, REQUEST the next. It blocks until ctx is canceled.
func (c *Client) Run(ctx context.Context) error {
	stationAddr, err := net.ResolveUDPAddr("udp", c.cfg.Station.CommandAddr)
	if err != nil {
		return fmt.Errorf("resolving station command address: %w", err)
	}
	c.stationAddr = stationAddr

	pc, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return fmt.Errorf("opening command socket: %w", err)
	}

	if err := datagram.Handshake(pc, stationAddr, c.cfg.Retry.HandshakeRetries, c.cfg.Retry.HandshakeTimeout); err != nil {
		pc.Close()
		return fmt.Errorf("handshake with station failed: %w", err)
	}
	c.logger.Info("handshake complete", "station", c.cfg.Station.CommandAddr)

	c.conn = datagram.NewConn(pc, c.logger, c.cfg.Retry.AckTimeout, c.cfg.Retry.AckRetries)
	c.conn.Start()
	defer c.conn.Stop()

	if err := c.restoreState(); err != nil {
		c.logger.Warn("could not restore prior state, starting fresh", "error", err)
	}

	go c.receiveLoop(ctx)
	go newTelemetrySender(c.cfg.Station.TelemetryAddr, c.status, c.logger).run(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		assign, err := c.requestMission(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("mission request failed, retrying", "error", err)
			continue
		}
		if assign == nil {
			continue
		}

		executeMission(ctx, c.conn, c.stationAddr, c.status, assign, c.cfg.Rover.StateDir, c.logger)
	}
}

// restoreState loads the persisted checkpoint, if any, and resumes seq
// numbering from it per the protocol's restart contract (§6): the next
// REQUEST uses a seq strictly greater than anything previously sent.
func (c *Client) restoreState() error {
	s, err := loadState(c.cfg.Rover.StateDir, c.cfg.Rover.ID)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	c.status.setIdle(s.Seq)
	c.status.mu.Lock()
	c.status.battery = s.Battery
	c.status.posX, c.status.posY = s.PositionX, s.PositionY
	c.status.mu.Unlock()
	c.logger.Info("resumed rover state", "seq", s.Seq, "last_mission_id", s.MissionID)
	return nil
}

// receiveLoop drains the command channel's Incoming() stream: ASSIGN
// packets are handed to the request loop, PING packets are answered with
// PONG inline. Any other type reaching here is unexpected and logged.
func (c *Client) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case recv, ok := <-c.conn.Incoming():
			if !ok {
				return
			}
			switch recv.Packet.Type {
			case wire.TypeAssign:
				select {
				case c.assignCh <- recv.Packet:
				default:
				}
			case wire.TypePing:
				c.replyPong(recv.Packet)
			default:
				c.logger.Debug("unexpected packet on command channel", "type", recv.Packet.Type)
			}
		}
	}
}

func (c *Client) replyPong(ping *wire.Packet) {
	pkt := &wire.Packet{Type: wire.TypePong, Seq: ping.Seq, RoverID: c.cfg.Rover.ID}
	data, err := wire.Encode(pkt)
	if err != nil {
		c.logger.Error("encoding pong", "error", err)
		return
	}
	if err := c.conn.WriteUnreliable(c.stationAddr, data); err != nil {
		c.logger.Warn("sending pong failed", "error", err)
	}
}

// requestMission sends REQUEST and waits for the matching ASSIGN. Returns
// nil, nil if ctx is canceled mid-wait or the wait times out; Run then
// calls it again, which sends a new REQUEST with a fresh seq.
func (c *Client) requestMission(ctx context.Context) (*wire.Packet, error) {
	seq := c.status.currentSeq() + 1
	pkt := &wire.Packet{Type: wire.TypeRequest, Seq: seq, RoverID: c.cfg.Rover.ID, Battery: c.currentBattery()}

	if err := c.conn.SendWithAck(c.stationAddr, pkt); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	c.status.setIdle(seq)

	select {
	case <-ctx.Done():
		return nil, nil
	case assign := <-c.assignCh:
		return assign, nil
	case <-time.After(assignWaitTimeout):
		c.logger.Warn("no assign received, re-requesting", "seq", seq)
		return nil, nil
	}
}

func (c *Client) currentBattery() uint8 {
	return c.status.snapshotState().Battery
}
