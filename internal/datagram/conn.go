// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package datagram implements the reliable layer on top of a single UDP
// socket: send-with-ack with bounded retry, fire-and-forget ack emission,
// an advisory handshake, and duplicate suppression for data-carrying
// packets. It knows nothing about missions or rovers — callers hand it
// wire.Packet values and UDP addresses.
package datagram

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/fleetops/motherbase/internal/wire"
)

// ErrSendFailed is returned by SendWithAck when all retries are exhausted
// without a matching ACK.
var ErrSendFailed = errors.New("datagram: send failed, ack retries exhausted")

// ErrClosed is returned by operations attempted after Stop.
var ErrClosed = errors.New("datagram: connection closed")

// Received pairs a decoded packet with the UDP address it arrived from.
type Received struct {
	Packet *wire.Packet
	Addr   *net.UDPAddr
}

type ackKey struct {
	addr string
	seq  uint32
}

// Conn multiplexes one *net.UDPConn for both reliable sends and an
// incoming stream of application packets. ACK frames never reach the
// Incoming channel — they are consumed internally to unblock SendWithAck.
// Bare single-byte handshake probes (type 0xFF) are answered inline and
// also never reach Incoming, since a handshake is advisory only.
type Conn struct {
	pc     *net.UDPConn
	logger *slog.Logger

	ackTimeout time.Duration
	ackRetries int

	mu      sync.Mutex
	waiters map[ackKey]chan struct{}

	incoming  chan Received
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewConn wraps pc with the reliable layer. ackTimeout/ackRetries
// correspond to the protocol's ACK_TIMEOUT and ACK_RETRIES constants.
func NewConn(pc *net.UDPConn, logger *slog.Logger, ackTimeout time.Duration, ackRetries int) *Conn {
	return &Conn{
		pc:         pc,
		logger:     logger.With("component", "datagram"),
		ackTimeout: ackTimeout,
		ackRetries: ackRetries,
		waiters:    make(map[ackKey]chan struct{}),
		incoming:   make(chan Received, 64),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the background read loop. Call once, before any send.
func (c *Conn) Start() {
	c.wg.Add(1)
	go c.readLoop()
}

// Stop closes the socket and waits for the read loop to exit. Safe to call
// more than once.
func (c *Conn) Stop() {
	c.closeOnce.Do(func() {
		close(c.stopCh)
		c.pc.Close()
	})
	c.wg.Wait()
}

// Incoming returns the channel of packets that are not ACKs and not
// handshake probes — the protocol engine's only read path into the socket.
func (c *Conn) Incoming() <-chan Received {
	return c.incoming
}

func (c *Conn) readLoop() {
	defer c.wg.Done()
	buf := make([]byte, wire.PacketSize)

	for {
		n, addr, err := c.pc.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
				c.logger.Warn("udp read error", "error", err)
				return
			}
		}

		if n == 1 && buf[0] == wire.TypeHandshake {
			// Advisory handshake: reply inline, create no session.
			if _, err := c.pc.WriteToUDP([]byte{'1'}, addr); err != nil {
				c.logger.Warn("handshake reply failed", "error", err, "peer", addr)
			}
			continue
		}

		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			c.logger.Debug("dropping malformed packet", "error", err, "peer", addr, "size", n)
			continue
		}

		if pkt.Type == wire.TypeAck {
			c.notifyAck(addr, pkt.Seq)
			continue
		}

		select {
		case c.incoming <- Received{Packet: pkt, Addr: addr}:
		case <-c.stopCh:
			return
		}
	}
}

func (c *Conn) notifyAck(addr *net.UDPAddr, seq uint32) {
	key := ackKey{addr: addr.String(), seq: seq}
	c.mu.Lock()
	ch, ok := c.waiters[key]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// SendWithAck transmits pkt and blocks until an ACK bearing the same seq
// arrives from addr, or until ackRetries attempts (each separated by
// ackTimeout) are exhausted. Returns ErrSendFailed on exhaustion.
func (c *Conn) SendWithAck(addr *net.UDPAddr, pkt *wire.Packet) error {
	data, err := wire.Encode(pkt)
	if err != nil {
		return fmt.Errorf("encoding packet: %w", err)
	}

	key := ackKey{addr: addr.String(), seq: pkt.Seq}
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.waiters[key] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.waiters, key)
		c.mu.Unlock()
	}()

	for attempt := 1; attempt <= c.ackRetries; attempt++ {
		if _, err := c.pc.WriteToUDP(data, addr); err != nil {
			return fmt.Errorf("writing packet: %w", err)
		}

		select {
		case <-ch:
			return nil
		case <-time.After(c.ackTimeout):
			c.logger.Debug("ack timeout, retrying", "peer", addr, "seq", pkt.Seq, "attempt", attempt)
		case <-c.stopCh:
			return ErrClosed
		}
	}

	return ErrSendFailed
}

// EmitAck sends a bare ACK for seq to addr, fire-and-forget. nonce must be
// the incoming packet's Nonce field, byte-exact echoed on the ACK per the
// protocol's ACK-echo contract for that otherwise-unused field.
func (c *Conn) EmitAck(addr *net.UDPAddr, seq, nonce uint32) error {
	pkt := &wire.Packet{Type: wire.TypeAck, Seq: seq, Nonce: nonce}
	data, err := wire.Encode(pkt)
	if err != nil {
		return fmt.Errorf("encoding ack: %w", err)
	}
	if _, err := c.pc.WriteToUDP(data, addr); err != nil {
		return fmt.Errorf("writing ack: %w", err)
	}
	return nil
}

// WriteUnreliable writes a pre-encoded frame to addr with no ack
// expectation, for packets the spec defines as single-datagram sends
// (ASSIGN, PING).
func (c *Conn) WriteUnreliable(addr *net.UDPAddr, data []byte) error {
	_, err := c.pc.WriteToUDP(data, addr)
	if err != nil {
		return fmt.Errorf("writing unreliable datagram: %w", err)
	}
	return nil
}

// AcceptSequence reports whether a data-carrying packet (REQUEST/PROGRESS/
// COMPLETE) with the given incoming sequence should advance session state.
// The sender must still be ACKed either way — this only governs whether
// the packet is treated as new.
func AcceptSequence(lastSeq, incomingSeq uint32) bool {
	return incomingSeq > lastSeq
}
