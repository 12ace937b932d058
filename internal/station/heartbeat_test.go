// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package station

import (
	"net"
	"testing"
	"time"

	"github.com/fleetops/motherbase/internal/wire"
)

func TestHeartbeat_SendsPingAfterIdleInterval(t *testing.T) {
	reg := NewRegistry(5, 100, 1)
	conn, _ := newTestConn(t)
	client := newClientSocket(t)

	reg.Lock()
	s, _ := reg.SessionOrCreate("ROVER-01", client.LocalAddr().(*net.UDPAddr), time.Now().Add(-time.Hour))
	reg.Unlock()
	_ = s

	sched := NewHeartbeatScheduler(reg, conn, testLogger(), 30*time.Second, 5*time.Second, 2, 1000, 10)
	sched.Tick(time.Now())

	client.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, wire.PacketSize)
	n, _, err := client.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("expected a PING datagram: %v", err)
	}
	pkt, err := wire.Decode(buf[:n])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if pkt.Type != wire.TypePing {
		t.Errorf("expected PING, got type %d", pkt.Type)
	}

	reg.Lock()
	session, _ := reg.Session("ROVER-01")
	reg.Unlock()
	if !session.AwaitingPong {
		t.Error("expected session to enter AwaitingPong after ping dispatch")
	}
}

func TestHeartbeat_MissedPongIncrementsAndDeactivates(t *testing.T) {
	reg := NewRegistry(5, 100, 1)
	conn, _ := newTestConn(t)
	client := newClientSocket(t)

	reg.Lock()
	s, _ := reg.SessionOrCreate("ROVER-01", client.LocalAddr().(*net.UDPAddr), time.Now())
	s.AwaitingPong = true
	s.LastPingSent = time.Now().Add(-time.Hour)
	s.ConsecutiveMissedPongs = 2 // one more miss exceeds MaxRetries=2
	reg.Unlock()

	sched := NewHeartbeatScheduler(reg, conn, testLogger(), 30*time.Second, 5*time.Second, 2, 1000, 10)
	sched.Tick(time.Now())

	reg.Lock()
	session, _ := reg.Session("ROVER-01")
	reg.Unlock()

	if session.Active {
		t.Error("expected session to be marked inactive after exceeding max missed pongs")
	}
	if session.AwaitingPong {
		t.Error("expected awaiting_pong to be cleared after timeout")
	}
}

func TestHeartbeat_HealthySessionNotPinged(t *testing.T) {
	reg := NewRegistry(5, 100, 1)
	conn, _ := newTestConn(t)
	client := newClientSocket(t)

	reg.Lock()
	reg.SessionOrCreate("ROVER-01", client.LocalAddr().(*net.UDPAddr), time.Now())
	reg.Unlock()

	sched := NewHeartbeatScheduler(reg, conn, testLogger(), 30*time.Second, 5*time.Second, 2, 1000, 10)
	sched.Tick(time.Now())

	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, wire.PacketSize)
	_, _, err := client.ReadFromUDP(buf)
	if err == nil {
		t.Error("expected no PING for a recently-active session")
	}
}
