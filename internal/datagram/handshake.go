// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package datagram

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/fleetops/motherbase/internal/wire"
)

// ErrHandshakeFailed is returned by Handshake when all retries are
// exhausted without a valid '1' reply.
var ErrHandshakeFailed = errors.New("datagram: handshake failed, retries exhausted")

// Handshake performs the advisory, single-byte probe a rover sends before
// starting the mission protocol: a 0xFF byte out, a single ASCII '1' byte
// back. It creates no session on either side and is safe to repeat.
func Handshake(pc *net.UDPConn, addr *net.UDPAddr, retries int, timeout time.Duration) error {
	probe := []byte{wire.TypeHandshake}
	reply := make([]byte, 1)

	for attempt := 1; attempt <= retries; attempt++ {
		if _, err := pc.WriteToUDP(probe, addr); err != nil {
			return fmt.Errorf("writing handshake probe: %w", err)
		}

		if err := pc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("setting handshake read deadline: %w", err)
		}

		n, _, err := pc.ReadFromUDP(reply)
		if err == nil && n == 1 && reply[0] == '1' {
			_ = pc.SetReadDeadline(time.Time{})
			return nil
		}
	}

	_ = pc.SetReadDeadline(time.Time{})
	return ErrHandshakeFailed
}
