// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/fleetops/motherbase/internal/station"
	"github.com/fleetops/motherbase/internal/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeArchiver records UploadRoverState calls instead of reaching out to S3.
type fakeArchiver struct {
	mu       sync.Mutex
	roverID  string
	uploaded []byte
	calls    int
}

func (f *fakeArchiver) UploadRoverState(ctx context.Context, roverID string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roverID = roverID
	f.uploaded = data
	f.calls++
	return nil
}

func (f *fakeArchiver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestServer_UpdatesTelemetryView(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	reg := station.NewRegistry(5, 100, 1)
	srv := NewServer(ln, reg, testLogger(), 10, nil)
	go srv.Run()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	rec := wire.TelemetryRecord{
		Timestamp: 1700000000,
		RoverID:   "ROVER-01",
		Battery:   80,
		State:     wire.StateInMission,
	}
	data, err := wire.EncodeTelemetry(&rec)
	if err != nil {
		t.Fatalf("EncodeTelemetry: %v", err)
	}
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		reg.Lock()
		view, ok := reg.Telemetry("ROVER-01")
		reg.Unlock()
		if ok && view.Battery == 80 {
			conn.Close()
			ln.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("telemetry view was never populated")
}

func TestServer_ArchivesStateOnDisconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	reg := station.NewRegistry(5, 100, 1)
	arc := &fakeArchiver{}
	srv := NewServer(ln, reg, testLogger(), 10, arc)
	go srv.Run()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	rec := wire.TelemetryRecord{Timestamp: 1700000000, RoverID: "ROVER-02", Battery: 55}
	data, err := wire.EncodeTelemetry(&rec)
	if err != nil {
		t.Fatalf("EncodeTelemetry: %v", err)
	}
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		reg.Lock()
		_, ok := reg.Telemetry("ROVER-02")
		reg.Unlock()
		if ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()
	ln.Close()

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if arc.callCount() > 0 {
			if arc.roverID != "ROVER-02" {
				t.Errorf("expected archived rover_id ROVER-02, got %q", arc.roverID)
			}
			state, err := wire.DecodeRoverState(arc.uploaded)
			if err != nil {
				t.Fatalf("DecodeRoverState: %v", err)
			}
			if state.Battery != 55 {
				t.Errorf("expected archived battery 55, got %d", state.Battery)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected UploadRoverState to be called on disconnect")
}

func TestServer_RejectsOverCapacity(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	reg := station.NewRegistry(5, 100, 1)
	srv := NewServer(ln, reg, testLogger(), 0, nil)
	go srv.Run()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	if err == nil {
		t.Error("expected connection to be closed immediately when over capacity")
	}
}
