// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package eventlog implements the station's append-only operational event
// log: entries are appended as JSONL and rotated through a pgzip writer once
// the active file crosses a configured size, mirroring a compressed
// archival path for records that must outlive the in-memory tables. The
// station pushes the protocol engine's mission events (assigned, progress,
// completed); rover-inactive transitions and ack-retry exhaustion are not
// logged here.
package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/pgzip"
)

// Entry is one operational event line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Kind      string    `json:"kind"`
	RoverID   string    `json:"rover_id,omitempty"`
	MissionID string    `json:"mission_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Log is a rotating JSONL event log. Rotation keeps the live file plain
// text and gzips the previous generation, pruning the oldest once
// maxBackups is exceeded.
type Log struct {
	mu         sync.Mutex
	dir        string
	activePath string
	file       *os.File
	maxSize    int64
	maxBackups int
}

// Open creates or appends to dir/events.jsonl, rotating to
// events-<timestamp>.jsonl.gz once the active file exceeds maxSizeMB.
func Open(dir string, maxSizeMB, maxBackups int) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}

	activePath := filepath.Join(dir, "events.jsonl")
	f, err := os.OpenFile(activePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}

	return &Log{
		dir:        dir,
		activePath: activePath,
		file:       f,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
	}, nil
}

// Push appends one event, filling Timestamp if zero, and rotates the file
// if it has grown past the configured threshold.
func (l *Log) Push(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	line, err := json.Marshal(e)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return
	}

	if info, err := l.file.Stat(); err == nil && l.maxSize > 0 && info.Size() >= l.maxSize {
		l.rotate()
	}
}

// rotate must be called with l.mu held. It closes the active file,
// compresses it into a timestamped .jsonl.gz backup, truncates the active
// file, and prunes old backups beyond maxBackups.
func (l *Log) rotate() {
	l.file.Close()

	backupName := fmt.Sprintf("events-%d.jsonl.gz", time.Now().UnixNano())
	backupPath := filepath.Join(l.dir, backupName)

	if err := compressToGzip(l.activePath, backupPath); err == nil {
		os.Truncate(l.activePath, 0)
	}

	l.pruneBackups()

	f, err := os.OpenFile(l.activePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err == nil {
		l.file = f
	}
}

func compressToGzip(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	gw := pgzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

func (l *Log) pruneBackups() {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return
	}
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".gz" {
			backups = append(backups, e.Name())
		}
	}
	if len(backups) <= l.maxBackups {
		return
	}
	// Names are timestamp-ordered (UnixNano suffix), so a lexical sort is
	// also chronological.
	for len(backups) > l.maxBackups {
		oldest := backups[0]
		backups = backups[1:]
		os.Remove(filepath.Join(l.dir, oldest))
	}
}

// Close flushes and closes the active file handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
