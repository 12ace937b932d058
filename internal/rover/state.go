// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package rover

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fleetops/motherbase/internal/wire"
)

// statePath returns the fixed-layout checkpoint path for roverID, per the
// protocol's rovers/rover_<rover_id>_state.bin contract.
func statePath(stateDir, roverID string) string {
	return filepath.Join(stateDir, fmt.Sprintf("rover_%s_state.bin", roverID))
}

// loadState reads a rover's persisted checkpoint. A missing file is not an
// error — it means this is a first run — and returns (nil, nil).
func loadState(stateDir, roverID string) (*wire.RoverState, error) {
	path := statePath(stateDir, roverID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rover state file %s: %w", path, err)
	}
	s, err := wire.DecodeRoverState(data)
	if err != nil {
		return nil, fmt.Errorf("decoding rover state file %s: %w", path, err)
	}
	return s, nil
}

// saveState persists s to rovers/rover_<rover_id>_state.bin, creating
// stateDir if needed.
func saveState(stateDir string, s *wire.RoverState) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("creating rover state directory: %w", err)
	}
	data, err := wire.EncodeRoverState(s)
	if err != nil {
		return fmt.Errorf("encoding rover state: %w", err)
	}
	path := statePath(stateDir, s.RoverID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rover state file %s: %w", path, err)
	}
	return nil
}
