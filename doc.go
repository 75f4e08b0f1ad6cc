// Package dxlmotion drives smart servos from trajectories sampled in time.
//
// Each motor keeps the values the host wants written apart from the values
// the device confirmed. Motion controllers sample a trajectory at a fixed rate
// into those desired values, and a bus sync writes whatever is pending and
// reads telemetry back.
//
// # Installation
//
//	go install github.com/gwillem/dxlmotion/cmd/dxlmotion@latest
//
// # Usage
//
// First, run setup to find the servo bus and record each joint's range:
//
//	dxlmotion setup
//
// Then play a trajectory:
//
//	dxlmotion play --trajectory sweep --amplitude 15
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/dxlmotion: CLI with setup, scan, info and play commands
//   - pkg/register: EEPROM configuration block and unit conversions
//   - pkg/motor: per-motor desired/confirmed state and telemetry
//   - pkg/motion: trajectories and the sampling controller
//   - pkg/bus: drivers and the loop that syncs motors with a bus
//   - pkg/mset: attribute access across many motors
//   - pkg/robot: configuration, calibration and the session over one bus
//   - pkg/playback: runs controllers for a robot and streams their state
package dxlmotion
