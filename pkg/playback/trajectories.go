package playback

import (
	"time"

	"github.com/gwillem/dxlmotion/pkg/motion"
	"github.com/gwillem/dxlmotion/pkg/robot"
)

// TrajectoryFunc builds the trajectory of one motor from its position when
// playback starts. It returns nil to leave the motor alone.
type TrajectoryFunc func(name robot.MotorName, start float64) motion.Trajectory[motion.Value]

// Sweep oscillates every motor around its start position.
func Sweep(amplitude float64, period, duration time.Duration) TrajectoryFunc {
	return func(_ robot.MotorName, start float64) motion.Trajectory[motion.Value] {
		return motion.Sine{Amplitude: amplitude, Period: period, Offset: start, Duration: duration}
	}
}

// MoveTo drives the named motors to targets (degrees) along a minimum-jerk
// profile. Motors without a target are left alone.
func MoveTo(targets map[robot.MotorName]float64, duration time.Duration) TrajectoryFunc {
	return func(name robot.MotorName, start float64) motion.Trajectory[motion.Value] {
		to, ok := targets[name]
		if !ok {
			return nil
		}
		return motion.MinimumJerk{From: start, To: to, Duration: duration}
	}
}

// Ramp moves every motor by delta degrees at constant speed.
func Ramp(delta float64, duration time.Duration) TrajectoryFunc {
	return func(_ robot.MotorName, start float64) motion.Trajectory[motion.Value] {
		return motion.Linear{From: start, To: start + delta, Duration: duration}
	}
}
