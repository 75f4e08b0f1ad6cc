// Package robot ties a configured set of named motors to a servo bus.
package robot

// MotorName identifies a motor in the robot.
type MotorName string

// Motor names for the SO-101 arm, the default layout written by init.
const (
	ShoulderPan  MotorName = "shoulder_pan"
	ShoulderLift MotorName = "shoulder_lift"
	ElbowFlex    MotorName = "elbow_flex"
	WristFlex    MotorName = "wrist_flex"
	WristRoll    MotorName = "wrist_roll"
	Gripper      MotorName = "gripper"
)

// SO101 returns an uncalibrated layout for the SO-101 arm (servo IDs 1-6)
// using the full encoder range of each STS servo.
func SO101() Calibration {
	names := []MotorName{ShoulderPan, ShoulderLift, ElbowFlex, WristFlex, WristRoll, Gripper}
	cal := make(Calibration, len(names))
	for i, name := range names {
		cal[name] = MotorCalibration{ID: i + 1, RangeMin: 0, RangeMax: 4095}
	}
	return cal
}
