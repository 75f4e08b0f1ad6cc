package mset

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/gwillem/dxlmotion/pkg/motor"
	"github.com/gwillem/dxlmotion/pkg/register"
)

func twoMotors(t *testing.T) (*MotorSet, *motor.Motor, *motor.Motor) {
	t.Helper()
	block, err := register.Default(1, 12)
	test.That(t, err, test.ShouldBeNil)
	a := motor.New(1, block)
	b := motor.New(2, nil)
	return New(a, b), a, b
}

func TestSet_PositionalAndBroadcast(t *testing.T) {
	s, a, b := twoMotors(t)

	test.That(t, s.Set("position", []float64{100, 200}), test.ShouldBeNil)
	goal, _ := a.GoalPosition()
	test.That(t, goal, test.ShouldEqual, 100.0)
	goal, _ = b.GoalPosition()
	test.That(t, goal, test.ShouldEqual, 200.0)

	test.That(t, s.Set("position", 50), test.ShouldBeNil)
	goal, _ = a.GoalPosition()
	test.That(t, goal, test.ShouldEqual, 50.0)
	goal, _ = b.GoalPosition()
	test.That(t, goal, test.ShouldEqual, 50.0)

	// Mixed element types are converted.
	test.That(t, s.Set("moving_speed", []any{10, "20.5"}), test.ShouldBeNil)
	speed, _ := b.MovingSpeed()
	test.That(t, speed, test.ShouldEqual, 20.5)
}

func TestSet_Arity(t *testing.T) {
	s, a, _ := twoMotors(t)

	err := s.Set("goal_position", []float64{1, 2, 3})
	test.That(t, errors.Is(err, ErrSizeMismatch), test.ShouldBeTrue)
	test.That(t, a.Dirty(motor.GoalPosition), test.ShouldBeFalse)

	err = s.SetGoalPositions([]float64{1})
	test.That(t, errors.Is(err, ErrSizeMismatch), test.ShouldBeTrue)

	err = s.SetZeroPose([]float64{})
	test.That(t, errors.Is(err, ErrSizeMismatch), test.ShouldBeTrue)
}

func TestUnknownAndReadOnly(t *testing.T) {
	s, _, _ := twoMotors(t)

	_, err := s.Get("temperature")
	test.That(t, errors.Is(err, ErrUnknownAttribute), test.ShouldBeTrue)

	err = s.Set("temperature", 1)
	test.That(t, errors.Is(err, ErrUnknownAttribute), test.ShouldBeTrue)

	err = s.Set("current_position", 1)
	test.That(t, errors.Is(err, ErrReadOnly), test.ShouldBeTrue)

	err = s.Set("id", []int{3, 4})
	test.That(t, errors.Is(err, ErrReadOnly), test.ShouldBeTrue)
}

func TestSet_InvalidValueChangesNothing(t *testing.T) {
	s, a, b := twoMotors(t)

	err := s.Set("goal_position", []any{10.0, "far"})
	test.That(t, errors.Is(err, ErrInvalidValue), test.ShouldBeTrue)
	test.That(t, a.IsDirty(), test.ShouldBeFalse)
	test.That(t, b.IsDirty(), test.ShouldBeFalse)

	err = s.Set("compliant", "maybe")
	test.That(t, errors.Is(err, ErrInvalidValue), test.ShouldBeTrue)
}

func TestGet(t *testing.T) {
	s, a, b := twoMotors(t)

	ids, err := s.Get("id")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ids, test.ShouldResemble, []any{1, 2})

	models, err := s.Get("model")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, models, test.ShouldResemble, []any{"AX-12", nil})

	// Telemetry is unknown until read.
	positions, err := s.Get("position")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, positions, test.ShouldResemble, []any{nil, nil})

	a.UpdateTelemetry(motor.NewTelemetry(12, 3, -4))
	positions, _ = s.Get("current_position")
	test.That(t, positions, test.ShouldResemble, []any{12.0, nil})
	loads, _ := s.Get("load")
	test.That(t, loads, test.ShouldResemble, []any{-4.0, nil})

	torque, _ := s.Get("torque_limit")
	test.That(t, torque, test.ShouldResemble, []any{100.0, 100.0})

	test.That(t, s.Set("compliant", []bool{false, true}), test.ShouldBeNil)
	compliant, _ := s.Get("compliant")
	test.That(t, compliant, test.ShouldResemble, []any{nil, nil})
	test.That(t, b.Dirty(motor.Compliant), test.ShouldBeTrue)
}

func TestPose(t *testing.T) {
	s, a, b := twoMotors(t)
	test.That(t, s.ZeroPose(), test.ShouldResemble, []float64{0, 0})

	test.That(t, s.SetZeroPose([]float64{10, -20}), test.ShouldBeNil)
	test.That(t, s.ZeroPose(), test.ShouldResemble, []float64{10, -20})

	test.That(t, s.Set("pose", 5), test.ShouldBeNil)
	goal, _ := a.GoalPosition()
	test.That(t, goal, test.ShouldEqual, 15.0)
	goal, _ = b.GoalPosition()
	test.That(t, goal, test.ShouldEqual, -15.0)

	a.UpdateTelemetry(motor.PositionTelemetry(13))
	b.UpdateTelemetry(motor.PositionTelemetry(-20))
	pose, err := s.Get("pose")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose, test.ShouldResemble, []any{3.0, 0.0})
}

func TestPositions(t *testing.T) {
	s, a, b := twoMotors(t)

	_, ok := s.Positions()
	test.That(t, ok, test.ShouldBeFalse)

	a.UpdateTelemetry(motor.PositionTelemetry(1))
	b.UpdateTelemetry(motor.PositionTelemetry(2))
	positions, ok := s.Positions()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, positions, test.ShouldResemble, []float64{1, 2})

	test.That(t, s.SetGoalPositions([]float64{7, 8}), test.ShouldBeNil)
	goal, _ := b.GoalPosition()
	test.That(t, goal, test.ShouldEqual, 8.0)
}

func TestAttributes(t *testing.T) {
	names := Attributes()
	test.That(t, names, test.ShouldContain, "goal_position")
	test.That(t, names, test.ShouldContain, "pose")
	test.That(t, names[0], test.ShouldEqual, "compliant")
	test.That(t, New().Len(), test.ShouldEqual, 0)
}

func TestSet_NilChangesNothing(t *testing.T) {
	s, a, b := twoMotors(t)

	for _, name := range []string{"goal_position", "compliant", "pose", "torque_limit"} {
		err := s.Set(name, nil)
		test.That(t, errors.Is(err, ErrInvalidValue), test.ShouldBeTrue)
	}
	err := s.Set("goal_position", []any{10.0, nil})
	test.That(t, errors.Is(err, ErrInvalidValue), test.ShouldBeTrue)

	test.That(t, a.IsDirty(), test.ShouldBeFalse)
	test.That(t, b.IsDirty(), test.ShouldBeFalse)

	err = s.SetZeroPose(nil)
	test.That(t, errors.Is(err, ErrInvalidValue), test.ShouldBeTrue)
	err = s.SetZeroPose([]any{nil, 1})
	test.That(t, errors.Is(err, ErrInvalidValue), test.ShouldBeTrue)
	test.That(t, s.ZeroPose(), test.ShouldResemble, []float64{0, 0})
}

func TestSet_Steps(t *testing.T) {
	var motors []*motor.Motor
	for _, id := range []int{3, 17} {
		block, err := register.Default(id, 12)
		test.That(t, err, test.ShouldBeNil)
		motors = append(motors, motor.New(id, block))
	}
	s := New(motors...)

	test.That(t, s.Set("goal_position_bytes", 150), test.ShouldBeNil)
	got, err := s.Get("goal_position_bytes")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []any{150, 150})

	// Setting the position moves the goal.
	test.That(t, s.Set("position_bytes", []int{100, 200}), test.ShouldBeNil)
	got, err = s.Get("goal_position_bytes")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []any{100, 200})

	// 512 steps is the center of an AX-12.
	test.That(t, s.Set("goal_position_bytes", 512), test.ShouldBeNil)
	goal, _ := motors[0].GoalPosition()
	test.That(t, goal, test.ShouldEqual, 0.0)

	motors[1].UpdateTelemetry(motor.PositionTelemetry(0))
	got, err = s.Get("position_bytes")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []any{nil, 512})
}

func TestSet_StepsNeedConfiguration(t *testing.T) {
	s, a, b := twoMotors(t)

	err := s.Set("goal_position_bytes", 150)
	test.That(t, errors.Is(err, motor.ErrNotConfigured), test.ShouldBeTrue)
	test.That(t, a.IsDirty(), test.ShouldBeFalse)
	test.That(t, b.IsDirty(), test.ShouldBeFalse)

	a.SetGoalPosition(0)
	b.SetGoalPosition(0)
	got, err := s.Get("goal_position_bytes")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []any{512, nil})
}
