package main

import (
	"testing"

	"go.viam.com/test"

	"github.com/gwillem/dxlmotion/pkg/robot"
)

func TestLayoutFor(t *testing.T) {
	so101 := layoutFor([]int{1, 2, 3, 4, 5, 6})
	test.That(t, so101, test.ShouldResemble, robot.SO101())

	other := layoutFor([]int{3, 7})
	test.That(t, other.Names(), test.ShouldResemble, []robot.MotorName{"motor_3", "motor_7"})
	test.That(t, other["motor_7"].ID, test.ShouldEqual, 7)
}
