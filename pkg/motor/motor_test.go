package motor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/gwillem/dxlmotion/pkg/register"
)

// flush mimics a bus pass that succeeds for every pending write.
func flush(m *Motor) {
	for _, w := range m.Pending() {
		m.Confirm(w)
	}
}

func pendingValue(m *Motor, f Field) (float64, bool) {
	for _, w := range m.Pending() {
		if w.Field == f {
			return w.Value, true
		}
	}
	return 0, false
}

func TestMotor_Unconfigured(t *testing.T) {
	m := New(3, nil)

	test.That(t, m.ID(), test.ShouldEqual, 3)
	test.That(t, m.Configured(), test.ShouldBeFalse)
	test.That(t, m.String(), test.ShouldEqual, "M3")

	_, err := m.Model()
	test.That(t, errors.Is(err, ErrNotConfigured), test.ShouldBeTrue)
	_, err = m.BaudRate()
	test.That(t, errors.Is(err, ErrNotConfigured), test.ShouldBeTrue)
	_, err = m.CWAngleLimit()
	test.That(t, errors.Is(err, ErrNotConfigured), test.ShouldBeTrue)
	_, err = m.StatusReturnLevel()
	test.That(t, errors.Is(err, ErrNotConfigured), test.ShouldBeTrue)
	_, err = m.Config()
	test.That(t, errors.Is(err, ErrNotConfigured), test.ShouldBeTrue)
}

func TestMotor_Configured(t *testing.T) {
	block, err := register.Default(17, 12)
	test.That(t, err, test.ShouldBeNil)

	m := New(1, block)
	test.That(t, m.ID(), test.ShouldEqual, 17)

	model, err := m.Model()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model, test.ShouldEqual, "AX-12")

	baud, err := m.BaudRate()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, baud, test.ShouldEqual, 1_000_000)

	delay, err := m.ReturnDelay()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, delay, test.ShouldEqual, 500*time.Microsecond)

	torque, err := m.MaxTorque()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, torque, test.ShouldAlmostEqual, 100.0)
}

func TestMotor_TelemetryUnknownUntilRead(t *testing.T) {
	m := New(1, nil)

	_, ok := m.CurrentPosition()
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = m.Position()
	test.That(t, ok, test.ShouldBeFalse)

	m.UpdateTelemetry(NewTelemetry(10, 20, -5))
	pos, ok := m.Position()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pos, test.ShouldEqual, 10.0)

	// A partial reading keeps the other last-known values.
	m.UpdateTelemetry(PositionTelemetry(12))
	pos, _ = m.CurrentPosition()
	speed, ok := m.CurrentSpeed()
	test.That(t, ok, test.ShouldBeTrue)
	load, _ := m.CurrentLoad()
	test.That(t, pos, test.ShouldEqual, 12.0)
	test.That(t, speed, test.ShouldEqual, 20.0)
	test.That(t, load, test.ShouldEqual, -5.0)

	m.UpdateTelemetry(Telemetry{})
	pos, ok = m.CurrentPosition()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pos, test.ShouldEqual, 12.0)
}

func TestMotor_GoalPositionFlush(t *testing.T) {
	m := New(1, nil)

	m.SetGoalPosition(150)
	test.That(t, m.Dirty(GoalPosition), test.ShouldBeTrue)
	goal, ok := m.GoalPosition()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, goal, test.ShouldEqual, 150.0)

	flush(m)
	test.That(t, m.Dirty(GoalPosition), test.ShouldBeFalse)
	goal, _ = m.GoalPosition()
	test.That(t, goal, test.ShouldEqual, 150.0)
}

func TestMotor_DirtyIdempotence(t *testing.T) {
	m := New(1, nil)
	m.SetMovingSpeed(50)
	flush(m)

	// Setting the confirmed value is a no-op.
	m.SetMovingSpeed(50)
	test.That(t, m.Dirty(MovingSpeed), test.ShouldBeFalse)
	test.That(t, m.Pending(), test.ShouldBeEmpty)

	// Repeating a new value yields exactly one pending write.
	m.SetMovingSpeed(80)
	first := m.Pending()
	m.SetMovingSpeed(80)
	m.SetMovingSpeed(80)
	test.That(t, m.Pending(), test.ShouldResemble, first)
	test.That(t, first, test.ShouldHaveLength, 1)
}

func TestMotor_NoLostIntent(t *testing.T) {
	m := New(1, nil)

	m.SetGoalPosition(10)
	failed := m.Pending()
	test.That(t, failed, test.ShouldHaveLength, 1)
	// The write fails: nothing is confirmed.

	m.SetGoalPosition(20)
	flush(m)

	test.That(t, m.Dirty(GoalPosition), test.ShouldBeFalse)
	goal, _ := m.GoalPosition()
	test.That(t, goal, test.ShouldEqual, 20.0)
}

func TestMotor_ConfirmOfSupersededWrite(t *testing.T) {
	m := New(1, nil)

	m.SetGoalPosition(10)
	inFlight := m.Pending()[0]

	// A newer set lands while the bus is writing 10.
	m.SetGoalPosition(30)
	clean := m.Confirm(inFlight)
	test.That(t, clean, test.ShouldBeFalse)
	test.That(t, m.Dirty(GoalPosition), test.ShouldBeTrue)

	v, ok := pendingValue(m, GoalPosition)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 30.0)
}

func TestMotor_RevertWhileInFlight(t *testing.T) {
	m := New(1, nil)
	m.SetGoalPosition(0)
	flush(m)

	m.SetGoalPosition(45)
	inFlight := m.Pending()[0]

	// Going back to the confirmed value while 45 is on the wire must still be
	// written once 45 lands.
	m.SetGoalPosition(0)
	m.Confirm(inFlight)

	v, ok := pendingValue(m, GoalPosition)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 0.0)
}

func TestMotor_ComplianceConfirmedGetter(t *testing.T) {
	m := New(1, nil)

	_, ok := m.Compliant()
	test.That(t, ok, test.ShouldBeFalse)

	m.SetCompliant(true)
	test.That(t, m.NeedsUpdate(), test.ShouldBeTrue)
	_, ok = m.Compliant()
	test.That(t, ok, test.ShouldBeFalse)

	flush(m)
	compliant, ok := m.Compliant()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, compliant, test.ShouldBeTrue)
	test.That(t, m.NeedsUpdate(), test.ShouldBeFalse)

	m.SetCompliant(false)
	compliant, _ = m.Compliant()
	test.That(t, compliant, test.ShouldBeTrue)
}

func TestMotor_NeedsUpdateOnlyForStructuralFields(t *testing.T) {
	m := New(1, nil)

	m.SetGoalPosition(1)
	m.SetMovingSpeed(2)
	m.SetTorqueLimit(50)
	test.That(t, m.IsDirty(), test.ShouldBeTrue)
	test.That(t, m.NeedsUpdate(), test.ShouldBeFalse)

	m.SetCompliant(false)
	test.That(t, m.NeedsUpdate(), test.ShouldBeTrue)

	writes := m.Pending()
	test.That(t, writes, test.ShouldHaveLength, 4)
	test.That(t, writes[0].Field, test.ShouldEqual, Compliant)
	test.That(t, writes[0].Bool(), test.ShouldBeFalse)
}

func TestMotor_TorqueLimitDefault(t *testing.T) {
	m := New(1, nil)
	test.That(t, m.TorqueLimit(), test.ShouldEqual, DefaultTorqueLimit)
	test.That(t, m.Dirty(TorqueLimit), test.ShouldBeFalse)

	m.SetTorqueLimit(40)
	test.That(t, m.TorqueLimit(), test.ShouldEqual, 40.0)
	test.That(t, m.Dirty(TorqueLimit), test.ShouldBeTrue)
}

func TestMotor_PositionAsymmetry(t *testing.T) {
	m := New(1, nil)
	m.UpdateTelemetry(PositionTelemetry(5))

	m.SetPosition(90)
	pos, _ := m.Position()
	goal, _ := m.GoalPosition()
	test.That(t, pos, test.ShouldEqual, 5.0)
	test.That(t, goal, test.ShouldEqual, 90.0)

	m.SetSpeed(30)
	speed, _ := m.MovingSpeed()
	test.That(t, speed, test.ShouldEqual, 30.0)
	_, ok := m.Speed()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestMotor_ObserveKeepsPending(t *testing.T) {
	m := New(1, nil)
	m.SetTorqueLimit(60)

	m.Observe(TorqueLimit, 100)
	test.That(t, m.Dirty(TorqueLimit), test.ShouldBeTrue)
	test.That(t, m.TorqueLimit(), test.ShouldEqual, 60.0)

	m.Observe(Compliant, 1)
	compliant, ok := m.Compliant()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, compliant, test.ShouldBeTrue)
}

func TestMotor_ConcurrentSetAndFlush(t *testing.T) {
	m := New(1, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.SetGoalPosition(float64(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			flush(m)
		}
	}()
	wg.Wait()

	// Whatever interleaving happened, the last set is either confirmed or
	// still pending; it is never lost.
	flush(m)
	goal, _ := m.GoalPosition()
	test.That(t, goal, test.ShouldEqual, 999.0)
	test.That(t, m.Dirty(GoalPosition), test.ShouldBeFalse)
}

func TestByID(t *testing.T) {
	motors := []*Motor{New(17, nil), New(3, nil), New(9, nil)}
	ByID(motors)
	test.That(t, motors[0].ID(), test.ShouldEqual, 3)
	test.That(t, motors[2].ID(), test.ShouldEqual, 17)
}
