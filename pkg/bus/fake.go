package bus

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/gwillem/dxlmotion/pkg/motor"
	"github.com/gwillem/dxlmotion/pkg/register"
)

// FakeDriver is an in-memory bus. Motors with torque engaged reach their goal
// position instantly. It is used by tests and by the "fake" driver setting.
type FakeDriver struct {
	mu       sync.Mutex
	servos   map[int]*fakeServo
	failures map[failKey]error
	writes   []motor.Write
	closed   bool
}

// FakeServo is the device-side state of a fake motor.
type FakeServo struct {
	Position    float64
	Goal        float64
	HasGoal     bool
	Compliant   bool
	MovingSpeed float64
	TorqueLimit float64
	Unplugged   bool
}

type fakeServo struct {
	FakeServo
	config []byte
}

type failKey struct {
	id    int
	field motor.Field
}

// NewFakeDriver returns an empty fake bus.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		servos:   make(map[int]*fakeServo),
		failures: make(map[failKey]error),
	}
}

// AddMotor plugs in a motor with factory defaults for modelNumber.
func (d *FakeDriver) AddMotor(id, modelNumber int) error {
	block, err := register.Default(id, modelNumber)
	if err != nil {
		return err
	}
	d.SetConfig(id, block.Encode())
	return nil
}

// SetConfig plugs in a motor (or replaces its EEPROM) with raw bytes, which
// need not be valid.
func (d *FakeDriver) SetConfig(id int, raw []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.servos[id]
	if !ok {
		s = &fakeServo{FakeServo: FakeServo{Compliant: true, TorqueLimit: motor.DefaultTorqueLimit}}
		d.servos[id] = s
	}
	s.config = append([]byte(nil), raw...)
}

// Move sets the position of a motor as if it were pushed by hand.
func (d *FakeDriver) Move(id int, deg float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.servos[id]; ok {
		s.Position = deg
	}
}

// Unplug makes a motor stop answering.
func (d *FakeDriver) Unplug(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.servos[id]; ok {
		s.Unplugged = true
	}
}

// FailNext makes the next write of field to motor id fail with err.
func (d *FakeDriver) FailNext(id int, field motor.Field, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[failKey{id, field}] = err
}

// Writes returns every accepted write in order.
func (d *FakeDriver) Writes() []motor.Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]motor.Write(nil), d.writes...)
}

// Servo returns the device-side state of a motor.
func (d *FakeDriver) Servo(id int) (FakeServo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.servos[id]
	if !ok {
		return FakeServo{}, false
	}
	return s.FakeServo, true
}

// Scan implements Driver.
func (d *FakeDriver) Scan(ctx context.Context, minID, maxID int) ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	var ids []int
	for id, s := range d.servos {
		if id >= minID && id <= maxID && !s.Unplugged {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, ctx.Err()
}

// ReadConfig implements Driver.
func (d *FakeDriver) ReadConfig(ctx context.Context, id int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.servo(id)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), s.config...), nil
}

// ReadTelemetry implements Driver.
func (d *FakeDriver) ReadTelemetry(ctx context.Context, ids []int) (map[int]motor.Telemetry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	var errs error
	out := make(map[int]motor.Telemetry, len(ids))
	for _, id := range ids {
		s, err := d.servo(id)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		load := 0.0
		if !s.Compliant {
			load = 5
		}
		out[id] = motor.NewTelemetry(s.Position, 0, load)
	}
	return out, errs
}

// Write implements Driver.
func (d *FakeDriver) Write(ctx context.Context, id int, w motor.Write) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(ErrTimeout, err.Error())
	}
	s, err := d.servo(id)
	if err != nil {
		return err
	}
	key := failKey{id, w.Field}
	if err, ok := d.failures[key]; ok {
		delete(d.failures, key)
		return err
	}

	switch w.Field {
	case motor.Compliant:
		s.Compliant = w.Bool()
	case motor.GoalPosition:
		s.Goal = w.Value
		s.HasGoal = true
	case motor.MovingSpeed:
		s.MovingSpeed = w.Value
	case motor.TorqueLimit:
		if w.Value < 0 || w.Value > 100 {
			return &WriteRejectedError{ID: id, Field: w.Field, Reason: "torque limit out of range"}
		}
		s.TorqueLimit = w.Value
	}
	if !s.Compliant && s.HasGoal {
		s.Position = s.Goal
	}
	d.writes = append(d.writes, w)
	return nil
}

// Close implements Driver.
func (d *FakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *FakeDriver) servo(id int) (*fakeServo, error) {
	if d.closed {
		return nil, ErrClosed
	}
	s, ok := d.servos[id]
	if !ok || s.Unplugged {
		return nil, errors.Wrapf(ErrDeviceUnreachable, "motor %d", id)
	}
	return s, nil
}
