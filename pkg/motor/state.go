package motor

import "time"

// UpdateTelemetry merges a reading into the motor. Fields missing from t keep
// their last known value.
func (m *Motor) UpdateTelemetry(t Telemetry) {
	m.tmu.Lock()
	defer m.tmu.Unlock()

	if t.Position != nil {
		v := *t.Position
		m.position = &v
	}
	if t.Speed != nil {
		v := *t.Speed
		m.speed = &v
	}
	if t.Load != nil {
		v := *t.Load
		m.load = &v
	}
	m.updatedAt = time.Now()
}

func (m *Motor) reading(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// CurrentPosition returns the last read position; ok is false until one was read.
func (m *Motor) CurrentPosition() (float64, bool) {
	m.tmu.RLock()
	defer m.tmu.RUnlock()
	return m.reading(m.position)
}

// CurrentSpeed returns the last read speed.
func (m *Motor) CurrentSpeed() (float64, bool) {
	m.tmu.RLock()
	defer m.tmu.RUnlock()
	return m.reading(m.speed)
}

// CurrentLoad returns the last read load.
func (m *Motor) CurrentLoad() (float64, bool) {
	m.tmu.RLock()
	defer m.tmu.RUnlock()
	return m.reading(m.load)
}

// LastRead returns when telemetry was last merged. Zero if never.
func (m *Motor) LastRead() time.Time {
	m.tmu.RLock()
	defer m.tmu.RUnlock()
	return m.updatedAt
}

// Position reads the current position. Setting it sets the goal position.
func (m *Motor) Position() (float64, bool) {
	return m.CurrentPosition()
}

// SetPosition sets the goal position.
func (m *Motor) SetPosition(deg float64) {
	m.SetGoalPosition(deg)
}

// Speed reads the current speed. Setting it sets the moving speed.
func (m *Motor) Speed() (float64, bool) {
	return m.CurrentSpeed()
}

// SetSpeed sets the moving speed.
func (m *Motor) SetSpeed(v float64) {
	m.SetMovingSpeed(v)
}

// Compliant returns the confirmed compliance: true when torque is disengaged.
// ok is false until the device confirmed a value.
func (m *Motor) Compliant() (compliant, ok bool) {
	return m.compliant.confirmedValue()
}

// SetCompliant requests torque to be disengaged (true) or engaged (false).
func (m *Motor) SetCompliant(v bool) {
	m.compliant.set(v)
}

// GoalPosition returns the desired goal position in degrees.
func (m *Motor) GoalPosition() (float64, bool) {
	return m.goalPosition.desired()
}

// SetGoalPosition requests a new goal position in degrees.
func (m *Motor) SetGoalPosition(deg float64) {
	m.goalPosition.set(deg)
}

// MovingSpeed returns the desired moving speed in degrees per second.
func (m *Motor) MovingSpeed() (float64, bool) {
	return m.movingSpeed.desired()
}

// SetMovingSpeed requests a new moving speed in degrees per second.
func (m *Motor) SetMovingSpeed(v float64) {
	m.movingSpeed.set(v)
}

// TorqueLimit returns the desired torque limit in percent, or
// DefaultTorqueLimit when none was set or confirmed.
func (m *Motor) TorqueLimit() float64 {
	if v, ok := m.torqueLimit.desired(); ok {
		return v
	}
	return DefaultTorqueLimit
}

// SetTorqueLimit requests a new torque limit in percent.
func (m *Motor) SetTorqueLimit(percent float64) {
	m.torqueLimit.set(percent)
}

// Dirty reports whether field f has a write the bus has not applied.
func (m *Motor) Dirty(f Field) bool {
	switch f {
	case Compliant:
		return m.compliant.dirty()
	case GoalPosition:
		return m.goalPosition.dirty()
	case MovingSpeed:
		return m.movingSpeed.dirty()
	case TorqueLimit:
		return m.torqueLimit.dirty()
	}
	return false
}

// IsDirty reports whether any field is pending.
func (m *Motor) IsDirty() bool {
	for _, f := range Fields() {
		if m.Dirty(f) {
			return true
		}
	}
	return false
}

// NeedsUpdate reports whether a structural (non fast-path) field is pending,
// so the bus can schedule reconfiguration apart from the control fields.
func (m *Motor) NeedsUpdate() bool {
	for _, f := range Fields() {
		if !f.FastPath() && m.Dirty(f) {
			return true
		}
	}
	return false
}

// Pending returns a snapshot of the pending writes, structural fields first.
func (m *Motor) Pending() []Write {
	var writes []Write
	id := m.ID()

	if p, ok := m.compliant.snapshot(); ok {
		writes = append(writes, Write{ID: id, Field: Compliant, Value: boolValue(p.value), seq: p.seq})
	}
	for _, f := range []Field{GoalPosition, MovingSpeed, TorqueLimit} {
		if p, ok := m.floatIntent(f).snapshot(); ok {
			writes = append(writes, Write{ID: id, Field: f, Value: p.value, seq: p.seq})
		}
	}
	return writes
}

// Confirm acknowledges a successful write. It reports whether the field is
// clean afterwards; false means a newer value was set meanwhile and is still
// pending.
func (m *Motor) Confirm(w Write) bool {
	if w.Field == Compliant {
		return m.compliant.confirm(w.Bool(), w.seq)
	}
	in := m.floatIntent(w.Field)
	if in == nil {
		return true
	}
	return in.confirm(w.Value, w.seq)
}

// Observe records a value read back from the device as confirmed. Pending
// writes are left untouched.
func (m *Motor) Observe(f Field, v float64) {
	if f == Compliant {
		m.compliant.observe(v != 0)
		return
	}
	if in := m.floatIntent(f); in != nil {
		in.observe(v)
	}
}

func (m *Motor) floatIntent(f Field) *intent[float64] {
	switch f {
	case GoalPosition:
		return &m.goalPosition
	case MovingSpeed:
		return &m.movingSpeed
	case TorqueLimit:
		return &m.torqueLimit
	}
	return nil
}
