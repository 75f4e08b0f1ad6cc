package motor

// Field identifies a writable register of a motor.
type Field int

// Writable fields. Compliant is structural; the others are fast-path control
// fields written every bus pass.
const (
	Compliant Field = iota
	GoalPosition
	MovingSpeed
	TorqueLimit
)

// Fields lists the writable fields in the order the bus should apply them.
// Structural changes go first so that, for example, torque is engaged before a
// goal position is sent.
func Fields() []Field {
	return []Field{Compliant, GoalPosition, MovingSpeed, TorqueLimit}
}

// String returns the register name of the field.
func (f Field) String() string {
	switch f {
	case Compliant:
		return "compliant"
	case GoalPosition:
		return "goal_position"
	case MovingSpeed:
		return "moving_speed"
	case TorqueLimit:
		return "torque_limit"
	default:
		return "unknown"
	}
}

// FastPath reports whether the field belongs to the steady-state control
// fields (position, speed, load) rather than occasional reconfiguration.
func (f Field) FastPath() bool {
	return f == GoalPosition || f == MovingSpeed || f == TorqueLimit
}

// Write is one pending field update handed to the bus layer.
type Write struct {
	ID    int
	Field Field
	// Value carries the desired value; for Compliant it is 1 (compliant) or 0.
	Value float64
	seq   uint64
}

// Bool returns the value of a Compliant write.
func (w Write) Bool() bool {
	return w.Value != 0
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Telemetry is one read of a motor's live registers. A nil field was not read.
type Telemetry struct {
	Position *float64 // degrees
	Speed    *float64 // degrees per second
	Load     *float64 // percent of max torque, signed by direction
}

// NewTelemetry returns a reading with all fields present.
func NewTelemetry(position, speed, load float64) Telemetry {
	return Telemetry{Position: &position, Speed: &speed, Load: &load}
}

// PositionTelemetry returns a reading carrying only a position.
func PositionTelemetry(position float64) Telemetry {
	return Telemetry{Position: &position}
}
