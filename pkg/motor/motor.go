// Package motor models one servo: its configuration block, its last known
// telemetry and the values the host wants written to it.
//
// Writable fields keep a desired and a confirmed value. Setting a field only
// records intent; the bus layer picks pending writes up with Pending, applies
// them, and acknowledges each success with Confirm. A failed write stays pending
// and is retried until it succeeds or a newer set replaces it.
package motor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gwillem/dxlmotion/pkg/register"
)

// DefaultTorqueLimit is the torque limit reported before one is set, in
// percent of the EEPROM max torque.
const DefaultTorqueLimit = 100.0

// Motor is a single servo on a bus. It is safe for concurrent use.
type Motor struct {
	id    int
	block *register.Block

	tmu       sync.RWMutex
	position  *float64
	speed     *float64
	load      *float64
	updatedAt time.Time

	compliant    intent[bool]
	goalPosition intent[float64]
	movingSpeed  intent[float64]
	torqueLimit  intent[float64]
}

// New creates a motor. block may be nil when no configuration was read, in
// which case id is used as the motor's identity.
func New(id int, block *register.Block) *Motor {
	return &Motor{id: id, block: block}
}

func (m *Motor) String() string {
	return fmt.Sprintf("M%d", m.ID())
}

// ID returns the id from the configuration block, or the locally assigned id.
func (m *Motor) ID() int {
	if m.block == nil {
		return m.id
	}
	return m.block.ID
}

// Configured reports whether a configuration block is loaded.
func (m *Motor) Configured() bool {
	return m.block != nil
}

// Config returns a copy of the configuration block.
func (m *Motor) Config() (register.Block, error) {
	if m.block == nil {
		return register.Block{}, ErrNotConfigured
	}
	return *m.block, nil
}

// Model returns the model name, e.g. "AX-12".
func (m *Motor) Model() (string, error) {
	if m.block == nil {
		return "", ErrNotConfigured
	}
	return m.block.Model().Name, nil
}

// Firmware returns the firmware version.
func (m *Motor) Firmware() (int, error) {
	if m.block == nil {
		return 0, ErrNotConfigured
	}
	return m.block.Firmware, nil
}

// BaudRate returns the configured baud rate in bits per second.
func (m *Motor) BaudRate() (int, error) {
	if m.block == nil {
		return 0, ErrNotConfigured
	}
	return m.block.BaudRate, nil
}

// ReturnDelay returns the status packet delay.
func (m *Motor) ReturnDelay() (time.Duration, error) {
	if m.block == nil {
		return 0, ErrNotConfigured
	}
	return m.block.ReturnDelay, nil
}

// CWAngleLimit returns the clockwise angle limit in degrees.
func (m *Motor) CWAngleLimit() (float64, error) {
	if m.block == nil {
		return 0, ErrNotConfigured
	}
	return m.block.CWAngleLimit, nil
}

// CCWAngleLimit returns the counter-clockwise angle limit in degrees.
func (m *Motor) CCWAngleLimit() (float64, error) {
	if m.block == nil {
		return 0, ErrNotConfigured
	}
	return m.block.CCWAngleLimit, nil
}

// MaxTemperature returns the temperature limit in °C.
func (m *Motor) MaxTemperature() (int, error) {
	if m.block == nil {
		return 0, ErrNotConfigured
	}
	return m.block.MaxTemperature, nil
}

// MinVoltage returns the lower voltage limit.
func (m *Motor) MinVoltage() (float64, error) {
	if m.block == nil {
		return 0, ErrNotConfigured
	}
	return m.block.MinVoltage, nil
}

// MaxVoltage returns the upper voltage limit.
func (m *Motor) MaxVoltage() (float64, error) {
	if m.block == nil {
		return 0, ErrNotConfigured
	}
	return m.block.MaxVoltage, nil
}

// MaxTorque returns the EEPROM torque limit in percent.
func (m *Motor) MaxTorque() (float64, error) {
	if m.block == nil {
		return 0, ErrNotConfigured
	}
	return m.block.MaxTorque, nil
}

// StatusReturnLevel returns which instructions get a status packet.
func (m *Motor) StatusReturnLevel() (int, error) {
	if m.block == nil {
		return 0, ErrNotConfigured
	}
	return m.block.StatusReturnLevel, nil
}

// ByID sorts motors by id.
func ByID(motors []*Motor) {
	sort.Slice(motors, func(i, j int) bool {
		return motors[i].ID() < motors[j].ID()
	})
}
