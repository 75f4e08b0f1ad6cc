// Package bus moves state between motor models and a servo bus.
//
// A Driver speaks to the hardware (or a fake of it). Sync owns the set of
// motors discovered on one bus: it flushes pending writes, acknowledges the
// ones the device accepted, and merges fresh telemetry back into each motor.
package bus

import (
	"context"

	"github.com/gwillem/dxlmotion/pkg/motor"
)

// Driver is a servo bus.
type Driver interface {
	// Scan returns the ids that answer in [minID, maxID], in ascending order.
	Scan(ctx context.Context, minID, maxID int) ([]int, error)

	// ReadConfig returns the raw EEPROM block of a motor. Drivers that cannot
	// read it return ErrUnsupported.
	ReadConfig(ctx context.Context, id int) ([]byte, error)

	// ReadTelemetry reads the live registers of ids. Motors that did not
	// answer are missing from the result.
	ReadTelemetry(ctx context.Context, ids []int) (map[int]motor.Telemetry, error)

	// Write applies one field update to a motor.
	Write(ctx context.Context, id int, w motor.Write) error

	Close() error
}
