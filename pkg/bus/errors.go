package bus

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gwillem/dxlmotion/pkg/motor"
)

var (
	// ErrDeviceUnreachable is returned when a motor does not answer.
	ErrDeviceUnreachable = errors.New("device unreachable")

	// ErrTimeout is returned when the bus did not complete a transaction in time.
	ErrTimeout = errors.New("bus timeout")

	// ErrUnsupported is returned for operations a driver cannot perform.
	ErrUnsupported = errors.New("not supported by driver")

	// ErrWriteRejected matches every *WriteRejectedError.
	ErrWriteRejected = errors.New("write rejected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("bus closed")
)

// WriteRejectedError is returned when a device or driver refuses a value.
type WriteRejectedError struct {
	ID     int
	Field  motor.Field
	Reason string
}

func (e *WriteRejectedError) Error() string {
	return fmt.Sprintf("motor %d: %s write rejected: %s", e.ID, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrWriteRejected) hold.
func (e *WriteRejectedError) Is(target error) bool {
	return target == ErrWriteRejected
}
