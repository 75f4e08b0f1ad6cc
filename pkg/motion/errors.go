package motion

import "github.com/pkg/errors"

var (
	// ErrAlreadyStarted is returned when Start is called a second time.
	ErrAlreadyStarted = errors.New("motion controller already started")

	// ErrStopped is returned when starting a controller that was stopped first.
	ErrStopped = errors.New("motion controller stopped")

	// ErrNoTrajectory is returned when a controller is built without a
	// trajectory or target.
	ErrNoTrajectory = errors.New("motion controller needs a target and a trajectory")
)
