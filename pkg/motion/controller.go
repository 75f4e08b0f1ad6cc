// Package motion drives a motor from a trajectory sampled at a fixed rate.
//
// A Controller runs its own goroutine. Each sample evaluates the trajectory at
// the time elapsed since start, minus any time spent suspended, and hands the
// result to an ApplyFunc that writes it into the motor's desired values. The
// controller never talks to the bus; the bus layer picks the writes up.
package motion

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultHz is the sample rate used when Config.Hz is not set.
const DefaultHz = 10

// State is the lifecycle state of a controller.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateSuspended
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Target is the part of a motor a controller writes to. *motor.Motor
// implements it.
type Target interface {
	SetGoalPosition(deg float64)
	SetMovingSpeed(v float64)
	SetTorqueLimit(percent float64)
}

// ApplyFunc writes one sample into the target.
type ApplyFunc[S any] func(t Target, sample S)

// ApplyPosition writes a single value as the goal position.
func ApplyPosition(t Target, v Value) {
	if pos, ok := v.Get(); ok {
		t.SetGoalPosition(pos)
	}
}

// ApplyTriple writes each set component of a triple.
func ApplyTriple(t Target, s Triple) {
	if pos, ok := s.Position.Get(); ok {
		t.SetGoalPosition(pos)
	}
	if speed, ok := s.Speed.Get(); ok {
		t.SetMovingSpeed(speed)
	}
	if torque, ok := s.Torque.Get(); ok {
		t.SetTorqueLimit(torque)
	}
}

// Config holds configuration for a controller.
type Config struct {
	Hz     float64 // samples per second
	Clock  clock.Clock
	Logger *zap.SugaredLogger
	Name   string // used in log lines
}

// Controller samples a trajectory into a target until the trajectory
// finishes or Stop is called. A controller runs once; build a new one to
// replay a trajectory.
type Controller[S any] struct {
	target Target
	tf     Trajectory[S]
	apply  ApplyFunc[S]
	period time.Duration
	clock  clock.Clock
	logger *zap.SugaredLogger
	name   string

	mu          sync.Mutex
	cond        *sync.Cond
	state       State
	started     bool
	zero        time.Time
	suspendedAt time.Time
	stoppedAt   time.Time
	err         error

	samples  *atomic.Int64
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a controller that applies samples of tf to target with apply.
// A target holding a nil pointer is not detected here; the first sample then
// fails the controller.
func New[S any](target Target, tf Trajectory[S], apply ApplyFunc[S], cfg Config) (*Controller[S], error) {
	if target == nil || tf == nil || apply == nil {
		return nil, ErrNoTrajectory
	}
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("motion-%v", target)
	}

	c := &Controller[S]{
		target:  target,
		tf:      tf,
		apply:   apply,
		period:  time.Duration(float64(time.Second) / cfg.Hz),
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		name:    cfg.Name,
		state:   StateCreated,
		samples: atomic.NewInt64(0),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c, nil
}

// NewPose creates a controller that drives the goal position.
func NewPose(target Target, tf Trajectory[Value], cfg Config) (*Controller[Value], error) {
	return New(target, tf, ApplyPosition, cfg)
}

// NewPoseSpeedTorque creates a controller that drives goal position, moving
// speed and torque limit.
func NewPoseSpeedTorque(target Target, tf Trajectory[Triple], cfg Config) (*Controller[Triple], error) {
	return New(target, tf, ApplyTriple, cfg)
}

// Start launches the sampling goroutine.
func (c *Controller[S]) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if c.state == StateStopped {
		c.mu.Unlock()
		return ErrStopped
	}
	c.started = true
	c.state = StateRunning
	c.zero = c.clock.Now()
	c.mu.Unlock()

	c.logger.Debugw("motion controller started", "name", c.name, "period", c.period)
	go c.run()
	return nil
}

// Stop ends the controller. It is safe to call at any time, from any
// goroutine, and more than once. A suspended controller is woken so that it
// can exit. Stop does not wait; use Wait for that.
func (c *Controller[S]) Stop() {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	if c.state == StateSuspended {
		c.stoppedAt = c.suspendedAt
	} else {
		c.stoppedAt = c.clock.Now()
	}
	c.state = StateStopped
	started := c.started
	c.cond.Broadcast()
	c.mu.Unlock()

	c.stopOnce.Do(func() { close(c.stopCh) })
	if !started {
		c.doneOnce.Do(func() { close(c.done) })
	}
}

// Suspend pauses sampling before the next sample. Suspending a controller
// that is not running has no effect.
func (c *Controller[S]) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return
	}
	c.suspendedAt = c.clock.Now()
	c.state = StateSuspended
	c.logger.Debugw("motion controller suspended", "name", c.name, "elapsed", c.suspendedAt.Sub(c.zero))
}

// Resume continues a suspended controller. The time spent suspended is not
// counted as elapsed, so the trajectory continues where it left off.
func (c *Controller[S]) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSuspended {
		return
	}
	c.zero = c.zero.Add(c.clock.Since(c.suspendedAt))
	c.state = StateRunning
	c.cond.Broadcast()
	c.logger.Debugw("motion controller resumed", "name", c.name)
}

// State returns the lifecycle state.
func (c *Controller[S]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Suspended reports whether the controller is suspended.
func (c *Controller[S]) Suspended() bool {
	return c.State() == StateSuspended
}

// Elapsed returns the trajectory time, excluding suspensions.
func (c *Controller[S]) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.started:
		return 0
	case c.state == StateSuspended:
		return c.suspendedAt.Sub(c.zero)
	case c.state == StateStopped:
		return c.stoppedAt.Sub(c.zero)
	default:
		return c.clock.Since(c.zero)
	}
}

// Samples returns how many samples were applied.
func (c *Controller[S]) Samples() int64 {
	return c.samples.Load()
}

// Done is closed when the controller has stopped.
func (c *Controller[S]) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the controller stops and returns the trajectory error
// that stopped it, if any.
func (c *Controller[S]) Wait() error {
	<-c.done
	return c.Err()
}

// Err returns the error that stopped the controller, if any.
func (c *Controller[S]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller[S]) run() {
	for {
		if !c.awaitRunning() {
			c.finish(nil)
			return
		}

		t1 := c.clock.Now()
		elapsed := c.elapsedAt(t1)

		finished, err := c.sample(elapsed)
		if err != nil {
			c.finish(err)
			return
		}
		c.samples.Inc()

		if finished {
			c.logger.Debugw("trajectory finished", "name", c.name, "elapsed", elapsed)
			c.finish(nil)
			return
		}

		if !c.sleep(c.period - c.clock.Since(t1)) {
			c.finish(nil)
			return
		}
	}
}

// awaitRunning blocks while suspended and reports whether the loop should go on.
func (c *Controller[S]) awaitRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.state == StateSuspended {
		c.cond.Wait()
	}
	return c.state == StateRunning
}

func (c *Controller[S]) elapsedAt(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return t.Sub(c.zero)
}

// sample evaluates the trajectory at elapsed and applies the result to the
// target. A panic in either is returned as an error.
func (c *Controller[S]) sample(elapsed time.Duration) (finished bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("sample at %v panicked: %v", elapsed, r)
		}
	}()

	s, err := c.tf.Value(elapsed)
	if err != nil {
		return false, errors.Wrapf(err, "sample trajectory at %v", elapsed)
	}
	c.apply(c.target, s)
	return c.tf.Finished(elapsed), nil
}

// sleep waits d, returning false if the controller was stopped meanwhile. An
// overrun sample (d <= 0) continues immediately.
func (c *Controller[S]) sleep(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-c.stopCh:
			return false
		default:
			return true
		}
	}

	timer := c.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.stopCh:
		return false
	}
}

func (c *Controller[S]) finish(err error) {
	c.mu.Lock()
	if c.state != StateStopped {
		c.state = StateStopped
		c.stoppedAt = c.clock.Now()
	}
	if err != nil && c.err == nil {
		c.err = err
	}
	c.cond.Broadcast()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warnw("motion controller failed", "name", c.name, "error", err)
	} else {
		c.logger.Debugw("motion controller stopped", "name", c.name)
	}
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.doneOnce.Do(func() { close(c.done) })
}
