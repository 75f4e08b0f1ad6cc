package robot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gwillem/dxlmotion/pkg/bus"
	"github.com/gwillem/dxlmotion/pkg/motor"
	"github.com/gwillem/dxlmotion/pkg/mset"
)

// Robot is an open session with the named motors of a configuration.
type Robot struct {
	cfg    *Config
	sync   *bus.Sync
	motors map[MotorName]*motor.Motor
	names  []MotorName
	set    *mset.MotorSet
	logger *zap.SugaredLogger
}

// Open connects to the bus described by cfg.
func Open(ctx context.Context, cfg *Config, logger *zap.SugaredLogger) (*Robot, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var d bus.Driver
	switch cfg.Driver {
	case DriverFake:
		fake := bus.NewFakeDriver()
		model := cfg.FakeModel
		if model == 0 {
			model = 12
		}
		for _, id := range cfg.Motors.MotorIDs() {
			if err := fake.AddMotor(id, model); err != nil {
				return nil, fmt.Errorf("fake motor %d: %w", id, err)
			}
		}
		d = fake
	default:
		feetech, err := bus.OpenFeetech(bus.FeetechConfig{
			Port:     cfg.Port,
			BaudRate: cfg.BaudRate,
			Timeout:  cfg.Timeout(),
			Scales:   cfg.Motors.Scales(),
			Logger:   logger.Named("feetech"),
		})
		if err != nil {
			return nil, err
		}
		d = feetech
	}

	return OpenWithDriver(ctx, d, cfg, logger)
}

// OpenWithDriver starts a session on an already open driver. The driver is
// closed if the session cannot be set up.
func OpenWithDriver(ctx context.Context, d bus.Driver, cfg *Config, logger *zap.SugaredLogger) (*Robot, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := bus.NewSync(d, bus.Config{Hz: cfg.SyncHz, Logger: logger.Named("bus")})
	loaded, err := s.Load(ctx, cfg.Motors.MotorIDs())
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("load motors: %w", err)
	}
	s.Add(loaded...)

	r := &Robot{
		cfg:    cfg,
		sync:   s,
		motors: make(map[MotorName]*motor.Motor, len(loaded)),
		names:  cfg.Motors.Names(),
		logger: logger,
	}
	for _, m := range loaded {
		name, _, _ := cfg.Motors.ByID(m.ID())
		r.motors[name] = m
	}
	r.set = mset.New(r.Motors()...)

	if err := s.Refresh(ctx); err != nil {
		logger.Warnw("initial telemetry read failed", "error", err)
	}
	logger.Infow("robot ready", "motors", len(loaded), "driver", cfg.Driver)
	return r, nil
}

// Close closes the bus connection.
func (r *Robot) Close() error {
	return r.sync.Close()
}

// Config returns the configuration the robot was opened with.
func (r *Robot) Config() *Config {
	return r.cfg
}

// Motor returns the motor with the given name.
func (r *Robot) Motor(name MotorName) (*motor.Motor, bool) {
	m, ok := r.motors[name]
	return m, ok
}

// Names returns the motor names ordered by servo ID.
func (r *Robot) Names() []MotorName {
	return append([]MotorName(nil), r.names...)
}

// Motors returns the motors ordered by servo ID.
func (r *Robot) Motors() []*motor.Motor {
	motors := make([]*motor.Motor, 0, len(r.names))
	for _, name := range r.names {
		motors = append(motors, r.motors[name])
	}
	return motors
}

// Set returns all motors as one attribute set.
func (r *Robot) Set() *mset.MotorSet {
	return r.set
}

// Sync returns the bus sync of the robot.
func (r *Robot) Sync() *bus.Sync {
	return r.sync
}

// Run keeps the motors and the bus in step until ctx is done.
func (r *Robot) Run(ctx context.Context) error {
	return r.sync.Run(ctx)
}

// SetCompliant requests torque off (true) or on (false) for every motor.
func (r *Robot) SetCompliant(compliant bool) {
	for _, m := range r.motors {
		m.SetCompliant(compliant)
	}
}

// Positions returns the last read position of every motor, in degrees.
// Motors that were never read are left out.
func (r *Robot) Positions() map[MotorName]float64 {
	positions := make(map[MotorName]float64, len(r.motors))
	for name, m := range r.motors {
		if p, ok := m.CurrentPosition(); ok {
			positions[name] = p
		}
	}
	return positions
}

// SetGoals sets goal positions in degrees. Unknown names are ignored.
func (r *Robot) SetGoals(goals map[MotorName]float64) {
	for name, deg := range goals {
		if m, ok := r.motors[name]; ok {
			m.SetGoalPosition(deg)
		}
	}
}
