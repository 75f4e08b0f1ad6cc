package bus

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gwillem/dxlmotion/pkg/motor"
	"github.com/gwillem/dxlmotion/pkg/register"
)

// DefaultHz is the sync rate used when Config.Hz is not set.
const DefaultHz = 50

// Config holds configuration for a Sync.
type Config struct {
	Hz     float64 // bus passes per second
	Clock  clock.Clock
	Logger *zap.SugaredLogger
}

// Stats counts bus traffic since the Sync was created.
type Stats struct {
	Passes      int64
	Writes      int64
	WriteErrors int64
	ReadErrors  int64
}

// Sync keeps the motors of one bus in step with their devices.
type Sync struct {
	driver Driver
	period time.Duration
	clock  clock.Clock
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	motors []*motor.Motor
	closed bool

	passes      *atomic.Int64
	writes      *atomic.Int64
	writeErrors *atomic.Int64
	readErrors  *atomic.Int64
}

// NewSync creates a Sync over driver.
func NewSync(driver Driver, cfg Config) *Sync {
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	return &Sync{
		driver:      driver,
		period:      time.Duration(float64(time.Second) / cfg.Hz),
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		passes:      atomic.NewInt64(0),
		writes:      atomic.NewInt64(0),
		writeErrors: atomic.NewInt64(0),
		readErrors:  atomic.NewInt64(0),
	}
}

// Period returns the time between two passes of Run.
func (s *Sync) Period() time.Duration {
	return s.period
}

// Discover scans [minID, maxID], loads every motor found and adds it.
func (s *Sync) Discover(ctx context.Context, minID, maxID int) ([]*motor.Motor, error) {
	ids, err := s.driver.Scan(ctx, minID, maxID)
	if err != nil {
		return nil, errors.Wrapf(err, "scan ids %d-%d", minID, maxID)
	}
	s.logger.Infow("scanned bus", "found", ids)

	motors, err := s.Load(ctx, ids)
	if err != nil {
		return nil, err
	}
	s.Add(motors...)
	return motors, nil
}

// Load builds a motor for each id from its configuration block. A driver
// without config access yields unconfigured motors; a malformed block is an
// error.
func (s *Sync) Load(ctx context.Context, ids []int) ([]*motor.Motor, error) {
	motors := make([]*motor.Motor, 0, len(ids))
	for _, id := range ids {
		raw, err := s.driver.ReadConfig(ctx, id)
		if errors.Is(err, ErrUnsupported) {
			motors = append(motors, motor.New(id, nil))
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read config of motor %d", id)
		}

		block, err := register.Load(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "motor %d", id)
		}
		if block.ID != id {
			return nil, errors.Wrapf(register.ErrMalformedConfig, "motor %d reports id %d", id, block.ID)
		}
		s.logger.Debugw("loaded motor config", "id", id, "model", block.Model().Name)
		motors = append(motors, motor.New(id, block))
	}
	return motors, nil
}

// Add registers motors with the sync. A motor with an id already present
// replaces the old one.
func (s *Sync) Add(motors ...*motor.Motor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range motors {
		i := sort.Search(len(s.motors), func(i int) bool { return s.motors[i].ID() >= m.ID() })
		if i < len(s.motors) && s.motors[i].ID() == m.ID() {
			s.motors[i] = m
			continue
		}
		s.motors = append(s.motors, nil)
		copy(s.motors[i+1:], s.motors[i:])
		s.motors[i] = m
	}
}

// Motors returns the registered motors ordered by id.
func (s *Sync) Motors() []*motor.Motor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*motor.Motor(nil), s.motors...)
}

// Flush writes every pending field of m. Accepted writes are confirmed;
// failed ones stay pending for the next pass. The returned error combines
// every failure.
func (s *Sync) Flush(ctx context.Context, m *motor.Motor) error {
	var errs error
	for _, w := range m.Pending() {
		if err := s.driver.Write(ctx, w.ID, w); err != nil {
			s.writeErrors.Inc()
			errs = multierr.Append(errs, errors.Wrapf(err, "%v: write %v", m, w.Field))
			continue
		}
		s.writes.Inc()
		if !m.Confirm(w) {
			s.logger.Debugw("write superseded", "motor", m.ID(), "field", w.Field)
		}
	}
	return errs
}

// Refresh reads telemetry for every motor. Motors that did not answer keep
// their last known values.
func (s *Sync) Refresh(ctx context.Context) error {
	motors := s.Motors()
	if len(motors) == 0 {
		return nil
	}

	ids := make([]int, len(motors))
	for i, m := range motors {
		ids[i] = m.ID()
	}

	readings, err := s.driver.ReadTelemetry(ctx, ids)
	for _, m := range motors {
		if t, ok := readings[m.ID()]; ok {
			m.UpdateTelemetry(t)
		}
	}
	if err != nil {
		s.readErrors.Inc()
		return errors.Wrap(err, "read telemetry")
	}
	return nil
}

// Step runs one pass: flush motors waiting for reconfiguration, then the
// rest, then refresh telemetry.
func (s *Sync) Step(ctx context.Context) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	reconfigure, control := lo.FilterReject(s.Motors(), func(m *motor.Motor, _ int) bool {
		return m.NeedsUpdate()
	})

	var errs error
	for _, m := range reconfigure {
		s.logger.Infow("reconfiguring motor", "motor", m.ID())
		errs = multierr.Append(errs, s.Flush(ctx, m))
	}
	for _, m := range control {
		errs = multierr.Append(errs, s.Flush(ctx, m))
	}
	errs = multierr.Append(errs, s.Refresh(ctx))
	s.passes.Inc()
	return errs
}

// Run steps at the configured rate until ctx is done. Bus failures are logged
// and retried on the next pass.
func (s *Sync) Run(ctx context.Context) error {
	s.logger.Infow("bus sync started", "period", s.period, "motors", len(s.Motors()))

	ticker := s.clock.Ticker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("bus sync stopped", "passes", s.passes.Load())
			return ctx.Err()
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}
				s.logger.Warnw("bus pass failed", "error", err)
			}
		}
	}
}

// Stats returns a snapshot of the traffic counters.
func (s *Sync) Stats() Stats {
	return Stats{
		Passes:      s.passes.Load(),
		Writes:      s.writes.Load(),
		WriteErrors: s.writeErrors.Load(),
		ReadErrors:  s.readErrors.Load(),
	}
}

// Close closes the driver. Further passes fail with ErrClosed.
func (s *Sync) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.driver.Close()
}
