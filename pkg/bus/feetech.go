package bus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/gwillem/dxlmotion/pkg/motor"
	"github.com/gwillem/dxlmotion/pkg/register"
)

// FeetechConfig holds configuration for a Feetech STS bus.
type FeetechConfig struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
	// Scales maps motor ids to their calibration. Motors without one use
	// register.STSScale.
	Scales map[int]register.Scale
	Logger *zap.SugaredLogger
}

// FeetechDriver drives Feetech STS servos. STS servos do not expose the
// protocol-1 EEPROM layout, so ReadConfig is unsupported and positions are
// converted with a calibration scale.
type FeetechDriver struct {
	bus    *feetech.Bus
	scales map[int]register.Scale
	logger *zap.SugaredLogger
}

// OpenFeetech opens the serial port in cfg.
func OpenFeetech(cfg FeetechConfig) (*FeetechDriver, error) {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 1_000_000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 100 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	b, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus %s: %w", cfg.Port, err)
	}

	cfg.Logger.Infow("opened feetech bus", "port", cfg.Port, "baud", cfg.BaudRate)
	return &FeetechDriver{
		bus:    b,
		scales: cfg.Scales,
		logger: cfg.Logger,
	}, nil
}

func (d *FeetechDriver) scale(id int) register.Scale {
	if s, ok := d.scales[id]; ok {
		return s
	}
	return register.STSScale
}

// Scan implements Driver.
func (d *FeetechDriver) Scan(ctx context.Context, minID, maxID int) ([]int, error) {
	found, err := d.bus.Scan(ctx, minID, maxID)
	if err != nil {
		return nil, classify(err)
	}

	ids := make([]int, 0, len(found))
	for _, s := range found {
		d.logger.Debugw("found servo", "id", s.ID, "model", s.Model)
		ids = append(ids, s.ID)
	}
	sort.Ints(ids)
	return ids, nil
}

// ReadConfig implements Driver.
func (d *FeetechDriver) ReadConfig(ctx context.Context, id int) ([]byte, error) {
	return nil, ErrUnsupported
}

// ReadTelemetry implements Driver. Only positions are read, using one sync
// read for all ids.
func (d *FeetechDriver) ReadTelemetry(ctx context.Context, ids []int) (map[int]motor.Telemetry, error) {
	group := feetech.NewServoGroupByIDs(d.bus, ids...)
	raw, err := group.Positions(ctx)
	if err != nil {
		return nil, classify(err)
	}

	out := make(map[int]motor.Telemetry, len(raw))
	for id, pos := range raw {
		out[id] = motor.PositionTelemetry(d.scale(id).ToDegrees(pos))
	}
	return out, nil
}

// Write implements Driver. Moving speed and torque limit are not exposed by
// the feetech package and are rejected.
func (d *FeetechDriver) Write(ctx context.Context, id int, w motor.Write) error {
	switch w.Field {
	case motor.Compliant:
		group := feetech.NewServoGroupByIDs(d.bus, id)
		if w.Bool() {
			return classify(group.DisableAll(ctx))
		}
		return classify(group.EnableAll(ctx))

	case motor.GoalPosition:
		raw, ok := d.scale(id).FromDegrees(w.Value)
		if !ok {
			return &WriteRejectedError{ID: id, Field: w.Field, Reason: fmt.Sprintf("%.1f° outside calibrated range", w.Value)}
		}
		group := feetech.NewServoGroupByIDs(d.bus, id)
		return classify(group.SetPositions(ctx, feetech.PositionMap{id: raw}))

	default:
		return &WriteRejectedError{ID: id, Field: w.Field, Reason: "not supported by feetech driver"}
	}
}

// Close implements Driver.
func (d *FeetechDriver) Close() error {
	return d.bus.Close()
}

// classify maps transport errors onto the bus sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}
}

// ListPorts returns the serial ports that may carry a servo bus.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}

	var out []string
	for _, p := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
