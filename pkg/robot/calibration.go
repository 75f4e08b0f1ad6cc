package robot

import (
	"sort"

	"github.com/gwillem/dxlmotion/pkg/register"
)

// MotorCalibration maps the raw encoder of one motor to degrees.
type MotorCalibration struct {
	ID       int `json:"id"`
	Center   int `json:"center,omitempty"` // raw position of 0°; midpoint of the range when unset
	RangeMin int `json:"range_min"`
	RangeMax int `json:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// Scale returns the raw/degree mapping of the motor.
func (c MotorCalibration) Scale() register.Scale {
	s := register.STSScale
	s.Min, s.Max = c.RangeMin, c.RangeMax
	switch {
	case c.Center != 0:
		s.Center = c.Center
	case c.RangeMax > c.RangeMin:
		s.Center = (c.RangeMin + c.RangeMax) / 2
	}
	return s
}

// Normalize converts a position in degrees to a value in the range
// [-100, 100] across the calibrated range.
func (c MotorCalibration) Normalize(deg float64) float64 {
	s := c.Scale()
	lo, hi := s.ToDegrees(c.RangeMin), s.ToDegrees(c.RangeMax)
	if hi == lo {
		return 0
	}
	return (deg-lo)/(hi-lo)*200 - 100
}

// Denormalize converts a normalized value [-100, 100] to degrees.
func (c MotorCalibration) Denormalize(norm float64) float64 {
	s := c.Scale()
	lo, hi := s.ToDegrees(c.RangeMin), s.ToDegrees(c.RangeMax)
	return (norm+100)/200*(hi-lo) + lo
}

// Names returns the motor names ordered by servo ID.
func (c Calibration) Names() []MotorName {
	names := make([]MotorName, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return c[names[i]].ID < c[names[j]].ID
	})
	return names
}

// MotorIDs returns the servo IDs for all motors in ascending order.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	for _, name := range c.Names() {
		ids = append(ids, c[name].ID)
	}
	return ids
}

// ByID returns motor name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}

// Scales returns the scale of every motor keyed by servo ID.
func (c Calibration) Scales() map[int]register.Scale {
	scales := make(map[int]register.Scale, len(c))
	for _, mc := range c {
		scales[mc.ID] = mc.Scale()
	}
	return scales
}
