package register

import "math"

// Scale maps raw encoder steps to degrees for drivers that cannot read the
// EEPROM block and must rely on a calibration instead.
type Scale struct {
	Center      int // raw position of 0°
	StepsPerRev int
	Min, Max    int // accepted raw range; both zero means unbounded
}

// STSScale is the factory mapping of Feetech STS servos.
var STSScale = Scale{Center: 2048, StepsPerRev: 4096, Min: 0, Max: 4095}

// ToDegrees converts a raw position.
func (s Scale) ToDegrees(raw int) float64 {
	return float64(raw-s.Center) * 360 / float64(s.steps())
}

// FromDegrees converts degrees to a raw position. ok is false when the result
// falls outside [Min, Max].
func (s Scale) FromDegrees(deg float64) (raw int, ok bool) {
	raw = s.Center + int(math.Round(deg*float64(s.steps())/360))
	if s.Min == 0 && s.Max == 0 {
		return raw, true
	}
	return raw, raw >= s.Min && raw <= s.Max
}

func (s Scale) steps() int {
	if s.StepsPerRev <= 0 {
		return STSScale.StepsPerRev
	}
	return s.StepsPerRev
}
