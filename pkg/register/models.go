package register

import "math"

// ModelInfo describes the position encoder of a servo model.
type ModelInfo struct {
	Number int
	Name   string
	Steps  int     // encoder steps over Span
	Span   float64 // degrees covered by Steps
}

var models = map[int]ModelInfo{
	12:  {Number: 12, Name: "AX-12", Steps: 1024, Span: 300},
	18:  {Number: 18, Name: "AX-18", Steps: 1024, Span: 300},
	300: {Number: 300, Name: "AX-12W", Steps: 1024, Span: 300},
	24:  {Number: 24, Name: "RX-24F", Steps: 1024, Span: 300},
	28:  {Number: 28, Name: "RX-28", Steps: 1024, Span: 300},
	64:  {Number: 64, Name: "RX-64", Steps: 1024, Span: 300},
	29:  {Number: 29, Name: "MX-28", Steps: 4096, Span: 360},
	310: {Number: 310, Name: "MX-64", Steps: 4096, Span: 360},
	320: {Number: 320, Name: "MX-106", Steps: 4096, Span: 360},
}

// Model looks up a model by its control table number.
func Model(number int) (ModelInfo, bool) {
	m, ok := models[number]
	return m, ok
}

// ModelByName looks up a model by name, e.g. "AX-12".
func ModelByName(name string) (ModelInfo, bool) {
	for _, m := range models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// PositionToDegrees converts encoder steps to degrees, centered on zero.
func (m ModelInfo) PositionToDegrees(pos int) float64 {
	return float64(pos)*m.Span/float64(m.Steps) - m.Span/2
}

// DegreesToPosition converts degrees (centered on zero) to encoder steps.
// The result is not clamped.
func (m ModelInfo) DegreesToPosition(deg float64) int {
	return int(math.Round((deg + m.Span/2) * float64(m.Steps) / m.Span))
}

func (m ModelInfo) clampSteps(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > m.Steps-1 {
		return m.Steps - 1
	}
	return pos
}
