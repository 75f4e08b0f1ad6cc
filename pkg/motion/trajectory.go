package motion

import (
	"math"
	"time"
)

// Value is one sampled component. The zero value is NoChange.
type Value struct {
	v   float64
	set bool
}

// NoChange leaves the corresponding motor field untouched.
var NoChange = Value{}

// Set returns a Value carrying v.
func Set(v float64) Value {
	return Value{v: v, set: true}
}

// Get returns the value and whether it is set.
func (v Value) Get() (float64, bool) {
	return v.v, v.set
}

// Triple is a sample of goal position, maximum speed and torque limit.
type Triple struct {
	Position Value
	Speed    Value
	Torque   Value
}

// Trajectory is a function of elapsed time. Implementations must be pure in
// elapsed: the same input returns the same output, and once Finished returns
// true it stays true for every later elapsed time.
type Trajectory[S any] interface {
	Value(elapsed time.Duration) (S, error)
	Finished(elapsed time.Duration) bool
}

// Func adapts a plain function. A zero Duration never finishes.
type Func[S any] struct {
	Fn       func(elapsed time.Duration) S
	Duration time.Duration
}

func (f Func[S]) Value(elapsed time.Duration) (S, error) {
	return f.Fn(elapsed), nil
}

func (f Func[S]) Finished(elapsed time.Duration) bool {
	return f.Duration > 0 && elapsed >= f.Duration
}

// Constant holds one value for Duration.
type Constant struct {
	V        float64
	Duration time.Duration
}

func (c Constant) Value(time.Duration) (Value, error) {
	return Set(c.V), nil
}

func (c Constant) Finished(elapsed time.Duration) bool {
	return elapsed >= c.Duration
}

// Linear ramps from From to To over Duration.
type Linear struct {
	From, To float64
	Duration time.Duration
}

func (l Linear) Value(elapsed time.Duration) (Value, error) {
	return Set(l.From + (l.To-l.From)*progress(elapsed, l.Duration)), nil
}

func (l Linear) Finished(elapsed time.Duration) bool {
	return elapsed >= l.Duration
}

// MinimumJerk is the smooth point-to-point profile
// x(τ) = From + (To-From)(10τ³ - 15τ⁴ + 6τ⁵), with zero velocity and
// acceleration at both ends.
type MinimumJerk struct {
	From, To float64
	Duration time.Duration
}

func (j MinimumJerk) Value(elapsed time.Duration) (Value, error) {
	tau := progress(elapsed, j.Duration)
	s := tau * tau * tau * (10 - 15*tau + 6*tau*tau)
	return Set(j.From + (j.To-j.From)*s), nil
}

func (j MinimumJerk) Finished(elapsed time.Duration) bool {
	return elapsed >= j.Duration
}

// Sine oscillates around Offset. A zero Duration never finishes.
type Sine struct {
	Amplitude float64
	Period    time.Duration
	Offset    float64
	Duration  time.Duration
}

func (s Sine) Value(elapsed time.Duration) (Value, error) {
	if s.Period <= 0 {
		return Set(s.Offset), nil
	}
	phase := 2 * math.Pi * elapsed.Seconds() / s.Period.Seconds()
	return Set(s.Offset + s.Amplitude*math.Sin(phase)), nil
}

func (s Sine) Finished(elapsed time.Duration) bool {
	return s.Duration > 0 && elapsed >= s.Duration
}

// progress returns elapsed/d clamped to [0, 1]; a non-positive d is complete.
func progress(elapsed, d time.Duration) float64 {
	if d <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, float64(elapsed)/float64(d)))
}

type combined struct {
	position, speed, torque Trajectory[Value]
}

// Combine builds a triple trajectory from independent components. A nil
// component always yields NoChange. The result finishes when every non-nil
// component has finished.
func Combine(position, speed, torque Trajectory[Value]) Trajectory[Triple] {
	return combined{position: position, speed: speed, torque: torque}
}

func (c combined) Value(elapsed time.Duration) (Triple, error) {
	var out Triple
	for _, part := range []struct {
		tf  Trajectory[Value]
		dst *Value
	}{
		{c.position, &out.Position},
		{c.speed, &out.Speed},
		{c.torque, &out.Torque},
	} {
		if part.tf == nil {
			continue
		}
		v, err := part.tf.Value(elapsed)
		if err != nil {
			return Triple{}, err
		}
		*part.dst = v
	}
	return out, nil
}

func (c combined) Finished(elapsed time.Duration) bool {
	for _, tf := range []Trajectory[Value]{c.position, c.speed, c.torque} {
		if tf != nil && !tf.Finished(elapsed) {
			return false
		}
	}
	return true
}
