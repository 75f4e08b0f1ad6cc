// Package mset exposes a flat attribute surface over a group of motors.
//
// Attributes are registered once in a fixed table. Get returns one value per
// motor in motor order; Set broadcasts a scalar or applies a sequence
// positionally.
package mset

import (
	"reflect"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/gwillem/dxlmotion/pkg/motor"
)

// MotorSet is an ordered group of motors. It is safe for concurrent use.
type MotorSet struct {
	motors []*motor.Motor

	mu   sync.RWMutex
	zero []float64
}

// New creates a set over motors, in the order given.
func New(motors ...*motor.Motor) *MotorSet {
	return &MotorSet{
		motors: append([]*motor.Motor(nil), motors...),
		zero:   make([]float64, len(motors)),
	}
}

// Motors returns the motors in set order.
func (s *MotorSet) Motors() []*motor.Motor {
	return append([]*motor.Motor(nil), s.motors...)
}

// Len returns the number of motors.
func (s *MotorSet) Len() int {
	return len(s.motors)
}

// Attributes returns the registered attribute names, sorted.
func Attributes() []string {
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}

// Get reads attribute name from every motor. Unknown readings are nil.
func (s *MotorSet) Get(name string) ([]any, error) {
	attr, ok := registry[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownAttribute, name)
	}
	return lo.Map(s.motors, func(m *motor.Motor, i int) any {
		return attr.get(s, i, m)
	}), nil
}

// Set writes attribute name on every motor. v is either a scalar applied to
// all motors or a slice with exactly one value per motor. Every value is
// converted and checked before any motor is touched, so a bad value changes
// nothing. nil is never a valid value.
func (s *MotorSet) Set(name string, v any) error {
	attr, ok := registry[name]
	if !ok {
		return errors.Wrap(ErrUnknownAttribute, name)
	}
	if attr.set == nil {
		return errors.Wrap(ErrReadOnly, name)
	}

	values, err := s.spread(v)
	if err != nil {
		return errors.Wrap(err, name)
	}
	converted := make([]any, len(values))
	for i, raw := range values {
		if raw == nil {
			return errors.Wrapf(ErrInvalidValue, "%s[%d]: nil", name, i)
		}
		c, err := attr.convert(raw)
		if err != nil {
			return errors.Wrapf(ErrInvalidValue, "%s[%d]: %v", name, i, err)
		}
		converted[i] = c
	}
	if attr.check != nil {
		for _, m := range s.motors {
			if err := attr.check(m); err != nil {
				return errors.Wrapf(err, "%s: %v", name, m)
			}
		}
	}

	for i, m := range s.motors {
		attr.set(s, i, m, converted[i])
	}
	return nil
}

// SetZeroPose sets the reference the pose attribute is relative to. v follows
// the same rules as Set.
func (s *MotorSet) SetZeroPose(v any) error {
	values, err := s.spread(v)
	if err != nil {
		return errors.Wrap(err, "zero pose")
	}
	zero := make([]float64, len(values))
	for i, raw := range values {
		if raw == nil {
			return errors.Wrapf(ErrInvalidValue, "zero pose[%d]: nil", i)
		}
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return errors.Wrapf(ErrInvalidValue, "zero pose[%d]: %v", i, err)
		}
		zero[i] = f
	}

	s.mu.Lock()
	s.zero = zero
	s.mu.Unlock()
	return nil
}

// ZeroPose returns the pose reference, one value per motor.
func (s *MotorSet) ZeroPose() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.zero...)
}

// Positions returns the current positions in degrees. ok is false when any
// motor has not been read yet.
func (s *MotorSet) Positions() (positions []float64, ok bool) {
	positions = make([]float64, len(s.motors))
	ok = true
	for i, m := range s.motors {
		p, known := m.CurrentPosition()
		positions[i] = p
		ok = ok && known
	}
	return positions, ok
}

// SetGoalPositions sets one goal position per motor.
func (s *MotorSet) SetGoalPositions(deg []float64) error {
	if len(deg) != len(s.motors) {
		return errors.Wrapf(ErrSizeMismatch, "got %d positions for %d motors", len(deg), len(s.motors))
	}
	for i, m := range s.motors {
		m.SetGoalPosition(deg[i])
	}
	return nil
}

func (s *MotorSet) zeroAt(i int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zero[i]
}

// spread turns v into one value per motor.
func (s *MotorSet) spread(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return lo.Times(len(s.motors), func(int) any { return v }), nil
	}
	if rv.Len() != len(s.motors) {
		return nil, errors.Wrapf(ErrSizeMismatch, "got %d values for %d motors", rv.Len(), len(s.motors))
	}
	return lo.Times(rv.Len(), func(i int) any { return rv.Index(i).Interface() }), nil
}
