package mset

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/gwillem/dxlmotion/pkg/motor"
	"github.com/gwillem/dxlmotion/pkg/register"
)

type attribute struct {
	get func(s *MotorSet, i int, m *motor.Motor) any
	// set is nil for read-only attributes. v has already been converted.
	set     func(s *MotorSet, i int, m *motor.Motor, v any)
	convert func(v any) (any, error)
	// check, when set, must pass for every motor before any is written.
	check func(m *motor.Motor) error
}

var registry = map[string]attribute{
	"id": {
		get: func(_ *MotorSet, _ int, m *motor.Motor) any { return m.ID() },
	},
	"model": {
		get: func(_ *MotorSet, _ int, m *motor.Motor) any {
			name, err := m.Model()
			if err != nil {
				return nil
			}
			return name
		},
	},
	"position": {
		get:     reading((*motor.Motor).Position),
		set:     setFloat((*motor.Motor).SetPosition),
		convert: toFloat,
	},
	"speed": {
		get:     reading((*motor.Motor).Speed),
		set:     setFloat((*motor.Motor).SetSpeed),
		convert: toFloat,
	},
	"load": {
		get: reading((*motor.Motor).CurrentLoad),
	},
	"current_position": {
		get: reading((*motor.Motor).CurrentPosition),
	},
	"current_speed": {
		get: reading((*motor.Motor).CurrentSpeed),
	},
	"current_load": {
		get: reading((*motor.Motor).CurrentLoad),
	},
	"goal_position": {
		get:     reading((*motor.Motor).GoalPosition),
		set:     setFloat((*motor.Motor).SetGoalPosition),
		convert: toFloat,
	},
	"moving_speed": {
		get:     reading((*motor.Motor).MovingSpeed),
		set:     setFloat((*motor.Motor).SetMovingSpeed),
		convert: toFloat,
	},
	"torque_limit": {
		get:     func(_ *MotorSet, _ int, m *motor.Motor) any { return m.TorqueLimit() },
		set:     setFloat((*motor.Motor).SetTorqueLimit),
		convert: toFloat,
	},
	"compliant": {
		get: func(_ *MotorSet, _ int, m *motor.Motor) any {
			c, ok := m.Compliant()
			if !ok {
				return nil
			}
			return c
		},
		set: func(_ *MotorSet, _ int, m *motor.Motor, v any) {
			m.SetCompliant(v.(bool))
		},
		convert: func(v any) (any, error) { return cast.ToBoolE(v) },
	},
	"position_bytes": {
		get:     steps((*motor.Motor).Position),
		set:     setSteps((*motor.Motor).SetPosition),
		convert: toInt,
		check:   configured,
	},
	"goal_position_bytes": {
		get:     steps((*motor.Motor).GoalPosition),
		set:     setSteps((*motor.Motor).SetGoalPosition),
		convert: toInt,
		check:   configured,
	},
	"pose": {
		get: func(s *MotorSet, i int, m *motor.Motor) any {
			p, ok := m.CurrentPosition()
			if !ok {
				return nil
			}
			return p - s.zeroAt(i)
		},
		set: func(s *MotorSet, i int, m *motor.Motor, v any) {
			m.SetGoalPosition(s.zeroAt(i) + v.(float64))
		},
		convert: toFloat,
	},
}

func reading(fn func(*motor.Motor) (float64, bool)) func(*MotorSet, int, *motor.Motor) any {
	return func(_ *MotorSet, _ int, m *motor.Motor) any {
		v, ok := fn(m)
		if !ok {
			return nil
		}
		return v
	}
}

func setFloat(fn func(*motor.Motor, float64)) func(*MotorSet, int, *motor.Motor, any) {
	return func(_ *MotorSet, _ int, m *motor.Motor, v any) {
		fn(m, v.(float64))
	}
}

func toFloat(v any) (any, error) {
	return cast.ToFloat64E(v)
}

func toInt(v any) (any, error) {
	return cast.ToIntE(v)
}

// model returns the encoder description of a configured motor.
func model(m *motor.Motor) (register.ModelInfo, error) {
	block, err := m.Config()
	if err != nil {
		return register.ModelInfo{}, err
	}
	info := block.Model()
	if info.Steps == 0 {
		return register.ModelInfo{}, errors.Wrapf(ErrInvalidValue, "no encoder resolution for model %d", info.Number)
	}
	return info, nil
}

func configured(m *motor.Motor) error {
	_, err := model(m)
	return err
}

// steps reads a position in raw encoder steps. nil when the motor has no
// configuration or the value is unknown.
func steps(fn func(*motor.Motor) (float64, bool)) func(*MotorSet, int, *motor.Motor) any {
	return func(_ *MotorSet, _ int, m *motor.Motor) any {
		info, err := model(m)
		if err != nil {
			return nil
		}
		deg, ok := fn(m)
		if !ok {
			return nil
		}
		return info.DegreesToPosition(deg)
	}
}

func setSteps(fn func(*motor.Motor, float64)) func(*MotorSet, int, *motor.Motor, any) {
	return func(_ *MotorSet, _ int, m *motor.Motor, v any) {
		info, _ := model(m)
		fn(m, info.PositionToDegrees(v.(int)))
	}
}
