// Package register decodes and encodes a servo's EEPROM configuration block.
//
// The layout is the protocol 1.0 control table shared by the AX, RX and MX
// families: a 19 byte area starting at address 0, words stored little-endian.
package register

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Control table addresses of the EEPROM area.
const (
	AddrModelNumber       = 0
	AddrFirmware          = 2
	AddrID                = 3
	AddrBaudRate          = 4
	AddrReturnDelay       = 5
	AddrCWAngleLimit      = 6
	AddrCCWAngleLimit     = 8
	AddrMaxTemperature    = 11
	AddrMinVoltage        = 12
	AddrMaxVoltage        = 13
	AddrMaxTorque         = 14
	AddrStatusReturnLevel = 16
	AddrAlarmLED          = 17
	AddrAlarmShutdown     = 18

	// EEPROMSize is the number of bytes Load expects.
	EEPROMSize = 19
)

// MaxID is the highest addressable servo id (254 is broadcast).
const MaxID = 253

// Block is the decoded configuration of one servo. It reflects the device's
// non-volatile settings at the time it was read.
type Block struct {
	ID                int
	ModelNumber       int
	Firmware          int
	BaudRate          int           // bits per second
	ReturnDelay       time.Duration // delay before the status packet
	CWAngleLimit      float64       // degrees
	CCWAngleLimit     float64       // degrees
	MaxTemperature    int           // °C
	MinVoltage        float64       // V
	MaxVoltage        float64       // V
	MaxTorque         float64       // percent of the stall torque
	StatusReturnLevel int
	AlarmLED          byte
	AlarmShutdown     byte
}

// Load decodes a raw EEPROM dump. Extra trailing bytes (the RAM area) are ignored.
func Load(raw []byte) (*Block, error) {
	if len(raw) < EEPROMSize {
		return nil, errors.Wrapf(ErrMalformedConfig, "got %d bytes, need %d", len(raw), EEPROMSize)
	}

	number := int(binary.LittleEndian.Uint16(raw[AddrModelNumber:]))
	model, ok := Model(number)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedConfig, "unknown model number %d", number)
	}

	id := int(raw[AddrID])
	if id > MaxID {
		return nil, errors.Wrapf(ErrMalformedConfig, "invalid id %d", id)
	}

	cw := int(binary.LittleEndian.Uint16(raw[AddrCWAngleLimit:]))
	ccw := int(binary.LittleEndian.Uint16(raw[AddrCCWAngleLimit:]))
	if cw >= model.Steps || ccw >= model.Steps {
		return nil, errors.Wrapf(ErrMalformedConfig, "angle limits %d/%d exceed %d steps", cw, ccw, model.Steps)
	}

	torque := int(binary.LittleEndian.Uint16(raw[AddrMaxTorque:]))
	if torque > maxTorqueRaw {
		return nil, errors.Wrapf(ErrMalformedConfig, "max torque %d out of range", torque)
	}

	level := int(raw[AddrStatusReturnLevel])
	if level > 2 {
		return nil, errors.Wrapf(ErrMalformedConfig, "status return level %d out of range", level)
	}

	minV, maxV := raw[AddrMinVoltage], raw[AddrMaxVoltage]
	if minV > maxV {
		return nil, errors.Wrapf(ErrMalformedConfig, "voltage limits inverted (%d > %d)", minV, maxV)
	}

	return &Block{
		ID:                id,
		ModelNumber:       number,
		Firmware:          int(raw[AddrFirmware]),
		BaudRate:          RawToBaudRate(raw[AddrBaudRate]),
		ReturnDelay:       RawToReturnDelay(raw[AddrReturnDelay]),
		CWAngleLimit:      model.PositionToDegrees(cw),
		CCWAngleLimit:     model.PositionToDegrees(ccw),
		MaxTemperature:    int(raw[AddrMaxTemperature]),
		MinVoltage:        RawToVoltage(minV),
		MaxVoltage:        RawToVoltage(maxV),
		MaxTorque:         RawToTorque(torque),
		StatusReturnLevel: level,
		AlarmLED:          raw[AddrAlarmLED],
		AlarmShutdown:     raw[AddrAlarmShutdown],
	}, nil
}

// Encode is the inverse of Load.
func (b *Block) Encode() []byte {
	raw := make([]byte, EEPROMSize)
	model, _ := Model(b.ModelNumber)

	binary.LittleEndian.PutUint16(raw[AddrModelNumber:], uint16(b.ModelNumber))
	raw[AddrFirmware] = byte(b.Firmware)
	raw[AddrID] = byte(b.ID)
	raw[AddrBaudRate] = BaudRateToRaw(b.BaudRate)
	raw[AddrReturnDelay] = ReturnDelayToRaw(b.ReturnDelay)
	binary.LittleEndian.PutUint16(raw[AddrCWAngleLimit:], uint16(model.clampSteps(model.DegreesToPosition(b.CWAngleLimit))))
	binary.LittleEndian.PutUint16(raw[AddrCCWAngleLimit:], uint16(model.clampSteps(model.DegreesToPosition(b.CCWAngleLimit))))
	raw[AddrMaxTemperature] = byte(b.MaxTemperature)
	raw[AddrMinVoltage] = VoltageToRaw(b.MinVoltage)
	raw[AddrMaxVoltage] = VoltageToRaw(b.MaxVoltage)
	binary.LittleEndian.PutUint16(raw[AddrMaxTorque:], uint16(TorqueToRaw(b.MaxTorque)))
	raw[AddrStatusReturnLevel] = byte(b.StatusReturnLevel)
	raw[AddrAlarmLED] = b.AlarmLED
	raw[AddrAlarmShutdown] = b.AlarmShutdown

	return raw
}

// Model returns the model description of the block.
func (b *Block) Model() ModelInfo {
	m, ok := Model(b.ModelNumber)
	if !ok {
		return ModelInfo{Number: b.ModelNumber, Name: "unknown"}
	}
	return m
}

// Default returns the factory configuration of a model with the given id.
func Default(id, modelNumber int) (*Block, error) {
	model, ok := Model(modelNumber)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedConfig, "unknown model number %d", modelNumber)
	}
	return &Block{
		ID:                id,
		ModelNumber:       modelNumber,
		Firmware:          24,
		BaudRate:          RawToBaudRate(1),
		ReturnDelay:       RawToReturnDelay(250),
		CWAngleLimit:      model.PositionToDegrees(0),
		CCWAngleLimit:     model.PositionToDegrees(model.Steps - 1),
		MaxTemperature:    70,
		MinVoltage:        6.0,
		MaxVoltage:        14.0,
		MaxTorque:         100.0,
		StatusReturnLevel: 2,
		AlarmLED:          0x24,
		AlarmShutdown:     0x24,
	}, nil
}
