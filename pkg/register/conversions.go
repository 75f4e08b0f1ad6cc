package register

import (
	"math"
	"time"
)

const maxTorqueRaw = 1023

// Baud rates above raw 249 are fixed values on MX firmware.
var highBaudRates = map[byte]int{
	250: 2_250_000,
	251: 2_500_000,
	252: 3_000_000,
}

// RawToBaudRate converts the baud rate register to bits per second.
func RawToBaudRate(raw byte) int {
	if bps, ok := highBaudRates[raw]; ok {
		return bps
	}
	return 2_000_000 / (int(raw) + 1)
}

// BaudRateToRaw converts bits per second to the closest register value.
func BaudRateToRaw(bps int) byte {
	for raw, rate := range highBaudRates {
		if rate == bps {
			return raw
		}
	}
	if bps <= 0 {
		return 0
	}
	raw := math.Round(2_000_000/float64(bps)) - 1
	return byte(math.Max(0, math.Min(249, raw)))
}

// RawToReturnDelay converts the return delay register (2µs units).
func RawToReturnDelay(raw byte) time.Duration {
	return time.Duration(raw) * 2 * time.Microsecond
}

// ReturnDelayToRaw is the inverse of RawToReturnDelay.
func ReturnDelayToRaw(d time.Duration) byte {
	raw := d / (2 * time.Microsecond)
	if raw > 255 {
		raw = 255
	}
	return byte(raw)
}

// RawToVoltage converts a voltage limit register (0.1V units).
func RawToVoltage(raw byte) float64 {
	return float64(raw) / 10
}

// VoltageToRaw is the inverse of RawToVoltage.
func VoltageToRaw(v float64) byte {
	return byte(math.Max(0, math.Min(255, math.Round(v*10))))
}

// RawToTorque converts a torque register to percent of the maximum.
func RawToTorque(raw int) float64 {
	return float64(raw) * 100 / maxTorqueRaw
}

// TorqueToRaw is the inverse of RawToTorque.
func TorqueToRaw(percent float64) int {
	return int(math.Max(0, math.Min(maxTorqueRaw, math.Round(percent*maxTorqueRaw/100))))
}
