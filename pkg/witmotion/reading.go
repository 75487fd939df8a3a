// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package witmotion

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnknownType is returned by Decode for frame types outside the table
var ErrUnknownType = errors.New("unknown frame type")

// Vector is a three-axis measurement
type Vector struct {
	X, Y, Z float64
}

// Orientation holds Euler angles in degrees
type Orientation struct {
	Roll, Pitch, Yaw float64
}

// Reading is one decoded frame. Only the fields matching Type are set.
type Reading struct {
	Type FrameType

	// Acceleration (g), angular velocity (°/s) or magnetic field (µT)
	Vector Vector
	Angle  Orientation

	Pressure    float64
	Temperature float64

	Longitude float64
	Latitude  float64
	// Fix is false when the GPS payload was all zeros
	Fix bool
}

func int16At(p []byte, i int) float64 {
	return float64(int16(binary.LittleEndian.Uint16(p[i:])))
}

func scaled(p []byte, full float64) Vector {
	return Vector{
		X: int16At(p, 0) / 32768 * full,
		Y: int16At(p, 2) / 32768 * full,
		Z: int16At(p, 4) / 32768 * full,
	}
}

// Decode converts a frame into physical units
func Decode(f Frame) (Reading, error) {
	p := f.Payload[:]
	r := Reading{Type: f.Type}

	switch f.Type {
	case TYPE_ACCELERATION:
		r.Vector = scaled(p, ACCEL_RANGE_G)
	case TYPE_ANGULAR_VELOCITY:
		r.Vector = scaled(p, GYRO_RANGE_DPS)
	case TYPE_MAGNETIC:
		r.Vector = scaled(p, MAG_RANGE_UT)
	case TYPE_ANGLE:
		v := scaled(p, ANGLE_RANGE_DEG)
		r.Angle = Orientation{Roll: v.X, Pitch: v.Y, Yaw: v.Z}
	case TYPE_PRESSURE:
		r.Pressure = int16At(p, 0) / PRESSURE_DIVISOR
		r.Temperature = int16At(p, 2) / PRESSURE_DIVISOR
	case TYPE_GPS:
		lon := int32(binary.LittleEndian.Uint32(p[0:]))
		lat := int32(binary.LittleEndian.Uint32(p[4:]))
		r.Fix = lon != 0 || lat != 0
		r.Longitude = float64(lon) * GPS_SCALE
		r.Latitude = float64(lat) * GPS_SCALE
	default:
		return r, fmt.Errorf("%w: 0x%02X", ErrUnknownType, uint8(f.Type))
	}
	return r, nil
}
