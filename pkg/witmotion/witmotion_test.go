// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package witmotion

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"gotest.tools/v3/assert"
)

func int16Payload(vals ...int16) [PAYLOAD_SIZE]byte {
	var p [PAYLOAD_SIZE]byte
	for i, v := range vals {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(v))
	}
	return p
}

func gpsPayload(lon, lat int32) [PAYLOAD_SIZE]byte {
	var p [PAYLOAD_SIZE]byte
	binary.LittleEndian.PutUint32(p[0:], uint32(lon))
	binary.LittleEndian.PutUint32(p[4:], uint32(lat))
	return p
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFrame_BytesAndParse(t *testing.T) {
	f := Frame{Type: TYPE_ANGLE, Payload: int16Payload(100, -200, 300, 0)}
	raw := f.Bytes()

	assert.Equal(t, len(raw), FRAME_SIZE)
	assert.Equal(t, raw[0], byte(FRAME_HEADER))
	assert.Equal(t, raw[10], Checksum(raw[:10]))

	parsed, err := ParseFrame(raw)
	assert.NilError(t, err)
	assert.Equal(t, parsed, f)

	raw[10]++
	_, err = ParseFrame(raw)
	assert.ErrorContains(t, err, "checksum mismatch")

	raw = f.Bytes()
	raw[0] = 0xAA
	_, err = ParseFrame(raw)
	assert.ErrorContains(t, err, "bad header")
}

func TestDecode_KnownTypes(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		check func(t *testing.T, r Reading)
	}{
		{
			"acceleration",
			Frame{Type: TYPE_ACCELERATION, Payload: int16Payload(16384, -8192, 0)},
			func(t *testing.T, r Reading) {
				assert.Equal(t, r.Vector, Vector{X: 8, Y: -4, Z: 0})
			},
		},
		{
			"angular velocity",
			Frame{Type: TYPE_ANGULAR_VELOCITY, Payload: int16Payload(16384, -16384, 8192)},
			func(t *testing.T, r Reading) {
				assert.Equal(t, r.Vector, Vector{X: 1000, Y: -1000, Z: 500})
			},
		},
		{
			"angle",
			Frame{Type: TYPE_ANGLE, Payload: int16Payload(16384, -16384, 8192)},
			func(t *testing.T, r Reading) {
				assert.Equal(t, r.Angle, Orientation{Roll: 90, Pitch: -90, Yaw: 45})
			},
		},
		{
			"magnetic",
			Frame{Type: TYPE_MAGNETIC, Payload: int16Payload(16384, 0, -32768)},
			func(t *testing.T, r Reading) {
				assert.Equal(t, r.Vector, Vector{X: 500, Y: 0, Z: -1000})
			},
		},
		{
			"pressure and temperature",
			Frame{Type: TYPE_PRESSURE, Payload: int16Payload(10132, -512)},
			func(t *testing.T, r Reading) {
				assert.Equal(t, r.Pressure, 101.32)
				assert.Equal(t, r.Temperature, -5.12)
			},
		},
		{
			"gps",
			Frame{Type: TYPE_GPS, Payload: gpsPayload(772090000, 285000000)},
			func(t *testing.T, r Reading) {
				assert.Assert(t, r.Fix)
				assert.Assert(t, near(r.Longitude, 77.209))
				assert.Assert(t, near(r.Latitude, 28.5))
			},
		},
		{
			"gps southern hemisphere",
			Frame{Type: TYPE_GPS, Payload: gpsPayload(-1, -339000000)},
			func(t *testing.T, r Reading) {
				assert.Assert(t, r.Fix)
				assert.Assert(t, near(r.Longitude, -1e-7))
				assert.Assert(t, near(r.Latitude, -33.9))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// go through the wire form so header and checksum are exercised too
			dec := NewDecoder()
			frames := dec.Write(tt.frame.Bytes())
			assert.Equal(t, len(frames), 1)

			r, err := Decode(frames[0])
			assert.NilError(t, err)
			assert.Equal(t, r.Type, tt.frame.Type)
			tt.check(t, r)
		})
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode(Frame{Type: 0x50})
	assert.Assert(t, errors.Is(err, ErrUnknownType))
}

func TestSnapshot_NoFixKeepsCoordinates(t *testing.T) {
	var snap Snapshot

	fix, err := Decode(Frame{Type: TYPE_GPS, Payload: gpsPayload(772090000, 285000000)})
	assert.NilError(t, err)
	assert.Assert(t, snap.Apply(fix))

	noFix, err := Decode(Frame{Type: TYPE_GPS})
	assert.NilError(t, err)
	assert.Assert(t, !noFix.Fix)
	assert.Assert(t, !snap.Apply(noFix))

	v := snap.Latest()
	assert.Assert(t, v.HasFix)
	assert.Assert(t, near(v.Longitude, 77.209))
	assert.Assert(t, near(v.Latitude, 28.5))
}

func TestSnapshot_FieldsAreIndependent(t *testing.T) {
	var snap Snapshot

	accel, _ := Decode(Frame{Type: TYPE_ACCELERATION, Payload: int16Payload(16384, 0, 0)})
	press, _ := Decode(Frame{Type: TYPE_PRESSURE, Payload: int16Payload(10000, 2500)})
	snap.Apply(accel)
	snap.Apply(press)
	assert.Assert(t, !snap.Apply(Reading{Type: 0x99}))

	v := snap.Latest()
	assert.Equal(t, v.Acceleration.X, 8.0)
	assert.Equal(t, v.Pressure, 100.0)
	assert.Equal(t, v.Temperature, 25.0)
	assert.Equal(t, v.Angle, Orientation{})
	assert.Assert(t, !v.HasFix)

	// Latest hands out a copy
	v.Pressure = 0
	assert.Equal(t, snap.Latest().Pressure, 100.0)
}

func TestDecoder_ResyncAfterCorruptByte(t *testing.T) {
	frame := Frame{Type: TYPE_ANGLE, Payload: int16Payload(8192, 0, 0)}

	dec := NewDecoder()
	stream := append([]byte{0x13}, frame.Bytes()...)
	frames := dec.Write(stream)

	assert.Equal(t, len(frames), 1)
	assert.Equal(t, frames[0], frame)
	assert.Equal(t, dec.Discarded(), uint64(1))

	// no cascading failure: the next frame decodes with no further loss
	frames = dec.Write(frame.Bytes())
	assert.Equal(t, len(frames), 1)
	assert.Equal(t, dec.Discarded(), uint64(1))
}

func TestDecoder_SpuriousHeaderInsideGarbage(t *testing.T) {
	frame := Frame{Type: TYPE_MAGNETIC, Payload: int16Payload(1, 2, 3)}

	garbage := []byte{0x55, 0x51, 0x00, 0x55, 0xFF}
	dec := NewDecoder()
	frames := dec.Write(append(garbage, frame.Bytes()...))

	assert.Equal(t, len(frames), 1)
	assert.Equal(t, frames[0], frame)
	assert.Equal(t, dec.Discarded(), uint64(len(garbage)))
}

func TestDecoder_PartialFrameWaits(t *testing.T) {
	raw := Frame{Type: TYPE_ACCELERATION}.Bytes()
	dec := NewDecoder()

	assert.Equal(t, len(dec.Write(raw[:6])), 0)
	assert.Equal(t, dec.Discarded(), uint64(0))
	assert.Equal(t, len(dec.Write(raw[6:])), 1)
}

func TestFormatReading(t *testing.T) {
	r, _ := Decode(Frame{Type: TYPE_GPS})
	assert.Equal(t, FormatReading(r), "GPS no fix")
	assert.Equal(t, FrameType(0x50).String(), "UNKNOWN_0x50")
	assert.Assert(t, len(FormatValues(Values{})) > 0)
}
