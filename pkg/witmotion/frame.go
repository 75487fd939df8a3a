// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package witmotion decodes the 11-byte binary frames streamed by WitMotion
// inertial sensors and keeps a snapshot of the latest readings.
package witmotion

import "fmt"

// FrameType is the type ID in the second byte of a frame
type FrameType uint8

func (t FrameType) String() string {
	switch t {
	case TYPE_ACCELERATION:
		return "ACCELERATION"
	case TYPE_ANGULAR_VELOCITY:
		return "ANGULAR_VELOCITY"
	case TYPE_ANGLE:
		return "ANGLE"
	case TYPE_MAGNETIC:
		return "MAGNETIC"
	case TYPE_PRESSURE:
		return "PRESSURE"
	case TYPE_GPS:
		return "GPS"
	default:
		return fmt.Sprintf("UNKNOWN_0x%02X", uint8(t))
	}
}

// Frame is one checksum-valid frame with header and checksum stripped
type Frame struct {
	Type    FrameType
	Payload [PAYLOAD_SIZE]byte
}

// Checksum returns the low byte of the sum of the first ten bytes
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// Bytes encodes the frame as it appears on the wire
func (f Frame) Bytes() []byte {
	out := make([]byte, 0, FRAME_SIZE)
	out = append(out, FRAME_HEADER, byte(f.Type))
	out = append(out, f.Payload[:]...)
	return append(out, Checksum(out))
}

// ParseFrame validates an 11-byte buffer and returns the frame it holds
func ParseFrame(b []byte) (Frame, error) {
	if len(b) != FRAME_SIZE {
		return Frame{}, fmt.Errorf("frame length %d, want %d", len(b), FRAME_SIZE)
	}
	if b[0] != FRAME_HEADER {
		return Frame{}, fmt.Errorf("bad header 0x%02X", b[0])
	}
	if sum := Checksum(b[:CHECKSUM_SPAN]); sum != b[CHECKSUM_SPAN] {
		return Frame{}, fmt.Errorf("checksum mismatch: expected 0x%02X, got 0x%02X", sum, b[CHECKSUM_SPAN])
	}
	f := Frame{Type: FrameType(b[1])}
	copy(f.Payload[:], b[2:CHECKSUM_SPAN])
	return f, nil
}
