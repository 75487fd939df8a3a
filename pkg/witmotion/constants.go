// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package witmotion

// Frame layout
const (
	FRAME_HEADER  = 0x55
	FRAME_SIZE    = 11
	PAYLOAD_SIZE  = 8
	CHECKSUM_SPAN = FRAME_SIZE - 1
)

// Frame types reported by the sensor
const (
	TYPE_ACCELERATION     FrameType = 0x51
	TYPE_ANGULAR_VELOCITY FrameType = 0x52
	TYPE_ANGLE            FrameType = 0x53
	TYPE_MAGNETIC         FrameType = 0x54
	TYPE_PRESSURE         FrameType = 0x56
	TYPE_GPS              FrameType = 0x57
)

// Full-scale ranges; raw int16 values are scaled by raw/32768*range
const (
	ACCEL_RANGE_G    = 16.0
	GYRO_RANGE_DPS   = 2000.0
	ANGLE_RANGE_DEG  = 180.0
	MAG_RANGE_UT     = 1000.0
	PRESSURE_DIVISOR = 100.0
	GPS_SCALE        = 1e-7
)

// Line defaults
const (
	DEFAULT_BAUD = 115200
)
