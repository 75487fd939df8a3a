// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package azmotor

import "time"

// Bus addressing
const (
	SLAVE_ID = 0x02

	// Direct data operation block: operation type, position, speed,
	// acceleration, deceleration, current and trigger, 2 registers each
	REG_DIRECT_OPERATION = 0x0058
	DIRECT_REGISTERS     = 0x12
	DIRECT_BYTES         = DIRECT_REGISTERS * 2

	PROBE_REGISTERS = 2
)

// Direct operation defaults
const (
	OPERATION_TYPE  = 1 // absolute positioning
	OPERATION_ID    = 1
	DEFAULT_SPEED   = 10000
	DEFAULT_ACCEL   = 8000
	DEFAULT_DECEL   = 8000
	DEFAULT_CURRENT = 1000
	TRIGGER         = 1
	TRIGGER_MODE    = 1
)

// Exchange limits
const (
	PROBE_READ_MAX = 5
	MOVE_READ_MAX  = 8
	MOVE_ACK_MIN   = 6
	READ_TIMEOUT   = 500 * time.Millisecond
)

// BaudRates are the candidates tried by discovery, in order
var BaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400}
