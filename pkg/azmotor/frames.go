// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package azmotor drives an Oriental Motor AZ-series stepper controller over
// Modbus RTU: baud-rate discovery and direct-data positioning moves.
package azmotor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/goburrow/modbus"
)

// packager builds RTU ADUs (slave, PDU, CRC16 low byte first)
func packager() *modbus.RTUClientHandler {
	h := modbus.NewRTUClientHandler("")
	h.SlaveId = SLAVE_ID
	return h
}

func encode(functionCode byte, data []byte) []byte {
	adu, err := packager().Encode(&modbus.ProtocolDataUnit{
		FunctionCode: functionCode,
		Data:         data,
	})
	if err != nil {
		// only reachable for PDUs over 252 bytes
		panic(fmt.Sprintf("azmotor: encode: %v", err))
	}
	return adu
}

// ProbeFrame reads the two registers at the direct operation address
func ProbeFrame() []byte {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:], REG_DIRECT_OPERATION)
	binary.BigEndian.PutUint16(data[2:], PROBE_REGISTERS)
	return encode(modbus.FuncCodeReadHoldingRegisters, data)
}

// ClampAngle saturates angle to the int32 range carried on the wire
func ClampAngle(angle int64) int32 {
	switch {
	case angle > math.MaxInt32:
		return math.MaxInt32
	case angle < math.MinInt32:
		return math.MinInt32
	}
	return int32(angle)
}

// MoveFrame writes a direct-data absolute move to angle
func MoveFrame(angle int64) []byte {
	data := make([]byte, 5, 5+DIRECT_BYTES)
	binary.BigEndian.PutUint16(data[0:], REG_DIRECT_OPERATION)
	binary.BigEndian.PutUint16(data[2:], DIRECT_REGISTERS)
	data[4] = DIRECT_BYTES

	for _, v := range []int32{
		OPERATION_TYPE,
		OPERATION_ID,
		ClampAngle(angle),
		DEFAULT_SPEED,
		DEFAULT_ACCEL,
		DEFAULT_DECEL,
		DEFAULT_CURRENT,
		TRIGGER,
		TRIGGER_MODE,
	} {
		data = binary.BigEndian.AppendUint32(data, uint32(v))
	}
	return encode(modbus.FuncCodeWriteMultipleRegisters, data)
}

// Move ADU layout: slave, function, address, count, byte count, data, CRC.
// The angle follows the operation type and id.
const (
	moveHeaderSize = 1 + 1 + 2 + 2 + 1
	moveFrameSize  = moveHeaderSize + DIRECT_BYTES + 2
	positionOffset = moveHeaderSize + 8
)

// MoveTarget extracts the angle from a frame built by MoveFrame
func MoveTarget(adu []byte) (int32, error) {
	if len(adu) != moveFrameSize {
		return 0, fmt.Errorf("move frame length %d", len(adu))
	}
	if adu[1] != modbus.FuncCodeWriteMultipleRegisters {
		return 0, fmt.Errorf("function code 0x%02X is not a move", adu[1])
	}
	return int32(binary.BigEndian.Uint32(adu[positionOffset:])), nil
}

// IsMoveAck reports whether resp acknowledges a move: at least six bytes
// echoing the write-multiple-registers function code
func IsMoveAck(resp []byte) bool {
	return len(resp) >= MOVE_ACK_MIN && resp[1] == modbus.FuncCodeWriteMultipleRegisters
}
