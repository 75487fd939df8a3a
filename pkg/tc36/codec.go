// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

// Package tc36 talks to a TE Technology TC-36-25 temperature controller
// using its ASCII STX/ETX protocol.
package tc36

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/checksum"
)

// Framing
const (
	STX     = '*'
	ETX     = '\r'
	ACK     = '^'
	ADDRESS = "00"

	REPLY_SIZE = 12
	VALUE_SIZE = 8
)

// Command codes
const (
	CMD_INPUT1            = "01" // actual temperature
	CMD_DESIRED_CONTROL   = "03" // effective setpoint
	CMD_FIXED_SETPOINT    = "1c" // write fixed setpoint
	CMD_SET_TYPE_DEFINE   = "29" // 0 selects computer-set value
	CMD_POWER_ON_OFF      = "2d"
	ZERO_VALUE            = "00000000"
	CENTI_DEGREES_PER_DEG = 100
)

var (
	ErrTimeout          = errors.New("no reply from controller")
	ErrMalformedReply   = errors.New("malformed reply")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// ToHex32 renders v as 8 lowercase hex digits, two's complement
func ToHex32(v int32) string {
	return fmt.Sprintf("%08x", uint32(v))
}

// FromHex32 parses 8 hex digits as a signed 32-bit value
func FromHex32(s string) (int32, error) {
	if len(s) != VALUE_SIZE {
		return 0, fmt.Errorf("%w: value %q is not 8 hex digits", ErrMalformedReply, s)
	}
	u, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return int32(uint32(u)), nil
}

// EncodeRequest builds "*" + address + cmd + value + checksum + "\r"
func EncodeRequest(cmd, value string) string {
	payload := ADDRESS + cmd + value
	return string(STX) + payload + checksum.ASCIIChecksum(payload) + string(ETX)
}

// EncodeReply builds the controller's reply for data
func EncodeReply(data string) string {
	return string(STX) + data + checksum.ASCIIChecksum(data) + string(ACK)
}

// DecodeReply validates a 12-character reply and returns its data field
// in lower case
func DecodeReply(reply string) (string, error) {
	if len(reply) == 0 {
		return "", ErrTimeout
	}
	if len(reply) != REPLY_SIZE || reply[0] != STX || reply[REPLY_SIZE-1] != ACK {
		return "", fmt.Errorf("%w: %q", ErrMalformedReply, reply)
	}
	data, sum := reply[1:1+VALUE_SIZE], reply[1+VALUE_SIZE:REPLY_SIZE-1]
	if want := checksum.ASCIIChecksum(data); !strings.EqualFold(want, sum) {
		return "", fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, sum, want)
	}
	return strings.ToLower(data), nil
}

// CentiDegrees converts a temperature to the controller's fixed-point
// units, rounding half to even
func CentiDegrees(celsius float64) int32 {
	return int32(math.RoundToEven(celsius * CENTI_DEGREES_PER_DEG))
}

// Celsius converts fixed-point controller units to degrees
func Celsius(centi int32) float64 {
	return float64(centi) / CENTI_DEGREES_PER_DEG
}
